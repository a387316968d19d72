// Package app wires the worker runtime: stores, handlers, the claim loop,
// the health server, and scheduled pruning.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/ocfweb/internal/platform/grpc"
	"github.com/louisbranch/ocfweb/internal/platform/schedule"
	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	taskqueuesqlite "github.com/louisbranch/ocfweb/internal/platform/taskqueue/sqlite"
	"github.com/louisbranch/ocfweb/internal/services/accounts"
	accountssqlite "github.com/louisbranch/ocfweb/internal/services/accounts/storage/sqlite"
	"github.com/louisbranch/ocfweb/internal/services/worker/domain"
	workerstorage "github.com/louisbranch/ocfweb/internal/services/worker/storage"
	workersqlite "github.com/louisbranch/ocfweb/internal/services/worker/storage/sqlite"
)

// HealthService is the gRPC health service name the worker reports.
const HealthService = "worker.runtime"

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port             int
	TasksDBPath      string
	AccountsDBPath   string
	DBPath           string
	PrivateKeyPath   string
	Consumer         string
	PollInterval     time.Duration
	LeaseTTL         time.Duration
	Concurrency      int
	BcryptCost       int
	TesterCalnetUIDs []string
	TestGroupOIDs    []string
	PruneSchedule    string
	Retention        time.Duration
}

const (
	defaultWorkerDB      = "data/worker.db"
	defaultTasksDB       = "data/tasks.db"
	defaultAccountsDB    = "data/accounts.db"
	defaultPruneSchedule = "@every 1h"
	defaultRetention     = 7 * 24 * time.Hour
)

// Run starts worker runtime dependencies and the background processing loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.PrivateKeyPath) == "" {
		return fmt.Errorf("private key path is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = discovery.DefaultGRPCPort(discovery.ServiceWorker)
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorkerDB
	}
	if strings.TrimSpace(cfg.TasksDBPath) == "" {
		cfg.TasksDBPath = defaultTasksDB
	}
	if strings.TrimSpace(cfg.AccountsDBPath) == "" {
		cfg.AccountsDBPath = defaultAccountsDB
	}
	if strings.TrimSpace(cfg.PruneSchedule) == "" {
		cfg.PruneSchedule = defaultPruneSchedule
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}

	for _, path := range []string{cfg.DBPath, cfg.TasksDBPath, cfg.AccountsDBPath} {
		if err := ensureDir(path); err != nil {
			return err
		}
	}

	privateKey, err := accounts.LoadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("load private key: %w", err)
	}
	decrypter, err := accounts.NewPasswordDecrypter(privateKey)
	if err != nil {
		return err
	}

	workerStore, err := workersqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer closeWithLog("worker sqlite store", workerStore.Close)

	tasksStore, err := taskqueuesqlite.Open(ctx, cfg.TasksDBPath)
	if err != nil {
		return fmt.Errorf("open task sqlite store: %w", err)
	}
	defer closeWithLog("task sqlite store", tasksStore.Close)

	accountsStore, err := accountssqlite.Open(ctx, cfg.AccountsDBPath)
	if err != nil {
		return fmt.Errorf("open account sqlite store: %w", err)
	}
	defer closeWithLog("account sqlite store", accountsStore.Close)

	var provisionerOpts []accounts.ProvisionerOption
	if cfg.BcryptCost > 0 {
		provisionerOpts = append(provisionerOpts, accounts.WithBcryptCost(cfg.BcryptCost))
	}
	provisioner, err := accounts.NewProvisioner(accountsStore, decrypter, accounts.Policy{
		TesterCalnetUIDs: cfg.TesterCalnetUIDs,
		TestGroupOIDs:    cfg.TestGroupOIDs,
	}, provisionerOpts...)
	if err != nil {
		return err
	}

	workerLoop := New(
		tasksStore,
		newAttemptStoreRecorder(workerStore, cfg.Consumer),
		Handlers(provisioner, taskqueue.NewClient(tasksStore)),
		Config{
			Consumer:     cfg.Consumer,
			PollInterval: cfg.PollInterval,
			LeaseTTL:     cfg.LeaseTTL,
			Concurrency:  cfg.Concurrency,
		},
		nil,
	)

	pruner, err := schedule.Start(ctx, cfg.PruneSchedule,
		schedule.Job{
			Name: "prune_finished_tasks",
			Run: func(ctx context.Context) (int64, error) {
				return tasksStore.PruneFinished(ctx, time.Now().Add(-cfg.Retention))
			},
		},
		schedule.Job{
			Name: "prune_worker_attempts",
			Run: func(ctx context.Context) (int64, error) {
				return workerStore.PruneAttempts(ctx, time.Now().Add(-cfg.Retention))
			},
		},
	)
	if err != nil {
		return fmt.Errorf("schedule pruning: %w", err)
	}
	defer pruner.Stop()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on worker port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer, healthServer := platformgrpc.NewHealthServer(HealthService)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("worker server listening at %v", listener.Addr())
	return workerLoop.Run(ctx)
}

// Handlers returns the task handlers for account requests.
func Handlers(provisioner domain.Provisioner, tasks domain.TaskSubmitter) map[string]domain.Handler {
	return map[string]domain.Handler{
		accounts.TaskValidateThenCreate: domain.NewValidateThenCreateHandler(provisioner, tasks),
		accounts.TaskCreate:             domain.NewCreateHandler(provisioner),
	}
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return nil
}

func closeWithLog(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Printf("close %s: %v", name, err)
	}
}

type attemptStoreRecorder struct {
	store    workerstorage.AttemptStore
	consumer string
}

func newAttemptStoreRecorder(store workerstorage.AttemptStore, consumer string) *attemptStoreRecorder {
	normalizedConsumer := strings.TrimSpace(consumer)
	if normalizedConsumer == "" {
		normalizedConsumer = defaultConsumer()
	}
	return &attemptStoreRecorder{store: store, consumer: normalizedConsumer}
}

func (r *attemptStoreRecorder) RecordAttempt(ctx context.Context, attempt Attempt) error {
	if r == nil || r.store == nil {
		return nil
	}
	consumer := strings.TrimSpace(r.consumer)
	if consumer == "" {
		consumer = defaultConsumer()
	}
	return r.store.RecordAttempt(ctx, workerstorage.AttemptRecord{
		TaskID:    attempt.TaskID,
		TaskKind:  attempt.TaskKind,
		Consumer:  consumer,
		Outcome:   attempt.Outcome,
		Attempt:   attempt.Attempt,
		LastError: attempt.Error,
		Duration:  attempt.Duration,
		CreatedAt: attempt.CreatedAt,
	})
}
