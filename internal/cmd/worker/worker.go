// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/ocfweb/internal/platform/cmd"
	"github.com/louisbranch/ocfweb/internal/platform/discovery"
	"github.com/louisbranch/ocfweb/internal/platform/timeouts"
	workerserver "github.com/louisbranch/ocfweb/internal/services/worker/app"
)

// Config holds worker command configuration.
type Config struct {
	Port             int           `env:"WORKER_PORT"`
	DBPath           string        `env:"WORKER_DB_PATH" envDefault:"data/worker.db"`
	TasksDBPath      string        `env:"TASKS_DB_PATH" envDefault:"data/tasks.db"`
	AccountsDBPath   string        `env:"ACCOUNTS_DB_PATH" envDefault:"data/accounts.db"`
	PrivateKeyPath   string        `env:"WORKER_PRIVATE_KEY_PATH" envDefault:"data/create.key"`
	Consumer         string        `env:"WORKER_CONSUMER"`
	PollInterval     time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"1s"`
	LeaseTTL         time.Duration `env:"WORKER_LEASE_TTL" envDefault:"2m"`
	Concurrency      int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	BcryptCost       int           `env:"WORKER_BCRYPT_COST" envDefault:"10"`
	TesterCalnetUIDs []string      `env:"TESTER_CALNET_UIDS" envSeparator:","`
	TestGroupOIDs    []string      `env:"TEST_GROUP_OIDS" envSeparator:","`
	PruneSchedule    string        `env:"WORKER_PRUNE_SCHEDULE" envDefault:"@every 1h"`
	Retention        time.Duration `env:"WORKER_RETENTION" envDefault:"168h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Port <= 0 {
		cfg.Port = discovery.DefaultGRPCPort(discovery.ServiceWorker)
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = timeouts.TaskLease
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker attempt log SQLite database path")
	fs.StringVar(&cfg.TasksDBPath, "tasks-db-path", cfg.TasksDBPath, "The task queue SQLite database path")
	fs.StringVar(&cfg.AccountsDBPath, "accounts-db-path", cfg.AccountsDBPath, "The account registry SQLite database path")
	fs.StringVar(&cfg.PrivateKeyPath, "private-key", cfg.PrivateKeyPath, "PEM private key used to decrypt submitted passwords")
	fs.StringVar(&cfg.Consumer, "consumer", cfg.Consumer, "Task lease owner name; empty uses a name unique to this process")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Task queue poll interval")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Task lease duration")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Maximum tasks processed at once")
	fs.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "Password hash cost")
	fs.StringVar(&cfg.PruneSchedule, "prune-schedule", cfg.PruneSchedule, "Cron spec for pruning finished tasks and attempts")
	fs.DurationVar(&cfg.Retention, "retention", cfg.Retention, "How long finished tasks and attempts are kept")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(context.Context) error {
		return workerserver.Run(ctx, workerserver.RuntimeConfig{
			Port:             cfg.Port,
			TasksDBPath:      cfg.TasksDBPath,
			AccountsDBPath:   cfg.AccountsDBPath,
			DBPath:           cfg.DBPath,
			PrivateKeyPath:   cfg.PrivateKeyPath,
			Consumer:         cfg.Consumer,
			PollInterval:     cfg.PollInterval,
			LeaseTTL:         cfg.LeaseTTL,
			Concurrency:      cfg.Concurrency,
			BcryptCost:       cfg.BcryptCost,
			TesterCalnetUIDs: cfg.TesterCalnetUIDs,
			TestGroupOIDs:    cfg.TestGroupOIDs,
			PruneSchedule:    cfg.PruneSchedule,
			Retention:        cfg.Retention,
		})
	})
}
