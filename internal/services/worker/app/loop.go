package app

import (
	"context"
	"errors"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/id"
	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	"github.com/louisbranch/ocfweb/internal/platform/timeouts"
	"github.com/louisbranch/ocfweb/internal/services/worker/domain"
	workerstorage "github.com/louisbranch/ocfweb/internal/services/worker/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	consumerPrefix      = "worker-accounts"
	defaultPollInterval = time.Second
	defaultConcurrency  = 4
	tracerName          = "github.com/louisbranch/ocfweb/internal/services/worker"
)

// defaultConsumer is the lease owner of this process when none is
// configured. Leases are only finished by their owner, so the name must not
// be shared with another worker process.
var defaultConsumer = sync.OnceValue(newConsumerName)

func newConsumerName() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	suffix, err := id.NewID()
	if err != nil {
		suffix = strconv.Itoa(os.Getpid())
	}
	return consumerPrefix + "-" + host + "-" + suffix
}

// Config controls the claim loop.
type Config struct {
	Consumer     string
	PollInterval time.Duration
	LeaseTTL     time.Duration
	Concurrency  int
}

func (c Config) normalized() Config {
	c.Consumer = strings.TrimSpace(c.Consumer)
	if c.Consumer == "" {
		c.Consumer = defaultConsumer()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = timeouts.TaskLease
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	return c
}

// Attempt is one processed task as seen by the loop.
type Attempt struct {
	TaskID    string
	TaskKind  string
	Outcome   string
	Attempt   int
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// AttemptRecorder receives one Attempt per claimed task.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// Worker claims tasks from a queue store and runs the handler registered
// for each task kind.
type Worker struct {
	store    taskqueue.Store
	recorder AttemptRecorder
	handlers map[string]domain.Handler
	kinds    []string
	cfg      Config
	now      func() time.Time
	tracer   trace.Tracer
}

// New builds a worker. Only kinds with a handler are claimed.
func New(store taskqueue.Store, recorder AttemptRecorder, handlers map[string]domain.Handler, cfg Config, clock func() time.Time) *Worker {
	if clock == nil {
		clock = time.Now
	}
	kinds := make([]string, 0, len(handlers))
	for kind, handler := range handlers {
		if handler != nil {
			kinds = append(kinds, kind)
		}
	}
	slices.Sort(kinds)
	return &Worker{
		store:    store,
		recorder: recorder,
		handlers: handlers,
		kinds:    kinds,
		cfg:      cfg.normalized(),
		now:      clock,
		tracer:   otel.Tracer(tracerName),
	}
}

// Run claims and processes tasks until ctx is canceled. Tasks already
// claimed run to completion before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.store == nil {
		return errors.New("worker task store is not configured")
	}
	if len(w.kinds) == 0 {
		return errors.New("worker has no task handlers")
	}

	slots := semaphore.NewWeighted(int64(w.cfg.Concurrency))
	var group errgroup.Group
	defer func() {
		_ = group.Wait()
	}()

	log.Printf("worker loop started consumer=%s kinds=%s concurrency=%d", w.cfg.Consumer, strings.Join(w.kinds, ","), w.cfg.Concurrency)
	for {
		if err := slots.Acquire(ctx, 1); err != nil {
			return nil
		}
		task, ok, err := w.store.Claim(ctx, w.cfg.Consumer, w.kinds, w.now().UTC(), w.cfg.LeaseTTL)
		if err != nil || !ok {
			slots.Release(1)
			if err != nil && ctx.Err() == nil {
				log.Printf("claim task consumer=%s err=%v", w.cfg.Consumer, err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.PollInterval):
			}
			continue
		}

		runCtx := context.WithoutCancel(ctx)
		group.Go(func() error {
			defer slots.Release(1)
			w.process(runCtx, task)
			return nil
		})
	}
}

// RunOnce claims and processes at most one task. It reports whether a task
// was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	if w == nil || w.store == nil {
		return false, errors.New("worker task store is not configured")
	}
	task, ok, err := w.store.Claim(ctx, w.cfg.Consumer, w.kinds, w.now().UTC(), w.cfg.LeaseTTL)
	if err != nil || !ok {
		return false, err
	}
	w.process(ctx, task)
	return true, nil
}

func (w *Worker) process(ctx context.Context, task taskqueue.Task) {
	started := w.now()
	ctx, span := w.tracer.Start(ctx, "worker.task", trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.kind", task.Kind),
		attribute.Int("task.attempt", task.Attempts),
	))
	defer span.End()

	lease := taskqueue.NewLease(w.store, task, w.cfg.Consumer, w.now)
	outcome, errMsg := w.execute(ctx, lease)
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	}
	span.SetAttributes(attribute.String("task.outcome", outcome))

	if w.recorder == nil {
		return
	}
	finished := w.now()
	if err := w.recorder.RecordAttempt(ctx, Attempt{
		TaskID:    task.ID,
		TaskKind:  task.Kind,
		Outcome:   outcome,
		Attempt:   task.Attempts,
		Error:     errMsg,
		Duration:  finished.Sub(started),
		CreatedAt: finished.UTC(),
	}); err != nil {
		log.Printf("record attempt task=%s err=%v", task.ID, err)
	}
}

func (w *Worker) execute(ctx context.Context, lease *taskqueue.Lease) (outcome string, errMsg string) {
	task := lease.Task()
	handler := w.handlers[task.Kind]
	if handler == nil {
		return w.fail(ctx, lease, workerstorage.OutcomeDead, domain.Permanent(errors.New("no handler for task kind "+task.Kind)))
	}

	result, err := handler.Handle(ctx, lease)
	if err != nil {
		if errors.Is(err, taskqueue.ErrLeaseLost) {
			log.Printf("task lease lost task=%s kind=%s", task.ID, task.Kind)
			return workerstorage.OutcomeLeaseLost, err.Error()
		}
		outcome := workerstorage.OutcomeFailed
		if domain.IsPermanent(err) {
			outcome = workerstorage.OutcomeDead
		}
		return w.fail(ctx, lease, outcome, err)
	}

	if err := lease.Complete(ctx, result); err != nil {
		if errors.Is(err, taskqueue.ErrLeaseLost) {
			log.Printf("task lease lost before completion task=%s kind=%s", task.ID, task.Kind)
			return workerstorage.OutcomeLeaseLost, err.Error()
		}
		return w.fail(ctx, lease, workerstorage.OutcomeFailed, err)
	}
	log.Printf("task succeeded task=%s kind=%s attempt=%d", task.ID, task.Kind, task.Attempts)
	return workerstorage.OutcomeSucceeded, ""
}

func (w *Worker) fail(ctx context.Context, lease *taskqueue.Lease, outcome string, cause error) (string, string) {
	task := lease.Task()
	log.Printf("task failed task=%s kind=%s outcome=%s err=%v", task.ID, task.Kind, outcome, cause)
	if err := lease.Fail(ctx, cause.Error()); err != nil {
		if errors.Is(err, taskqueue.ErrLeaseLost) {
			return workerstorage.OutcomeLeaseLost, cause.Error()
		}
		log.Printf("mark task failed task=%s err=%v", task.ID, err)
	}
	return outcome, cause.Error()
}
