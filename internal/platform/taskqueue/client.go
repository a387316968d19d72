package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/id"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	defaultPollInterval = 50 * time.Millisecond
)

// Client submits tasks and hands out Handles for observing them.
type Client struct {
	store        Store
	now          func() time.Time
	newID        func() (string, error)
	pollInterval time.Duration
	tracer       trace.Tracer
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithPollInterval sets how often Wait re-reads task state.
func WithPollInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithClock overrides the time source used for task timestamps.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(newID func() (string, error)) ClientOption {
	return func(c *Client) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// NewClient builds a client over store.
func NewClient(store Store, opts ...ClientOption) *Client {
	c := &Client{
		store:        store,
		now:          time.Now,
		newID:        id.NewID,
		pollInterval: defaultPollInterval,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit enqueues a task of kind with payload encoded as JSON.
func (c *Client) Submit(ctx context.Context, kind string, payload any) (*Handle, error) {
	if c == nil || c.store == nil {
		return nil, errors.New("task store is not configured")
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return nil, errors.New("task kind is required")
	}

	ctx, span := c.tracer.Start(ctx, "taskqueue.submit", trace.WithAttributes(attribute.String("task.kind", kind)))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	taskID, err := c.newID()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("new task id: %w", err)
	}
	now := c.now().UTC()
	if err := c.store.Enqueue(ctx, Task{
		ID:        taskID,
		Kind:      kind,
		Payload:   body,
		State:     StateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	span.SetAttributes(attribute.String("task.id", taskID))
	return &Handle{id: taskID, client: c}, nil
}

// Lookup returns a handle for an existing task id. The id is not checked
// until the handle is used.
func (c *Client) Lookup(taskID string) *Handle {
	return &Handle{id: strings.TrimSpace(taskID), client: c}
}

// Handle observes one task.
type Handle struct {
	id     string
	client *Client
}

// ID returns the task id.
func (h *Handle) ID() string {
	return h.id
}

// Wait blocks until the task finishes, timeout elapses, or ctx ends.
// It returns ErrWaitTimeout when timeout elapses first.
func (h *Handle) Wait(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(h.client.pollInterval)
	defer ticker.Stop()

	for {
		ready, err := h.Ready(ctx)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrWaitTimeout
		case <-ticker.C:
		}
	}
}

// Ready reports whether the task reached a terminal state.
func (h *Handle) Ready(ctx context.Context) (bool, error) {
	task, err := h.load(ctx)
	if err != nil {
		return false, err
	}
	return task.State.Finished(), nil
}

// Progress returns the progress messages reported so far, oldest first.
func (h *Handle) Progress(ctx context.Context) ([]string, error) {
	task, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	return task.Progress, nil
}

// Result decodes the terminal result into out. It returns ErrNotReady while
// the task runs and *FailedError when the task failed.
func (h *Handle) Result(ctx context.Context, out any) error {
	task, err := h.load(ctx)
	if err != nil {
		return err
	}
	switch task.State {
	case StateSucceeded:
	case StateFailed:
		return &FailedError{TaskID: task.ID, Kind: task.Kind, Message: task.Error}
	default:
		return ErrNotReady
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(task.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", task.Kind, err)
	}
	return nil
}

// Task returns a snapshot of the task record.
func (h *Handle) Task(ctx context.Context) (Task, error) {
	return h.load(ctx)
}

func (h *Handle) load(ctx context.Context) (Task, error) {
	if h == nil || h.client == nil || h.client.store == nil {
		return Task{}, errors.New("task store is not configured")
	}
	if h.id == "" {
		return Task{}, ErrNotFound
	}
	return h.client.store.Get(ctx, h.id)
}
