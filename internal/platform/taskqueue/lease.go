package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Lease is a worker's claim on one running task. Progress, Complete, and
// Fail are rejected with ErrLeaseLost once another worker reclaims it.
type Lease struct {
	store Store
	task  Task
	owner string
	now   func() time.Time
}

// NewLease wraps a task returned by Store.Claim for owner.
func NewLease(store Store, task Task, owner string, now func() time.Time) *Lease {
	if now == nil {
		now = time.Now
	}
	return &Lease{store: store, task: task, owner: owner, now: now}
}

// Task returns the claimed task as it was at claim time.
func (l *Lease) Task() Task {
	return l.task
}

// Decode unmarshals the task payload into out.
func (l *Lease) Decode(out any) error {
	if err := json.Unmarshal(l.task.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", l.task.Kind, err)
	}
	return nil
}

// Progress appends a progress message visible to Handle.Progress.
func (l *Lease) Progress(ctx context.Context, message string) error {
	return l.store.AppendProgress(ctx, l.task.ID, l.owner, message, l.now().UTC())
}

// Complete finishes the task successfully with result encoded as JSON.
func (l *Lease) Complete(ctx context.Context, result any) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", l.task.Kind, err)
	}
	return l.store.Complete(ctx, l.task.ID, l.owner, body, l.now().UTC())
}

// Fail finishes the task in the failed state.
func (l *Lease) Fail(ctx context.Context, message string) error {
	if message == "" {
		return errors.New("failure message is required")
	}
	return l.store.Fail(ctx, l.task.ID, l.owner, message, l.now().UTC())
}
