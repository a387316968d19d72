// Package taskqueue is a durable asynchronous task queue with queryable
// state, progress, and a terminal result.
//
// Producers enqueue work through Client.Submit and observe it through a
// Handle. Workers claim tasks from a Store under a lease, append progress
// messages while running, and finish each task exactly once by completing
// it with a result or failing it with a message. Failed tasks are not
// retried; a task is only claimed again when its worker's lease lapses.
package taskqueue

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/ocfweb/internal/platform/errors"
)

// State is the lifecycle position of a task.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Finished reports whether the state is terminal.
func (s State) Finished() bool {
	return s == StateSucceeded || s == StateFailed
}

// Task is one persisted unit of work.
type Task struct {
	ID             string
	Kind           string
	Payload        []byte
	State          State
	Progress       []string
	Result         []byte
	Error          string
	Attempts       int
	LeaseOwner     string
	LeaseExpiresAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	FinishedAt     time.Time
}

var (
	// ErrNotFound is returned when a task id is unknown to the store.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "task not found")
	// ErrLeaseLost is returned when a worker reports on a task it no longer owns.
	ErrLeaseLost = apperrors.New(apperrors.CodeTaskLeaseLost, "task lease lost")
	// ErrNotReady is returned when a result is requested before the task finished.
	ErrNotReady = apperrors.New(apperrors.CodeTaskNotReady, "task not finished")
	// ErrWaitTimeout is returned when Handle.Wait gives up before the task finished.
	ErrWaitTimeout = apperrors.New(apperrors.CodeTaskWaitTimeout, "timed out waiting for task")
)

// Store persists tasks. Implementations must make Claim atomic across
// processes sharing the same backing database.
type Store interface {
	Enqueue(ctx context.Context, task Task) error
	Get(ctx context.Context, id string) (Task, error)
	// Claim leases the oldest queued or lease-expired task of one of kinds to
	// owner. It returns false when nothing is claimable.
	Claim(ctx context.Context, owner string, kinds []string, now time.Time, lease time.Duration) (Task, bool, error)
	AppendProgress(ctx context.Context, id, owner, message string, now time.Time) error
	Complete(ctx context.Context, id, owner string, result []byte, now time.Time) error
	Fail(ctx context.Context, id, owner, message string, now time.Time) error
	// PruneFinished deletes finished tasks whose finish time is before cutoff.
	PruneFinished(ctx context.Context, cutoff time.Time) (int64, error)
}

// FailedError reports a task that finished in the failed state.
type FailedError struct {
	TaskID  string
	Kind    string
	Message string
}

func (e *FailedError) Error() string {
	return "task " + e.TaskID + " (" + e.Kind + ") failed: " + e.Message
}

// Is matches apperrors codes so callers can test with apperrors.HasCode.
func (e *FailedError) Is(target error) bool {
	t, ok := target.(*apperrors.Error)
	return ok && t.Code == apperrors.CodeTaskFailed
}
