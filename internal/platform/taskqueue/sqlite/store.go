// Package sqlite provides the SQLite-backed task queue store shared by the
// web tier (producer) and the worker (consumer).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	"github.com/louisbranch/ocfweb/internal/platform/taskqueue/sqlite/migrations"
)

// Store provides SQLite-backed task persistence.
type Store struct {
	sqlDB *sql.DB
}

var _ taskqueue.Store = (*Store)(nil)

// Open opens a task queue SQLite store and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS, "")
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Enqueue inserts a new queued task.
func (s *Store) Enqueue(ctx context.Context, task taskqueue.Task) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	task.ID = strings.TrimSpace(task.ID)
	task.Kind = strings.TrimSpace(task.Kind)
	if task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if task.Kind == "" {
		return fmt.Errorf("task kind is required")
	}
	if task.Payload == nil {
		task.Payload = []byte("null")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO tasks (id, kind, payload, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		task.ID,
		task.Kind,
		task.Payload,
		string(taskqueue.StateQueued),
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Get loads a task and its progress messages.
func (s *Store) Get(ctx context.Context, id string) (taskqueue.Task, error) {
	if err := s.ready(ctx); err != nil {
		return taskqueue.Task{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return taskqueue.Task{}, taskqueue.ErrNotFound
	}

	task, err := scanTask(s.sqlDB.QueryRowContext(ctx, `
SELECT id, kind, payload, state, result, error, attempts, lease_owner,
	lease_expires_at, created_at, updated_at, finished_at
FROM tasks
WHERE id = ?
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return taskqueue.Task{}, taskqueue.ErrNotFound
	}
	if err != nil {
		return taskqueue.Task{}, fmt.Errorf("get task: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT message FROM task_progress WHERE task_id = ? ORDER BY seq
`, id)
	if err != nil {
		return taskqueue.Task{}, fmt.Errorf("list task progress: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var message string
		if err := rows.Scan(&message); err != nil {
			return taskqueue.Task{}, fmt.Errorf("scan task progress: %w", err)
		}
		task.Progress = append(task.Progress, message)
	}
	if err := rows.Err(); err != nil {
		return taskqueue.Task{}, fmt.Errorf("iterate task progress: %w", err)
	}
	return task, nil
}

// Claim leases the oldest claimable task of one of kinds to owner.
func (s *Store) Claim(ctx context.Context, owner string, kinds []string, now time.Time, lease time.Duration) (taskqueue.Task, bool, error) {
	if err := s.ready(ctx); err != nil {
		return taskqueue.Task{}, false, err
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return taskqueue.Task{}, false, fmt.Errorf("lease owner is required")
	}
	if len(kinds) == 0 {
		return taskqueue.Task{}, false, fmt.Errorf("at least one task kind is required")
	}
	if lease <= 0 {
		return taskqueue.Task{}, false, fmt.Errorf("lease duration must be positive")
	}

	args := make([]any, 0, len(kinds)+2)
	args = append(args, string(taskqueue.StateQueued), string(taskqueue.StateRunning), toMillis(now))
	placeholders := make([]string, len(kinds))
	for i, kind := range kinds {
		placeholders[i] = "?"
		args = append(args, kind)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return taskqueue.Task{}, false, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `
SELECT id FROM tasks
WHERE (state = ? OR (state = ? AND lease_expires_at <= ?))
	AND kind IN (`+strings.Join(placeholders, ",")+`)
ORDER BY created_at, id
LIMIT 1
`, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return taskqueue.Task{}, false, nil
	}
	if err != nil {
		return taskqueue.Task{}, false, fmt.Errorf("select claimable task: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
UPDATE tasks
SET state = ?, lease_owner = ?, lease_expires_at = ?, attempts = attempts + 1, updated_at = ?
WHERE id = ? AND (state = ? OR (state = ? AND lease_expires_at <= ?))
`,
		string(taskqueue.StateRunning),
		owner,
		toMillis(now.Add(lease)),
		toMillis(now),
		id,
		string(taskqueue.StateQueued),
		string(taskqueue.StateRunning),
		toMillis(now),
	)
	if err != nil {
		return taskqueue.Task{}, false, fmt.Errorf("lease task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return taskqueue.Task{}, false, nil
	}
	if err := tx.Commit(); err != nil {
		return taskqueue.Task{}, false, fmt.Errorf("commit claim: %w", err)
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return taskqueue.Task{}, false, err
	}
	return task, true, nil
}

// AppendProgress records one progress message for a running task.
func (s *Store) AppendProgress(ctx context.Context, id, owner, message string, now time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("progress message is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin progress: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := touchLease(ctx, tx, id, owner, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO task_progress (task_id, seq, message, created_at)
VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM task_progress WHERE task_id = ?), ?, ?)
`, id, id, message, toMillis(now)); err != nil {
		return fmt.Errorf("append progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	return nil
}

// Complete marks a running task succeeded with result.
func (s *Store) Complete(ctx context.Context, id, owner string, result []byte, now time.Time) error {
	return s.finish(ctx, id, owner, taskqueue.StateSucceeded, result, "", now)
}

// Fail marks a running task failed with message.
func (s *Store) Fail(ctx context.Context, id, owner, message string, now time.Time) error {
	return s.finish(ctx, id, owner, taskqueue.StateFailed, nil, message, now)
}

// PruneFinished deletes finished tasks that finished before cutoff.
func (s *Store) PruneFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
DELETE FROM task_progress
WHERE task_id IN (SELECT id FROM tasks WHERE finished_at > 0 AND finished_at < ?)
`, toMillis(cutoff)); err != nil {
		return 0, fmt.Errorf("prune task progress: %w", err)
	}
	result, err := tx.ExecContext(ctx, `
DELETE FROM tasks WHERE finished_at > 0 AND finished_at < ?
`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune tasks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (s *Store) finish(ctx context.Context, id, owner string, state taskqueue.State, result []byte, message string, now time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE tasks
SET state = ?, result = ?, error = ?, lease_expires_at = 0, updated_at = ?, finished_at = ?
WHERE id = ? AND state = ? AND lease_owner = ?
`,
		string(state),
		result,
		strings.TrimSpace(message),
		toMillis(now),
		toMillis(now),
		id,
		string(taskqueue.StateRunning),
		owner,
	)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return taskqueue.ErrLeaseLost
	}
	return nil
}

func touchLease(ctx context.Context, tx *sql.Tx, id, owner string, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
UPDATE tasks SET updated_at = ? WHERE id = ? AND state = ? AND lease_owner = ?
`, toMillis(now), id, string(taskqueue.StateRunning), owner)
	if err != nil {
		return fmt.Errorf("touch task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return taskqueue.ErrLeaseLost
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (taskqueue.Task, error) {
	var (
		task                                        taskqueue.Task
		state                                       string
		leaseExpiresAt, createdAt, updatedAt, endAt int64
	)
	if err := row.Scan(
		&task.ID,
		&task.Kind,
		&task.Payload,
		&state,
		&task.Result,
		&task.Error,
		&task.Attempts,
		&task.LeaseOwner,
		&leaseExpiresAt,
		&createdAt,
		&updatedAt,
		&endAt,
	); err != nil {
		return taskqueue.Task{}, err
	}
	task.State = taskqueue.State(state)
	task.LeaseExpiresAt = fromMillis(leaseExpiresAt)
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	task.FinishedAt = fromMillis(endAt)
	return task, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}
