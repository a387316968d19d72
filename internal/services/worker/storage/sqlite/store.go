// Package sqlite provides the SQLite-backed worker attempt log.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/ocfweb/internal/services/worker/storage"
	"github.com/louisbranch/ocfweb/internal/services/worker/storage/sqlite/migrations"
)

// Store provides SQLite-backed worker attempt persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a worker SQLite store and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS, "")
	if err != nil {
		return nil, fmt.Errorf("open worker store: %w", err)
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

// RecordAttempt persists one worker processing attempt.
func (s *Store) RecordAttempt(ctx context.Context, attempt storage.AttemptRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	attempt.TaskID = strings.TrimSpace(attempt.TaskID)
	attempt.TaskKind = strings.TrimSpace(attempt.TaskKind)
	attempt.Consumer = strings.TrimSpace(attempt.Consumer)
	attempt.Outcome = strings.TrimSpace(attempt.Outcome)
	attempt.LastError = strings.TrimSpace(attempt.LastError)
	if attempt.TaskID == "" {
		return fmt.Errorf("task id is required")
	}
	if attempt.TaskKind == "" {
		return fmt.Errorf("task kind is required")
	}
	if attempt.Consumer == "" {
		return fmt.Errorf("consumer is required")
	}
	if attempt.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO worker_attempts (
	task_id,
	task_kind,
	consumer,
	outcome,
	attempt,
	last_error,
	duration_ms,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		attempt.TaskID,
		attempt.TaskKind,
		attempt.Consumer,
		attempt.Outcome,
		attempt.Attempt,
		attempt.LastError,
		attempt.Duration.Milliseconds(),
		attempt.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts lists newest-first attempt records.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]storage.AttemptRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	task_id,
	task_kind,
	consumer,
	outcome,
	attempt,
	last_error,
	duration_ms,
	created_at
FROM worker_attempts
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	records := make([]storage.AttemptRecord, 0, limit)
	for rows.Next() {
		var record storage.AttemptRecord
		var durationMillis, createdAt int64
		if err := rows.Scan(
			&record.ID,
			&record.TaskID,
			&record.TaskKind,
			&record.Consumer,
			&record.Outcome,
			&record.Attempt,
			&record.LastError,
			&durationMillis,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		record.Duration = time.Duration(durationMillis) * time.Millisecond
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return records, nil
}

// PruneAttempts deletes attempts recorded before cutoff.
func (s *Store) PruneAttempts(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM worker_attempts WHERE created_at < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return res.RowsAffected()
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

var _ storage.AttemptStore = (*Store)(nil)
