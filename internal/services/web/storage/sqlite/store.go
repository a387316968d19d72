// Package sqlite provides the SQLite-backed web session store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/storage/sqlitemigrate"
	webstorage "github.com/louisbranch/ocfweb/internal/services/web/storage"
	"github.com/louisbranch/ocfweb/internal/services/web/storage/sqlite/migrations"
)

// Store provides SQLite-backed persistence for web sessions.
type Store struct {
	sqlDB *sql.DB
}

var _ webstorage.SessionStore = (*Store)(nil)

// Open opens and migrates a web session SQLite store.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS, "")
	if err != nil {
		return nil, fmt.Errorf("open web session store: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, session webstorage.Session) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	session.ID = strings.TrimSpace(session.ID)
	session.CalnetUID = strings.TrimSpace(session.CalnetUID)
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if session.CalnetUID == "" {
		return fmt.Errorf("calnet uid is required")
	}
	if session.ExpiresAt.IsZero() {
		return fmt.Errorf("session expiry is required")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO web_sessions (id, calnet_uid, approve_task_id, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)
`,
		session.ID,
		session.CalnetUID,
		strings.TrimSpace(session.ApproveTaskID),
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads a live session by id.
func (s *Store) GetSession(ctx context.Context, id string, now time.Time) (webstorage.Session, error) {
	if err := s.ready(ctx); err != nil {
		return webstorage.Session{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return webstorage.Session{}, webstorage.ErrSessionNotFound
	}

	var (
		session   webstorage.Session
		createdAt int64
		expiresAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, calnet_uid, approve_task_id, created_at, expires_at
FROM web_sessions
WHERE id = ?
`, id).Scan(&session.ID, &session.CalnetUID, &session.ApproveTaskID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return webstorage.Session{}, webstorage.ErrSessionNotFound
	}
	if err != nil {
		return webstorage.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	if session.Expired(now) {
		return webstorage.Session{}, webstorage.ErrSessionNotFound
	}
	return session, nil
}

// SetApproveTaskID records the account creation task the session waits on.
func (s *Store) SetApproveTaskID(ctx context.Context, id string, taskID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE web_sessions SET approve_task_id = ? WHERE id = ?`,
		strings.TrimSpace(taskID),
		strings.TrimSpace(id),
	)
	if err != nil {
		return fmt.Errorf("set approve task id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set approve task id: %w", err)
	}
	if n == 0 {
		return webstorage.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session. Unknown ids are not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM web_sessions WHERE id = ?`, strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PruneExpired deletes sessions that expired before cutoff.
func (s *Store) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM web_sessions WHERE expires_at <= ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
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

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
