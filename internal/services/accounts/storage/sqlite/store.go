// Package sqlite provides the SQLite-backed account registry.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/ocfweb/internal/services/accounts/storage"
	"github.com/louisbranch/ocfweb/internal/services/accounts/storage/sqlite/migrations"
)

// warningSeparator joins stored warnings; messages never contain it.
const warningSeparator = "\x1f"

// Store provides SQLite-backed account registry persistence.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Registry = (*Store)(nil)

// Open opens an account registry SQLite store and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS, "")
	if err != nil {
		return nil, fmt.Errorf("open account registry: %w", err)
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

// AccountsByCalnetUID lists usernames owned by a person.
func (s *Store) AccountsByCalnetUID(ctx context.Context, calnetUID string) ([]string, error) {
	calnetUID = strings.TrimSpace(calnetUID)
	if calnetUID == "" {
		return nil, fmt.Errorf("calnet uid is required")
	}
	return s.listUsernames(ctx, "SELECT username FROM accounts WHERE calnet_uid = ? ORDER BY username", calnetUID)
}

// AccountsByCallinkOID lists usernames owned by a group.
func (s *Store) AccountsByCallinkOID(ctx context.Context, callinkOID string) ([]string, error) {
	callinkOID = strings.TrimSpace(callinkOID)
	if callinkOID == "" {
		return nil, fmt.Errorf("callink oid is required")
	}
	return s.listUsernames(ctx, "SELECT username FROM accounts WHERE callink_oid = ? ORDER BY username", callinkOID)
}

// UsernameTaken reports whether an account or pending request holds username.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var taken bool
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM accounts WHERE username = ?)
	OR EXISTS (SELECT 1 FROM pending_requests WHERE username = ?)
`, username, username).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return taken, nil
}

// CreateAccount inserts a provisioned account.
func (s *Store) CreateAccount(ctx context.Context, account storage.AccountRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	account.Username = strings.TrimSpace(account.Username)
	if account.Username == "" {
		return fmt.Errorf("username is required")
	}
	if (account.CalnetUID == "") == (account.CallinkOID == "") {
		return fmt.Errorf("exactly one of calnet uid or callink oid is required")
	}
	if len(account.PasswordHash) == 0 {
		return fmt.Errorf("password hash is required")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO accounts (username, real_name, calnet_uid, callink_oid, email, password_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		account.Username,
		account.RealName,
		account.CalnetUID,
		account.CallinkOID,
		account.Email,
		account.PasswordHash,
		account.CreatedAt.UTC().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return storage.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// RecordPendingRequest stores a request held for staff review.
func (s *Store) RecordPendingRequest(ctx context.Context, request storage.PendingRequestRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	request.ID = strings.TrimSpace(request.ID)
	request.Username = strings.TrimSpace(request.Username)
	if request.ID == "" {
		return fmt.Errorf("request id is required")
	}
	if request.Username == "" {
		return fmt.Errorf("username is required")
	}
	if len(request.EncryptedPassword) == 0 {
		return fmt.Errorf("encrypted password is required")
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO pending_requests (
	id, username, real_name, calnet_uid, callink_oid, email, encrypted_password, warnings, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		request.ID,
		request.Username,
		request.RealName,
		request.CalnetUID,
		request.CallinkOID,
		request.Email,
		request.EncryptedPassword,
		strings.Join(request.Warnings, warningSeparator),
		request.CreatedAt.UTC().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return storage.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("record pending request: %w", err)
	}
	return nil
}

// ListPendingRequests lists oldest-first pending requests.
func (s *Store) ListPendingRequests(ctx context.Context, limit int) ([]storage.PendingRequestRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, username, real_name, calnet_uid, callink_oid, email, encrypted_password, warnings, created_at
FROM pending_requests
ORDER BY created_at, id
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	var records []storage.PendingRequestRecord
	for rows.Next() {
		var (
			record    storage.PendingRequestRecord
			warnings  string
			createdAt int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.Username,
			&record.RealName,
			&record.CalnetUID,
			&record.CallinkOID,
			&record.Email,
			&record.EncryptedPassword,
			&warnings,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		if warnings != "" {
			record.Warnings = strings.Split(warnings, warningSeparator)
		}
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending requests: %w", err)
	}
	return records, nil
}

func (s *Store) listUsernames(ctx context.Context, query string, arg string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		usernames = append(usernames, username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return usernames, nil
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

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
