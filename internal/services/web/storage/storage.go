// Package storage defines persistence contracts for web sessions.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/ocfweb/internal/platform/errors"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = apperrors.New(apperrors.CodeNotFound, "session not found")

// Session is one signed-in browser session.
type Session struct {
	ID            string
	CalnetUID     string
	ApproveTaskID string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionStore persists web sessions keyed by session id.
type SessionStore interface {
	CreateSession(ctx context.Context, session Session) error
	// GetSession returns ErrSessionNotFound for unknown or expired ids.
	GetSession(ctx context.Context, id string, now time.Time) (Session, error)
	SetApproveTaskID(ctx context.Context, id string, taskID string) error
	DeleteSession(ctx context.Context, id string) error
	// PruneExpired deletes sessions that expired before cutoff.
	PruneExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
