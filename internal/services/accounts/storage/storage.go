// Package storage defines persistence contracts for the account registry.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/ocfweb/internal/platform/errors"
)

// ErrUsernameTaken is returned when an account or pending request already
// claims a username.
var ErrUsernameTaken = apperrors.New(apperrors.CodeAlreadyExists, "username already taken")

// AccountRecord stores one provisioned account.
type AccountRecord struct {
	Username     string
	RealName     string
	CalnetUID    string
	CallinkOID   string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// PendingRequestRecord stores a request held for staff review.
type PendingRequestRecord struct {
	ID                string
	Username          string
	RealName          string
	CalnetUID         string
	CallinkOID        string
	Email             string
	EncryptedPassword []byte
	Warnings          []string
	CreatedAt         time.Time
}

// Registry persists accounts and pending requests.
type Registry interface {
	AccountsByCalnetUID(ctx context.Context, calnetUID string) ([]string, error)
	AccountsByCallinkOID(ctx context.Context, callinkOID string) ([]string, error)
	// UsernameTaken reports whether an account or pending request holds username.
	UsernameTaken(ctx context.Context, username string) (bool, error)
	CreateAccount(ctx context.Context, account AccountRecord) error
	RecordPendingRequest(ctx context.Context, request PendingRequestRecord) error
	ListPendingRequests(ctx context.Context, limit int) ([]PendingRequestRecord, error)
}
