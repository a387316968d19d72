// Package storage defines the worker's audit log of task attempts.
package storage

import (
	"context"
	"time"
)

// Attempt outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeDead      = "dead"
	OutcomeLeaseLost = "lease_lost"
)

// AttemptRecord is one durable worker processing outcome record.
type AttemptRecord struct {
	ID        int64
	TaskID    string
	TaskKind  string
	Consumer  string
	Outcome   string
	Attempt   int
	LastError string
	Duration  time.Duration
	CreatedAt time.Time
}

// AttemptStore persists worker processing attempt records.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt AttemptRecord) error
	ListAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
	PruneAttempts(ctx context.Context, cutoff time.Time) (int64, error)
}
