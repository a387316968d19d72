package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/ocfweb/internal/services/accounts/storage"
)

func TestAccountsByAssociation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mustCreate(t, store, storage.AccountRecord{Username: "jsmith", CalnetUID: "1034192"})
	mustCreate(t, store, storage.AccountRecord{Username: "asmith", CalnetUID: "1034192"})
	mustCreate(t, store, storage.AccountRecord{Username: "ocfclub", CallinkOID: "46130"})

	byUID, err := store.AccountsByCalnetUID(ctx, "1034192")
	if err != nil {
		t.Fatalf("accounts by uid: %v", err)
	}
	if diff := cmp.Diff([]string{"asmith", "jsmith"}, byUID); diff != "" {
		t.Fatalf("accounts by uid mismatch (-want +got):\n%s", diff)
	}
	byOID, err := store.AccountsByCallinkOID(ctx, "46130")
	if err != nil {
		t.Fatalf("accounts by oid: %v", err)
	}
	if diff := cmp.Diff([]string{"ocfclub"}, byOID); diff != "" {
		t.Fatalf("accounts by oid mismatch (-want +got):\n%s", diff)
	}
	none, err := store.AccountsByCallinkOID(ctx, "99999")
	if err != nil {
		t.Fatalf("accounts by unknown oid: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("accounts = %v, want none", none)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	tests := []storage.AccountRecord{
		{Username: " ", CalnetUID: "1", PasswordHash: []byte("h")},
		{Username: "a", PasswordHash: []byte("h")},
		{Username: "a", CalnetUID: "1", CallinkOID: "2", PasswordHash: []byte("h")},
		{Username: "a", CalnetUID: "1"},
	}
	for _, record := range tests {
		if err := store.CreateAccount(ctx, record); err == nil {
			t.Fatalf("create %+v: expected error", record)
		}
	}
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	store := openStore(t)
	mustCreate(t, store, storage.AccountRecord{Username: "jsmith", CalnetUID: "1"})

	err := store.CreateAccount(context.Background(), storage.AccountRecord{
		Username:     "jsmith",
		CalnetUID:    "2",
		PasswordHash: []byte("hash"),
	})
	if !errors.Is(err, storage.ErrUsernameTaken) {
		t.Fatalf("duplicate create = %v, want ErrUsernameTaken", err)
	}
}

func TestUsernameTakenCoversPendingRequests(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	mustCreate(t, store, storage.AccountRecord{Username: "jsmith", CalnetUID: "1"})

	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.RecordPendingRequest(ctx, storage.PendingRequestRecord{
		ID:                "req-1",
		Username:          "coolcat",
		RealName:          "John Smith",
		CalnetUID:         "1",
		Email:             "j@berkeley.edu",
		EncryptedPassword: []byte("sealed"),
		Warnings:          []string{"first warning", "second warning"},
		CreatedAt:         createdAt,
	}); err != nil {
		t.Fatalf("record pending: %v", err)
	}

	for username, want := range map[string]bool{"jsmith": true, "coolcat": true, "free": false} {
		got, err := store.UsernameTaken(ctx, username)
		if err != nil {
			t.Fatalf("username taken %s: %v", username, err)
		}
		if got != want {
			t.Fatalf("UsernameTaken(%q) = %v, want %v", username, got, want)
		}
	}

	pending, err := store.ListPendingRequests(ctx, 5)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	want := []storage.PendingRequestRecord{{
		ID:                "req-1",
		Username:          "coolcat",
		RealName:          "John Smith",
		CalnetUID:         "1",
		Email:             "j@berkeley.edu",
		EncryptedPassword: []byte("sealed"),
		Warnings:          []string{"first warning", "second warning"},
		CreatedAt:         createdAt,
	}}
	if diff := cmp.Diff(want, pending); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}

	err = store.RecordPendingRequest(ctx, storage.PendingRequestRecord{ID: "req-2", Username: "coolcat", EncryptedPassword: []byte("x")})
	if !errors.Is(err, storage.ErrUsernameTaken) {
		t.Fatalf("duplicate pending = %v, want ErrUsernameTaken", err)
	}
}

func TestListPendingRequestsRequiresLimit(t *testing.T) {
	store := openStore(t)
	if _, err := store.ListPendingRequests(context.Background(), 0); err == nil {
		t.Fatal("expected limit error")
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreate(t *testing.T, store *Store, record storage.AccountRecord) {
	t.Helper()
	if record.PasswordHash == nil {
		record.PasswordHash = []byte("hash")
	}
	if record.Email == "" {
		record.Email = record.Username + "@berkeley.edu"
	}
	if err := store.CreateAccount(context.Background(), record); err != nil {
		t.Fatalf("create %s: %v", record.Username, err)
	}
}
