package taskqueue_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	apperrors "github.com/louisbranch/ocfweb/internal/platform/errors"
	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	"github.com/louisbranch/ocfweb/internal/platform/taskqueue/sqlite"
)

type payload struct {
	Username string `json:"username"`
}

type result struct {
	Status string `json:"status"`
}

func TestSubmitEnqueuesEncodedPayload(t *testing.T) {
	store := openStore(t)
	client := taskqueue.NewClient(store, taskqueue.WithIDGenerator(func() (string, error) { return "task-1", nil }))

	handle, err := client.Submit(context.Background(), "account.create", payload{Username: "ggroup"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle.ID() != "task-1" {
		t.Fatalf("id = %q, want task-1", handle.ID())
	}
	task, err := handle.Task(context.Background())
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if string(task.Payload) != `{"username":"ggroup"}` {
		t.Fatalf("payload = %s", task.Payload)
	}
}

func TestSubmitRequiresKind(t *testing.T) {
	client := taskqueue.NewClient(openStore(t))
	if _, err := client.Submit(context.Background(), " ", nil); err == nil {
		t.Fatal("expected kind error")
	}
}

func TestWaitTimesOutOnUnfinishedTask(t *testing.T) {
	client := taskqueue.NewClient(openStore(t), taskqueue.WithPollInterval(5*time.Millisecond))
	handle, err := client.Submit(context.Background(), "account.create", payload{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = handle.Wait(context.Background(), 30*time.Millisecond)
	if !errors.Is(err, taskqueue.ErrWaitTimeout) {
		t.Fatalf("wait = %v, want ErrWaitTimeout", err)
	}
	if !apperrors.HasCode(err, apperrors.CodeTaskWaitTimeout) {
		t.Fatal("expected wait timeout code")
	}
	if err := handle.Result(context.Background(), &result{}); !errors.Is(err, taskqueue.ErrNotReady) {
		t.Fatalf("result = %v, want ErrNotReady", err)
	}
}

func TestWaitReturnsWhenWorkerCompletes(t *testing.T) {
	store := openStore(t)
	client := taskqueue.NewClient(store, taskqueue.WithPollInterval(5*time.Millisecond))
	handle, err := client.Submit(context.Background(), "account.create", payload{Username: "ggroup"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		task, ok, err := store.Claim(context.Background(), "worker", []string{"account.create"}, time.Now(), time.Minute)
		if err != nil || !ok {
			done <- errors.Join(err, errors.New("no claim"))
			return
		}
		lease := taskqueue.NewLease(store, task, "worker", nil)
		var in payload
		if err := lease.Decode(&in); err != nil {
			done <- err
			return
		}
		if err := lease.Progress(context.Background(), "Creating "+in.Username); err != nil {
			done <- err
			return
		}
		done <- lease.Complete(context.Background(), result{Status: "created"})
	}()

	if err := handle.Wait(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("worker: %v", err)
	}

	var out result
	if err := handle.Result(context.Background(), &out); err != nil {
		t.Fatalf("result: %v", err)
	}
	if out.Status != "created" {
		t.Fatalf("status = %q, want created", out.Status)
	}
	progress, err := handle.Progress(context.Background())
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if diff := cmp.Diff([]string{"Creating ggroup"}, progress); diff != "" {
		t.Fatalf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestResultReportsFailure(t *testing.T) {
	store := openStore(t)
	client := taskqueue.NewClient(store)
	handle, err := client.Submit(context.Background(), "account.create", payload{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	task, _, err := store.Claim(context.Background(), "worker", []string{"account.create"}, time.Now(), time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := taskqueue.NewLease(store, task, "worker", nil).Fail(context.Background(), "ldap unreachable"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	ready, err := handle.Ready(context.Background())
	if err != nil || !ready {
		t.Fatalf("ready = %v, %v", ready, err)
	}
	err = handle.Result(context.Background(), &result{})
	var failed *taskqueue.FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("result = %v, want FailedError", err)
	}
	if failed.Message != "ldap unreachable" {
		t.Fatalf("message = %q", failed.Message)
	}
	if !apperrors.HasCode(err, apperrors.CodeTaskFailed) {
		t.Fatal("expected failed code")
	}
}

func TestLookupUnknownTask(t *testing.T) {
	client := taskqueue.NewClient(openStore(t))
	if _, err := client.Lookup("missing").Ready(context.Background()); !errors.Is(err, taskqueue.ErrNotFound) {
		t.Fatalf("ready = %v, want ErrNotFound", err)
	}
	if _, err := client.Lookup("").Progress(context.Background()); !errors.Is(err, taskqueue.ErrNotFound) {
		t.Fatalf("progress = %v, want ErrNotFound", err)
	}
}

func TestStateFinished(t *testing.T) {
	for state, want := range map[taskqueue.State]bool{
		taskqueue.StateQueued:    false,
		taskqueue.StateRunning:   false,
		taskqueue.StateSucceeded: true,
		taskqueue.StateFailed:    true,
	} {
		if got := state.Finished(); got != want {
			t.Fatalf("%s.Finished() = %v, want %v", state, got, want)
		}
	}
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
