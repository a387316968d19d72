package register

import (
	"context"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	tqsqlite "github.com/louisbranch/ocfweb/internal/platform/taskqueue/sqlite"
	"github.com/louisbranch/ocfweb/internal/services/directory"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/webctx"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
	webstorage "github.com/louisbranch/ocfweb/internal/services/web/storage"
)

type fakeDirectory struct {
	people map[string]string
	groups []directory.Group
}

func (f fakeDirectory) UserAttrs(_ context.Context, calnetUID string) (map[string]string, error) {
	if _, ok := f.people[calnetUID]; !ok {
		return nil, directory.ErrNotFound
	}
	return map[string]string{"uid": calnetUID}, nil
}

func (f fakeDirectory) NameByCalnetUID(_ context.Context, calnetUID string) (string, error) {
	name, ok := f.people[calnetUID]
	if !ok {
		return "", directory.ErrNotFound
	}
	return name, nil
}

func (f fakeDirectory) GroupsBySignatory(_ context.Context, calnetUID string) ([]directory.Group, error) {
	var out []directory.Group
	for _, group := range f.groups {
		if slices.Contains(group.Signatories, calnetUID) {
			out = append(out, group)
		}
	}
	return out, nil
}

type fakeRegistry struct {
	taken map[string]bool
	byUID map[string][]string
	byOID map[string][]string
}

func (f fakeRegistry) UsernameTaken(_ context.Context, username string) (bool, error) {
	return f.taken[username], nil
}

func (f fakeRegistry) AccountsByCalnetUID(_ context.Context, calnetUID string) ([]string, error) {
	return f.byUID[calnetUID], nil
}

func (f fakeRegistry) AccountsByCallinkOID(_ context.Context, callinkOID string) ([]string, error) {
	return f.byOID[callinkOID], nil
}

type fakeEncrypter struct{}

func (fakeEncrypter) Encrypt(password string) ([]byte, error) {
	return []byte("sealed:" + password), nil
}

type fakeSessions struct {
	mu      sync.Mutex
	session webstorage.Session
	ok      bool
	stored  map[string]string
}

func (f *fakeSessions) Load(*http.Request) (webstorage.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.ok, nil
}

func (f *fakeSessions) SetApproveTaskID(_ context.Context, sessionID string, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = map[string]string{}
	}
	f.stored[sessionID] = taskID
	if f.ok && f.session.ID == sessionID {
		f.session.ApproveTaskID = taskID
	}
	return nil
}

// requireSession stands in for CalNet sign-in: requests carry session when
// ok, and are sent to the login page otherwise.
func requireSession(sessions *fakeSessions) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok, _ := sessions.Load(r)
			if !ok {
				httpx.WriteRedirect(w, r, routepath.CalnetLogin)
				return
			}
			next.ServeHTTP(w, r.WithContext(webctx.WithSession(r.Context(), session)))
		})
	}
}

func openTaskStore(t *testing.T) *tqsqlite.Store {
	t.Helper()
	store, err := tqsqlite.Open(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open task store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// claim takes the next queued task of kind as a test worker.
func claim(t *testing.T, store *tqsqlite.Store, kind string) (*taskqueue.Lease, bool) {
	t.Helper()
	task, ok, err := store.Claim(context.Background(), "test-worker", []string{kind}, time.Now(), time.Minute)
	if err != nil {
		t.Errorf("claim %s: %v", kind, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return taskqueue.NewLease(store, task, "test-worker", nil), true
}

// runWorker completes the next task of kind with the result built from its
// lease, as soon as one is enqueued.
func runWorker(t *testing.T, store *tqsqlite.Store, kind string, finish func(*taskqueue.Lease) error) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			lease, ok := claim(t, store, kind)
			if ok {
				if err := finish(lease); err != nil {
					t.Errorf("finish %s: %v", kind, err)
				}
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Errorf("no %s task was submitted", kind)
	}()
	return done
}
