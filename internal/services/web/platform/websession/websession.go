// Package websession manages signed-in browser sessions backed by the web
// session store and the session cookie.
package websession

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/id"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/webctx"
	webstorage "github.com/louisbranch/ocfweb/internal/services/web/storage"
)

// DefaultTTL bounds a session when no TTL is configured.
const DefaultTTL = 2 * time.Hour

// Config tunes session lifetime and cookie policy.
type Config struct {
	TTL    time.Duration
	Policy requestmeta.SchemePolicy
	Now    func() time.Time
	NewID  func() (string, error)
}

// Manager starts, loads, and ends sessions.
type Manager struct {
	store  webstorage.SessionStore
	ttl    time.Duration
	policy requestmeta.SchemePolicy
	now    func() time.Time
	newID  func() (string, error)
}

// NewManager builds a session manager over store.
func NewManager(store webstorage.SessionStore, cfg Config) *Manager {
	m := &Manager{
		store:  store,
		ttl:    cfg.TTL,
		policy: cfg.Policy,
		now:    cfg.Now,
		newID:  cfg.NewID,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = id.NewID
	}
	return m
}

// Start creates a session for calnetUID and sets the session cookie. Any
// session already carried by the request is ended first.
func (m *Manager) Start(w http.ResponseWriter, r *http.Request, calnetUID string) (webstorage.Session, error) {
	calnetUID = strings.TrimSpace(calnetUID)
	if calnetUID == "" {
		return webstorage.Session{}, errors.New("calnet uid is required")
	}
	ctx := httpx.RequestContext(r)
	if previous, ok := sessioncookie.Read(r); ok {
		if err := m.store.DeleteSession(ctx, previous); err != nil {
			log.Printf("end previous session: %v", err)
		}
	}
	sessionID, err := m.newID()
	if err != nil {
		return webstorage.Session{}, err
	}
	now := m.now().UTC()
	session := webstorage.Session{
		ID:        sessionID,
		CalnetUID: calnetUID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return webstorage.Session{}, err
	}
	sessioncookie.Write(w, r, sessionID, m.ttl, m.policy)
	return session, nil
}

// Load returns the live session named by the request cookie.
func (m *Manager) Load(r *http.Request) (webstorage.Session, bool, error) {
	if session, ok := webctx.Session(httpx.RequestContext(r)); ok {
		return session, true, nil
	}
	sessionID, ok := sessioncookie.Read(r)
	if !ok {
		return webstorage.Session{}, false, nil
	}
	session, err := m.store.GetSession(httpx.RequestContext(r), sessionID, m.now())
	if errors.Is(err, webstorage.ErrSessionNotFound) {
		return webstorage.Session{}, false, nil
	}
	if err != nil {
		return webstorage.Session{}, false, err
	}
	return session, true, nil
}

// SignedIn reports whether the request carries a live session. Store errors
// count as signed out.
func (m *Manager) SignedIn(r *http.Request) bool {
	_, ok, err := m.Load(r)
	return err == nil && ok
}

// SetApproveTaskID records the creation task the session waits on.
func (m *Manager) SetApproveTaskID(ctx context.Context, sessionID string, taskID string) error {
	return m.store.SetApproveTaskID(ctx, sessionID, taskID)
}

// End deletes the request session and clears the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	sessioncookie.Clear(w, r, m.policy)
	sessionID, ok := sessioncookie.Read(r)
	if !ok {
		return nil
	}
	return m.store.DeleteSession(httpx.RequestContext(r), sessionID)
}

// Require redirects requests without a live session to loginPath with a
// next parameter, and carries the session in the request context otherwise.
func (m *Manager) Require(loginPath string, onError func(http.ResponseWriter, *http.Request, error)) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok, err := m.Load(r)
			if err != nil {
				if onError != nil {
					onError(w, r, err)
					return
				}
				httpx.WriteError(w, err)
				return
			}
			if !ok {
				httpx.WriteRedirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()))
				return
			}
			next.ServeHTTP(w, r.WithContext(webctx.WithSession(r.Context(), session)))
		})
	}
}

// Prune deletes sessions that already expired.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	return m.store.PruneExpired(ctx, m.now())
}
