// Package register serves the account request form, the creation polling
// page, and the username helper endpoints.
package register

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/louisbranch/ocfweb/internal/platform/taskqueue"
	"github.com/louisbranch/ocfweb/internal/platform/timeouts"
	"github.com/louisbranch/ocfweb/internal/services/accounts"
	"github.com/louisbranch/ocfweb/internal/services/directory"
	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
	webstorage "github.com/louisbranch/ocfweb/internal/services/web/storage"
)

// DefaultSubmitWait bounds how long a submission blocks on validation.
const DefaultSubmitWait = timeouts.SubmitWait

// TaskClient submits and looks up queued tasks.
type TaskClient interface {
	Submit(ctx context.Context, kind string, payload any) (*taskqueue.Handle, error)
	Lookup(taskID string) *taskqueue.Handle
}

// Encrypter seals passwords for the worker.
type Encrypter interface {
	Encrypt(password string) ([]byte, error)
}

// Sessions reads sessions and records the task a session waits on.
type Sessions interface {
	Load(r *http.Request) (webstorage.Session, bool, error)
	SetApproveTaskID(ctx context.Context, sessionID string, taskID string) error
}

// Config wires the registration module.
type Config struct {
	Directory directory.Directory
	Registry  accounts.Registry
	Policy    accounts.Policy
	Tasks     TaskClient
	Encrypter Encrypter
	Sessions  Sessions
	// RequireSignIn gates the form behind CalNet sign-in and carries the
	// session in the request context.
	RequireSignIn httpx.Middleware
	SubmitWait    time.Duration
	// RateLimit applies to the recommend and validate endpoints, keyed by
	// client IP.
	RateLimit    httpx.RateLimitConfig
	SchemePolicy requestmeta.SchemePolicy
	Dependencies module.Dependencies
}

// Module provides the registration routes.
type Module struct {
	cfg Config
}

// New returns the registration module.
func New(cfg Config) Module {
	return Module{cfg: cfg}
}

// ID returns a stable identifier for diagnostics and startup logs.
func (Module) ID() string {
	return "register"
}

// Mount wires the registration routes.
func (m Module) Mount() (module.Mount, error) {
	switch {
	case m.cfg.Directory == nil:
		return module.Mount{}, errors.New("directory is required")
	case m.cfg.Registry == nil:
		return module.Mount{}, errors.New("account registry is required")
	case m.cfg.Tasks == nil:
		return module.Mount{}, errors.New("task client is required")
	case m.cfg.Encrypter == nil:
		return module.Mount{}, errors.New("password encrypter is required")
	case m.cfg.Sessions == nil:
		return module.Mount{}, errors.New("session manager is required")
	case m.cfg.RequireSignIn == nil:
		return module.Mount{}, errors.New("sign-in middleware is required")
	}
	submitWait := m.cfg.SubmitWait
	if submitWait <= 0 {
		submitWait = DefaultSubmitWait
	}
	svc := newService(serviceConfig{
		directory:  m.cfg.Directory,
		registry:   m.cfg.Registry,
		policy:     m.cfg.Policy,
		tasks:      m.cfg.Tasks,
		encrypter:  m.cfg.Encrypter,
		sessions:   m.cfg.Sessions,
		submitWait: submitWait,
	})
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(svc, m.cfg))
	return module.Mount{Prefix: routepath.RegisterPrefix, Handler: mux}, nil
}
