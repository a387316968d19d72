// Package calnet gates registration behind CalNet single sign-on and owns
// the sign-in, callback, and sign-out routes.
package calnet

import (
	"fmt"
	"net/http"
	"time"

	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
	webstorage "github.com/louisbranch/ocfweb/internal/services/web/storage"
)

// Sessions starts and ends signed-in sessions.
type Sessions interface {
	Start(w http.ResponseWriter, r *http.Request, calnetUID string) (webstorage.Session, error)
	End(w http.ResponseWriter, r *http.Request) error
}

// Config wires the sign-in module.
type Config struct {
	Sessions Sessions
	// Authenticator runs the single sign-on flow; nil disables it.
	Authenticator Authenticator
	// StateKey signs the login state token. Required with an Authenticator.
	StateKey []byte
	// DevLogin accepts a typed CalNet UID without single sign-on.
	DevLogin     bool
	Policy       requestmeta.SchemePolicy
	Dependencies module.Dependencies
	Now          func() time.Time
}

// Module provides the CalNet routes.
type Module struct {
	cfg Config
}

// New returns the CalNet sign-in module.
func New(cfg Config) Module {
	return Module{cfg: cfg}
}

// ID returns a stable identifier for diagnostics and startup logs.
func (Module) ID() string {
	return "calnet"
}

// Mount wires the sign-in routes.
func (m Module) Mount() (module.Mount, error) {
	if m.cfg.Sessions == nil {
		return module.Mount{}, fmt.Errorf("session manager is required")
	}
	if m.cfg.Authenticator != nil && len(m.cfg.StateKey) == 0 {
		return module.Mount{}, fmt.Errorf("state signing key is required for single sign-on")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.cfg))
	return module.Mount{Prefix: routepath.CalnetPrefix, Handler: mux}, nil
}
