// Package public serves the unauthenticated root routes: the health probe
// and the landing redirect.
package public

import (
	"net/http"

	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
)

// Module provides the root routes.
type Module struct {
	deps module.Dependencies
}

// New returns the public root module.
func New(deps module.Dependencies) Module {
	return Module{deps: deps}
}

// ID returns a stable identifier for diagnostics and startup logs.
func (Module) ID() string {
	return "public"
}

// Mount wires the root routes.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.deps))
	return module.Mount{Prefix: routepath.Root, Handler: mux}, nil
}
