package public

import (
	"io"
	"net/http"

	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	apperrors "github.com/louisbranch/ocfweb/internal/services/web/platform/errors"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/weberror"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
	"github.com/louisbranch/ocfweb/internal/services/web/static"
)

type handlers struct {
	deps module.Dependencies
}

func newHandlers(deps module.Dependencies) handlers {
	return handlers{deps: deps}
}

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.Handle("GET "+routepath.Health, http.HandlerFunc(h.handleHealth))
	mux.Handle("GET "+routepath.Static, http.StripPrefix(routepath.Static, http.FileServerFS(static.FS)))
	mux.Handle("GET /{$}", http.HandlerFunc(h.handleRoot))
	mux.Handle("/", http.HandlerFunc(h.handleNotFound))
}

func (h handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, "ok\n")
	}
}

func (h handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	httpx.WriteRedirect(w, r, routepath.Register)
}

func (h handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	weberror.WriteModuleError(w, r, apperrors.E(apperrors.KindNotFound, "route not found"), h.deps)
}
