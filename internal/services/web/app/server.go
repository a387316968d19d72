package app

import (
	"log"
	"net/http"

	"github.com/louisbranch/ocfweb/internal/services/web/platform/httpx"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/observability"
	"github.com/louisbranch/ocfweb/internal/services/web/routepath"
)

// BuildRootHandler composes the module groups and wraps them with the
// request id, panic recovery, and access log middleware.
func BuildRootHandler(cfg Config) (http.Handler, error) {
	root, err := Compose(ComposeInput{
		PublicModules:       cfg.PublicModules,
		AccountModules:      cfg.AccountModules,
		RequestSchemePolicy: cfg.RequestSchemePolicy,
	})
	if err != nil {
		return nil, err
	}
	accessLog := cfg.AccessLog
	if accessLog == nil {
		accessLog = log.Default()
	}
	return httpx.Chain(root,
		httpx.RequestID(),
		observability.RequestLogger(accessLog, routepath.Health),
		httpx.RecoverPanic(),
	), nil
}
