// Package composition assembles the web root handler from the module
// registry.
package composition

import (
	"log"
	"net/http"

	webapp "github.com/louisbranch/ocfweb/internal/services/web/app"
	"github.com/louisbranch/ocfweb/internal/services/web/modules"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
)

// ComposeInput describes the contracts needed to compose the application mux.
type ComposeInput struct {
	ModuleDependencies  modules.Dependencies
	RequestSchemePolicy requestmeta.SchemePolicy
	AccessLog           *log.Logger
}

// ComposeAppHandler builds the web app handler with the public and account
// module sets.
func ComposeAppHandler(input ComposeInput) (http.Handler, error) {
	deps := input.ModuleDependencies
	deps.Calnet.Policy = input.RequestSchemePolicy
	deps.Register.SchemePolicy = input.RequestSchemePolicy

	return webapp.BuildRootHandler(webapp.Config{
		PublicModules:       modules.PublicModules(deps),
		AccountModules:      modules.AccountModules(deps),
		RequestSchemePolicy: input.RequestSchemePolicy,
		AccessLog:           input.AccessLog,
	})
}
