package app

import (
	"log"

	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	"github.com/louisbranch/ocfweb/internal/services/web/platform/requestmeta"
)

// Config captures the composition inputs for the web root handler.
type Config struct {
	PublicModules       []module.Module
	AccountModules      []module.Module
	RequestSchemePolicy requestmeta.SchemePolicy
	// AccessLog receives one line per request; nil uses the standard logger.
	AccessLog *log.Logger
}
