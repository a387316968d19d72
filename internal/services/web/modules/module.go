// Package modules defines web module registry helpers.
package modules

import (
	module "github.com/louisbranch/ocfweb/internal/services/web/module"
	"github.com/louisbranch/ocfweb/internal/services/web/modules/calnet"
	"github.com/louisbranch/ocfweb/internal/services/web/modules/register"
)

// Mount aliases the module mount contract.
type Mount = module.Mount

// Module aliases the module interface contract.
type Module = module.Module

// Dependencies carries what the registry needs to build every module. Each
// module receives only its own config.
type Dependencies struct {
	Shared   module.Dependencies
	Calnet   calnet.Config
	Register register.Config
}
