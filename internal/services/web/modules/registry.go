package modules

import (
	"github.com/louisbranch/ocfweb/internal/services/web/modules/calnet"
	"github.com/louisbranch/ocfweb/internal/services/web/modules/public"
	"github.com/louisbranch/ocfweb/internal/services/web/modules/register"
)

// PublicModules returns modules served outside the account area.
func PublicModules(deps Dependencies) []Module {
	calnetCfg := deps.Calnet
	calnetCfg.Dependencies = deps.Shared
	return []Module{
		public.New(deps.Shared),
		calnet.New(calnetCfg),
	}
}

// AccountModules returns modules mounted under /account/.
func AccountModules(deps Dependencies) []Module {
	registerCfg := deps.Register
	registerCfg.Dependencies = deps.Shared
	return []Module{
		register.New(registerCfg),
	}
}
