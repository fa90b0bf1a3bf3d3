package panelconfig

import (
	"github.com/smallbiznis/netbill/internal/panelconfig/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("panelconfig",
	fx.Provide(repository.Provide),
)
