package panel

import (
	"github.com/smallbiznis/netbill/internal/panel/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("panel",
	fx.Provide(repository.Provide),
)
