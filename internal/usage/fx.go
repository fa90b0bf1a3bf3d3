package usage

import (
	"github.com/smallbiznis/netbill/internal/usage/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("usage",
	fx.Provide(repository.Provide),
)
