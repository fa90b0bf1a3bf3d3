package reseller

import (
	"github.com/smallbiznis/netbill/internal/reseller/repository"
	"github.com/smallbiznis/netbill/internal/reseller/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reseller",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
