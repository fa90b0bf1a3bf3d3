package suspension

import (
	"github.com/smallbiznis/netbill/internal/provisioner"
	"go.uber.org/fx"
)

var Module = fx.Module("suspension",
	fx.Provide(
		func(p provisioner.Provisioner) Provisioner { return p },
		New,
	),
)
