package provisioner

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Provide(log *zap.Logger) Provisioner {
	return NewHTTPProvisioner(log)
}

var Module = fx.Module("provisioner",
	fx.Provide(Provide),
)
