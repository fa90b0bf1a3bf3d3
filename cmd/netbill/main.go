package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/billing"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	"github.com/smallbiznis/netbill/internal/configaction"
	"github.com/smallbiznis/netbill/internal/ledger"
	"github.com/smallbiznis/netbill/internal/lock"
	"github.com/smallbiznis/netbill/internal/logger"
	"github.com/smallbiznis/netbill/internal/migration"
	"github.com/smallbiznis/netbill/internal/panel"
	"github.com/smallbiznis/netbill/internal/panelconfig"
	"github.com/smallbiznis/netbill/internal/provisioner"
	"github.com/smallbiznis/netbill/internal/reenable"
	"github.com/smallbiznis/netbill/internal/reseller"
	"github.com/smallbiznis/netbill/internal/scheduler"
	"github.com/smallbiznis/netbill/internal/server"
	"github.com/smallbiznis/netbill/internal/settlement"
	"github.com/smallbiznis/netbill/internal/suspension"
	"github.com/smallbiznis/netbill/internal/usage"
	"github.com/smallbiznis/netbill/pkg/db"
	"github.com/smallbiznis/netbill/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,

		// Domains
		panel.Module,
		reseller.Module,
		panelconfig.Module,
		usage.Module,
		ledger.Module,
		provisioner.Module,
		suspension.Module,
		reenable.Module,
		billing.Module,
		settlement.Module,
		configaction.Module,

		// Surfaces
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
