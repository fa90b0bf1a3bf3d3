// Package reenable reactivates configs that wallet suspension disabled once
// the owning reseller is back in good standing.
package reenable

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/config"
	"github.com/smallbiznis/netbill/internal/observability/metrics"
	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	"github.com/smallbiznis/netbill/internal/provisioner"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Orchestrator struct {
	db           *gorm.DB
	resellerRepo resellerdomain.Repository
	configRepo   configdomain.Repository
	panelRepo    paneldomain.Repository
	provisioner  provisioner.Provisioner
	holder       *config.BillingConfigHolder
	metrics      *metrics.Metrics
	log          *zap.Logger
}

type Params struct {
	fx.In

	DB           *gorm.DB
	ResellerRepo resellerdomain.Repository
	ConfigRepo   configdomain.Repository
	PanelRepo    paneldomain.Repository
	Provisioner  provisioner.Provisioner
	Holder       *config.BillingConfigHolder
	Logger       *zap.Logger
}

func New(p Params) *Orchestrator {
	return &Orchestrator{
		db:           p.DB,
		resellerRepo: p.ResellerRepo,
		configRepo:   p.ConfigRepo,
		panelRepo:    p.PanelRepo,
		provisioner:  p.Provisioner,
		holder:       p.Holder,
		metrics:      metrics.Default(),
		log:          p.Logger.Named("reenable"),
	}
}

var Module = fx.Module("reenable",
	fx.Provide(New),
)

// ReenableWalletSuspendedConfigs re-activates every config the reseller lost
// to wallet suspension. Manually disabled configs are untouched. The panel is
// enabled first and the local row only flips after the panel confirms, so a
// failed panel call leaves the config for the next sweep. Per-config failures
// are counted, not returned.
func (o *Orchestrator) ReenableWalletSuspendedConfigs(ctx context.Context, resellerID snowflake.ID) (enabled, failed int, err error) {
	cfg := o.holder.Get()
	if !cfg.AutoReenableEnabled {
		return 0, 0, nil
	}

	reseller, err := o.resellerRepo.FindByID(ctx, o.db, resellerID)
	if err != nil {
		return 0, 0, err
	}
	if reseller == nil {
		return 0, 0, resellerdomain.ErrNotFound
	}
	if reseller.Status != resellerdomain.StatusActive {
		return 0, 0, nil
	}

	configs, err := o.configRepo.ListWalletSuspended(ctx, o.db, resellerID)
	if err != nil {
		return 0, 0, err
	}

	panels := make(map[snowflake.ID]*paneldomain.Panel)
	for i := range configs {
		cf := &configs[i]

		panel, ok := panels[cf.PanelID]
		if !ok {
			panel, err = o.panelRepo.FindByID(ctx, o.db, cf.PanelID)
			if err != nil || panel == nil {
				o.log.Warn("panel lookup failed for reenable",
					zap.Int64("config_id", int64(cf.ID)),
					zap.Int64("panel_id", int64(cf.PanelID)),
					zap.Error(err),
				)
				o.metrics.IncConfigReenabled("failed")
				failed++
				continue
			}
			panels[cf.PanelID] = panel
		}

		if err := o.provisioner.Enable(ctx, *panel, cf.PanelUserID); err != nil {
			o.log.Warn("panel enable failed",
				zap.Int64("config_id", int64(cf.ID)),
				zap.String("panel", panel.Name),
				zap.Error(err),
			)
			o.metrics.IncPanelCallFailure("enable")
			o.metrics.IncConfigReenabled("failed")
			failed++
			continue
		}

		if err := o.configRepo.MarkReenabled(ctx, o.db, cf.ID); err != nil {
			o.log.Error("config reenable write failed",
				zap.Int64("config_id", int64(cf.ID)),
				zap.Error(err),
			)
			o.metrics.IncConfigReenabled("failed")
			failed++
			continue
		}

		o.metrics.IncConfigReenabled("enabled")
		enabled++
	}

	if enabled > 0 || failed > 0 {
		o.log.Info("reenable sweep finished",
			zap.Int64("reseller_id", int64(resellerID)),
			zap.Int("enabled", enabled),
			zap.Int("failed", failed),
		)
	}
	return enabled, failed, nil
}
