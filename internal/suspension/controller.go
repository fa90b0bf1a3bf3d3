// Package suspension enforces the wallet balance threshold. When a wallet
// reseller's balance is at or below the configured threshold the reseller is
// suspended and every active config is disabled, locally first and then on
// the hosting panels.
package suspension

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	"github.com/smallbiznis/netbill/internal/observability/metrics"
	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Controller struct {
	db           *gorm.DB
	resellerRepo resellerdomain.Repository
	configRepo   configdomain.Repository
	panelRepo    paneldomain.Repository
	provisioner  Provisioner
	holder       *config.BillingConfigHolder
	clock        clock.Clock
	metrics      *metrics.Metrics
	log          *zap.Logger
}

// Provisioner is the subset of panel operations suspension needs.
type Provisioner interface {
	Enable(ctx context.Context, panel paneldomain.Panel, panelUserID string) error
	Disable(ctx context.Context, panel paneldomain.Panel, panelUserID string) error
}

type Params struct {
	fx.In

	DB           *gorm.DB
	ResellerRepo resellerdomain.Repository
	ConfigRepo   configdomain.Repository
	PanelRepo    paneldomain.Repository
	Provisioner  Provisioner
	Holder       *config.BillingConfigHolder
	Clock        clock.Clock
	Logger       *zap.Logger
}

func New(p Params) *Controller {
	return &Controller{
		db:           p.DB,
		resellerRepo: p.ResellerRepo,
		configRepo:   p.ConfigRepo,
		panelRepo:    p.PanelRepo,
		provisioner:  p.Provisioner,
		holder:       p.Holder,
		clock:        p.Clock,
		metrics:      metrics.Default(),
		log:          p.Logger.Named("suspension"),
	}
}

// Evaluate checks the reseller's balance against the threshold and, if
// breached, suspends the reseller and disables its active configs. Returns
// whether the reseller is in a suspended state after evaluation. Panel sync
// failures are logged and do not fail the evaluation; the local state is
// authoritative and the next cycle retries nothing because disabling is
// cycle-scoped, but re-enable sweeps reconcile stragglers.
func (c *Controller) Evaluate(ctx context.Context, resellerID snowflake.ID) (bool, error) {
	reseller, err := c.resellerRepo.FindByID(ctx, c.db, resellerID)
	if err != nil {
		return false, err
	}
	if reseller == nil {
		return false, resellerdomain.ErrNotFound
	}
	if reseller.BillingType != resellerdomain.BillingTypeWallet {
		return false, nil
	}

	cfg := c.holder.Get()
	if reseller.WalletBalance > cfg.SuspensionThreshold {
		return false, nil
	}

	changed, err := c.resellerRepo.UpdateStatus(ctx, c.db, resellerID,
		resellerdomain.StatusActive, resellerdomain.StatusSuspendedWallet)
	if err != nil {
		return false, err
	}
	if changed {
		c.metrics.IncResellerSuspended()
		c.log.Info("reseller suspended",
			zap.Int64("reseller_id", int64(resellerID)),
			zap.Int64("balance", reseller.WalletBalance),
			zap.Int64("threshold", cfg.SuspensionThreshold),
		)
	}

	now := c.clock.Now()
	cycleKey := billingdomain.CycleKey(now, cfg.CycleKeyResolution)

	configs, err := c.configRepo.ListActiveOutsideCycle(ctx, c.db, resellerID, cycleKey)
	if err != nil {
		return true, err
	}

	panels := make(map[snowflake.ID]*paneldomain.Panel)
	for i := range configs {
		cf := &configs[i]
		disabled, err := c.configRepo.MarkDisabledForSuspension(ctx, c.db, cf.ID, resellerID, cycleKey, now)
		if err != nil {
			return true, err
		}
		if !disabled {
			continue
		}
		c.metrics.IncConfigDisabled()

		panel, ok := panels[cf.PanelID]
		if !ok {
			panel, err = c.panelRepo.FindByID(ctx, c.db, cf.PanelID)
			if err != nil || panel == nil {
				c.log.Warn("panel lookup failed for disable",
					zap.Int64("config_id", int64(cf.ID)),
					zap.Int64("panel_id", int64(cf.PanelID)),
					zap.Error(err),
				)
				c.metrics.IncPanelCallFailure("disable")
				continue
			}
			panels[cf.PanelID] = panel
		}

		if err := c.provisioner.Disable(ctx, *panel, cf.PanelUserID); err != nil {
			c.log.Warn("panel disable failed",
				zap.Int64("config_id", int64(cf.ID)),
				zap.String("panel", panel.Name),
				zap.Error(err),
			)
			c.metrics.IncPanelCallFailure("disable")
		}
	}

	return true, nil
}
