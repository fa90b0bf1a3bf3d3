// Package configaction runs the destructive config flows. Both flows settle
// outstanding usage first, mutate the local row second and sync the panel
// last; the panel call is best effort and its outcome is reported, not
// retried inline.
package configaction

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/observability/metrics"
	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	"github.com/smallbiznis/netbill/internal/provisioner"
	"github.com/smallbiznis/netbill/internal/settlement"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrSettlementInProgress = errors.New("settlement_in_progress")

type Result struct {
	Settlement *settlement.Result `json:"settlement"`
	// RemoteSync reports whether the hosting panel acknowledged the action.
	// The local database is already mutated either way.
	RemoteSync bool `json:"remote_sync"`
}

type Service struct {
	db          *gorm.DB
	configRepo  configdomain.Repository
	panelRepo   paneldomain.Repository
	settlement  *settlement.Service
	provisioner provisioner.Provisioner
	clock       clock.Clock
	metrics     *metrics.Metrics
	log         *zap.Logger
}

type Params struct {
	fx.In

	DB          *gorm.DB
	ConfigRepo  configdomain.Repository
	PanelRepo   paneldomain.Repository
	Settlement  *settlement.Service
	Provisioner provisioner.Provisioner
	Clock       clock.Clock
	Logger      *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		db:          p.DB,
		configRepo:  p.ConfigRepo,
		panelRepo:   p.PanelRepo,
		settlement:  p.Settlement,
		provisioner: p.Provisioner,
		clock:       p.Clock,
		metrics:     metrics.Default(),
		log:         p.Logger.Named("configaction"),
	}
}

var Module = fx.Module("configaction",
	fx.Provide(New),
)

// Get returns the config, tombstoned rows included, so a deleted config's
// final usage stays readable for audit.
func (s *Service) Get(ctx context.Context, configID snowflake.ID) (*configdomain.Config, error) {
	cfg, err := s.configRepo.FindByIDIncludingDeleted(ctx, s.db, configID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, configdomain.ErrNotFound
	}
	return cfg, nil
}

// ResetTraffic settles the config's outstanding usage, zeroes the local
// counter and asks the panel to reset its counter too.
func (s *Service) ResetTraffic(ctx context.Context, configID snowflake.ID) (*Result, error) {
	res, cfg, err := s.settle(ctx, configID, configdomain.SettlementActionResetTraffic)
	if err != nil {
		return nil, err
	}

	if err := s.configRepo.ResetUsage(ctx, s.db, configID); err != nil {
		return nil, err
	}

	result := &Result{Settlement: res}
	result.RemoteSync = s.syncPanel(ctx, cfg, "reset", func(ctx context.Context, panel paneldomain.Panel) error {
		return s.provisioner.ResetTraffic(ctx, panel, cfg.PanelUserID)
	})
	return result, nil
}

// DeleteConfig settles the config's outstanding usage, tombstones the local
// row and removes the account from the panel. The tombstone keeps usage
// figures for audit while excluding them from future aggregation.
func (s *Service) DeleteConfig(ctx context.Context, configID snowflake.ID) (*Result, error) {
	res, cfg, err := s.settle(ctx, configID, configdomain.SettlementActionDeleteConfig)
	if err != nil {
		return nil, err
	}

	if err := s.configRepo.SoftDelete(ctx, s.db, configID, s.clock.Now()); err != nil {
		return nil, err
	}

	result := &Result{Settlement: res}
	result.RemoteSync = s.syncPanel(ctx, cfg, "remove", func(ctx context.Context, panel paneldomain.Panel) error {
		return s.provisioner.Remove(ctx, panel, cfg.PanelUserID)
	})
	return result, nil
}

func (s *Service) settle(ctx context.Context, configID snowflake.ID, action configdomain.SettlementAction) (*settlement.Result, *configdomain.Config, error) {
	cfg, err := s.configRepo.FindByID(ctx, s.db, configID)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		return nil, nil, configdomain.ErrNotFound
	}

	res, err := s.settlement.FinalSettlementForConfig(ctx, configID, action)
	if err != nil {
		return nil, nil, err
	}
	// Another settlement holds the lock right now. Proceeding would destroy
	// usage the concurrent run is about to bill, so the caller retries.
	if res.Status == billingdomain.StatusSkipped && res.Reason == billingdomain.ReasonLockContention {
		return nil, nil, ErrSettlementInProgress
	}
	return res, cfg, nil
}

func (s *Service) syncPanel(ctx context.Context, cfg *configdomain.Config, op string, call func(ctx context.Context, panel paneldomain.Panel) error) bool {
	panel, err := s.panelRepo.FindByID(ctx, s.db, cfg.PanelID)
	if err != nil || panel == nil {
		s.log.Warn("panel lookup failed",
			zap.Int64("config_id", int64(cfg.ID)),
			zap.Int64("panel_id", int64(cfg.PanelID)),
			zap.String("op", op),
			zap.Error(err),
		)
		s.metrics.IncPanelCallFailure(op)
		return false
	}

	if err := call(ctx, *panel); err != nil {
		s.log.Warn("panel sync failed",
			zap.Int64("config_id", int64(cfg.ID)),
			zap.String("panel", panel.Name),
			zap.String("op", op),
			zap.Error(err),
		)
		s.metrics.IncPanelCallFailure(op)
		return false
	}
	return true
}
