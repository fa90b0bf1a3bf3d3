// Package settlement bills the not-yet-charged remainder of a config before
// a destructive action wipes or removes its usage counter. Reset and delete
// flows must settle first or the unbilled tail of traffic is lost.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"github.com/smallbiznis/netbill/internal/lock"
	"github.com/smallbiznis/netbill/internal/observability/metrics"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	usagedomain "github.com/smallbiznis/netbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const settlementLockTTL = 30 * time.Second

type Result struct {
	Status billingdomain.ChargeStatus    `json:"status"`
	Reason string                        `json:"reason,omitempty"`
	Action configdomain.SettlementAction `json:"action"`

	ConfigID         snowflake.ID `json:"config_id"`
	ResellerID       snowflake.ID `json:"reseller_id"`
	OutstandingBytes int64        `json:"outstanding_bytes"`
	DeltaGB          int64        `json:"delta_gb"`
	Cost             int64        `json:"cost"`
	BalanceAfter     int64        `json:"balance_after"`
}

type Service struct {
	db           *gorm.DB
	node         *snowflake.Node
	resellerRepo resellerdomain.Repository
	configRepo   configdomain.Repository
	snapshotRepo usagedomain.SnapshotRepository
	ledgerRepo   ledgerdomain.Repository
	locker       lock.Locker
	holder       *config.BillingConfigHolder
	clock        clock.Clock
	metrics      *metrics.Metrics
	log          *zap.Logger
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Node         *snowflake.Node
	ResellerRepo resellerdomain.Repository
	ConfigRepo   configdomain.Repository
	SnapshotRepo usagedomain.SnapshotRepository
	LedgerRepo   ledgerdomain.Repository
	Locker       lock.Locker
	Holder       *config.BillingConfigHolder
	Clock        clock.Clock
	Logger       *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		db:           p.DB,
		node:         p.Node,
		resellerRepo: p.ResellerRepo,
		configRepo:   p.ConfigRepo,
		snapshotRepo: p.SnapshotRepo,
		ledgerRepo:   p.LedgerRepo,
		locker:       p.Locker,
		holder:       p.Holder,
		clock:        p.Clock,
		metrics:      metrics.Default(),
		log:          p.Logger.Named("settlement"),
	}
}

var Module = fx.Module("settlement",
	fx.Provide(New),
)

func settlementLockKey(configID snowflake.ID) string {
	return fmt.Sprintf("netbill:settle:%d", configID)
}

// FinalSettlementForConfig charges the outstanding portion of the config's
// current usage counter, writes the ledger and snapshot rows and stamps the
// settlement on the config. It does not perform the destructive action
// itself; config flows call it first and proceed only on success.
//
// Settlement holds two leases: its own per-config lock against concurrent
// settlements, and the reseller's charge lock so an hourly charge cannot
// advance charged_bytes between the outstanding computation and the commit.
// The config row is re-read only after both locks are held; the pre-lock
// read may predate a charge that already billed these bytes.
func (s *Service) FinalSettlementForConfig(ctx context.Context, configID snowflake.ID, action configdomain.SettlementAction) (*Result, error) {
	cfg, err := s.configRepo.FindByID(ctx, s.db, configID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, configdomain.ErrNotFound
	}

	reseller, err := s.resellerRepo.FindByID(ctx, s.db, cfg.ResellerID)
	if err != nil {
		return nil, err
	}
	if reseller == nil {
		return nil, resellerdomain.ErrNotFound
	}

	result := &Result{
		Action:     action,
		ConfigID:   configID,
		ResellerID: cfg.ResellerID,
	}

	if reseller.BillingType != resellerdomain.BillingTypeWallet {
		result.Status = billingdomain.StatusSkipped
		result.Reason = billingdomain.ReasonNotWalletType
		s.metrics.IncSettlement(string(action), string(billingdomain.StatusSkipped))
		return result, nil
	}

	billing := s.holder.Get()

	token, ok, err := s.locker.TryLock(ctx, settlementLockKey(configID), settlementLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		result.Status = billingdomain.StatusSkipped
		result.Reason = billingdomain.ReasonLockContention
		s.metrics.IncSettlement(string(action), string(billingdomain.StatusSkipped))
		return result, nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), settlementLockKey(configID), token); err != nil {
			s.log.Warn("settlement lock release failed", zap.Int64("config_id", int64(configID)), zap.Error(err))
		}
	}()

	chargeToken, ok, err := s.locker.TryLock(ctx, billingdomain.ChargeLockKey(cfg.ResellerID), settlementLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		result.Status = billingdomain.StatusSkipped
		result.Reason = billingdomain.ReasonLockContention
		s.metrics.IncSettlement(string(action), string(billingdomain.StatusSkipped))
		return result, nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), billingdomain.ChargeLockKey(cfg.ResellerID), chargeToken); err != nil {
			s.log.Warn("charge lock release failed", zap.Int64("reseller_id", int64(cfg.ResellerID)), zap.Error(err))
		}
	}()

	now := s.clock.Now()

	cfg, err = s.configRepo.FindByID(ctx, s.db, configID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, configdomain.ErrNotFound
	}
	reseller, err = s.resellerRepo.FindByID(ctx, s.db, cfg.ResellerID)
	if err != nil {
		return nil, err
	}
	if reseller == nil {
		return nil, resellerdomain.ErrNotFound
	}

	if cfg.LastSettlementAt != nil &&
		cfg.LastSettlementAction == string(action) &&
		now.Sub(*cfg.LastSettlementAt) < billing.SettlementIdempotencyWindow() {
		result.Status = billingdomain.StatusSkipped
		result.Reason = billingdomain.ReasonIdempotencyGuard
		s.metrics.IncSettlement(string(action), string(billingdomain.StatusSkipped))
		return result, nil
	}

	outstanding := cfg.UsageBytes - cfg.ChargedBytes
	if outstanding < 0 {
		outstanding = 0
	}

	if outstanding == 0 {
		// Nothing left to bill, but the attempt still stamps the config so a
		// double-submitted destructive action stays within the window guard.
		if err := s.configRepo.RecordSettlementAttempt(ctx, s.db, configID, action, now); err != nil {
			return nil, err
		}
		result.Status = billingdomain.StatusSkipped
		result.Reason = billingdomain.ReasonNoOutstandingUsage
		result.BalanceAfter = reseller.WalletBalance
		s.metrics.IncSettlement(string(action), string(billingdomain.StatusSkipped))
		return result, nil
	}

	deltaGB, cost := billingdomain.CostForBytes(outstanding, reseller.PricePerGB)

	var balanceAfter int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.resellerRepo.FindByID(ctx, tx, cfg.ResellerID)
		if err != nil {
			return err
		}
		if current == nil {
			return resellerdomain.ErrNotFound
		}

		if err := s.resellerRepo.AddWalletBalance(ctx, tx, cfg.ResellerID, -cost); err != nil {
			return err
		}
		balanceAfter = current.WalletBalance - cost

		cid := configID
		entry := &ledgerdomain.WalletLedgerEntry{
			ID:            s.node.Generate(),
			ResellerID:    cfg.ResellerID,
			ConfigID:      &cid,
			ActionType:    ledgerdomain.ActionType(action),
			ChargedBytes:  outstanding,
			AmountCharged: cost,
			PricePerGB:    current.PricePerGB,
			BalanceBefore: current.WalletBalance,
			BalanceAfter:  balanceAfter,
			Metadata: datatypes.JSONMap{
				"config_name": cfg.Name,
				"usage_bytes": cfg.UsageBytes,
				"delta_gb":    deltaGB,
			},
			CreatedAt: now,
		}
		if err := s.ledgerRepo.Insert(ctx, tx, entry); err != nil {
			return err
		}

		latest, err := s.snapshotRepo.Latest(ctx, tx, cfg.ResellerID)
		if err != nil {
			return err
		}
		var baseline int64
		if latest != nil {
			baseline = latest.TotalBytes
		}

		// The new baseline advances by what was just billed, minus the bytes
		// a delete removes from the aggregate entirely. Sibling configs'
		// unbilled growth stays billable on the next hourly pass.
		var removed int64
		if action == configdomain.SettlementActionDeleteConfig {
			removed = cfg.TotalBillableBytes()
		}
		snapshot := &usagedomain.UsageSnapshot{
			ID:                 s.node.Generate(),
			ResellerID:         cfg.ResellerID,
			TotalBytes:         baseline + outstanding - removed,
			MeasuredAt:         now,
			CycleChargeApplied: false,
			DeltaBytes:         outstanding,
			DeltaGB:            deltaGB,
			Cost:               cost,
			CycleStartedAt:     billingdomain.CycleStart(now, billing.CycleKeyResolution),
			Source:             string(action),
			CreatedAt:          now,
		}
		if err := s.snapshotRepo.Insert(ctx, tx, snapshot); err != nil {
			return err
		}

		// A delete leaves every counter in place on the soon-to-be tombstoned
		// row, so the final usage and how much of it was hourly-billed stay
		// readable. Only a reset folds and zeroes.
		if action == configdomain.SettlementActionDeleteConfig {
			return s.configRepo.RecordSettlementAttempt(ctx, tx, configID, action, now)
		}
		return s.configRepo.SettleForReset(ctx, tx, configID, action, now)
	})
	if err != nil {
		s.metrics.IncSettlement(string(action), "error")
		return nil, err
	}

	s.metrics.IncSettlement(string(action), string(billingdomain.StatusCharged))
	s.log.Info("config settled",
		zap.Int64("config_id", int64(configID)),
		zap.String("action", string(action)),
		zap.Int64("outstanding_bytes", outstanding),
		zap.Int64("cost", cost),
		zap.Int64("balance_after", balanceAfter),
	)

	result.Status = billingdomain.StatusCharged
	result.OutstandingBytes = outstanding
	result.DeltaGB = deltaGB
	result.Cost = cost
	result.BalanceAfter = balanceAfter
	return result, nil
}
