package service

import (
	"context"
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
	"github.com/smallbiznis/netbill/internal/suspension"
	usagedomain "github.com/smallbiznis/netbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const chargeLockTTL = 30 * time.Second

type service struct {
	db           *gorm.DB
	node         *snowflake.Node
	resellerRepo resellerdomain.Repository
	configRepo   configdomain.Repository
	snapshotRepo usagedomain.SnapshotRepository
	ledgerRepo   ledgerdomain.Repository
	locker       lock.Locker
	holder       *config.BillingConfigHolder
	suspension   *suspension.Controller
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
	Suspension   *suspension.Controller
	Clock        clock.Clock
	Logger       *zap.Logger
}

func New(p Params) billingdomain.Service {
	return &service{
		db:           p.DB,
		node:         p.Node,
		resellerRepo: p.ResellerRepo,
		configRepo:   p.ConfigRepo,
		snapshotRepo: p.SnapshotRepo,
		ledgerRepo:   p.LedgerRepo,
		locker:       p.Locker,
		holder:       p.Holder,
		suspension:   p.Suspension,
		clock:        p.Clock,
		metrics:      metrics.Default(),
		log:          p.Logger.Named("billing"),
	}
}

func (s *service) ChargeReseller(ctx context.Context, resellerID snowflake.ID, opts billingdomain.ChargeOptions) (*billingdomain.ChargeResult, error) {
	if opts.Source == "" {
		opts.Source = billingdomain.SourceManual
	}

	reseller, err := s.resellerRepo.FindByID(ctx, s.db, resellerID)
	if err != nil {
		return nil, err
	}
	if reseller == nil {
		return nil, billingdomain.ErrResellerNotFound
	}

	if reseller.BillingType != resellerdomain.BillingTypeWallet {
		return s.skipped(resellerID, billingdomain.ReasonNotWalletType), nil
	}

	cfg := s.holder.Get()
	if !cfg.ChargeEnabled {
		return s.skipped(resellerID, billingdomain.ReasonFeatureDisabled), nil
	}

	token, ok, err := s.locker.TryLock(ctx, billingdomain.ChargeLockKey(resellerID), chargeLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.skipped(resellerID, billingdomain.ReasonLockContention), nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), billingdomain.ChargeLockKey(resellerID), token); err != nil {
			s.log.Warn("charge lock release failed", zap.Int64("reseller_id", int64(resellerID)), zap.Error(err))
		}
	}()

	now := s.clock.Now()

	latest, err := s.snapshotRepo.Latest(ctx, s.db, resellerID)
	if err != nil {
		return nil, err
	}
	if !opts.Force && latest != nil && now.Sub(latest.MeasuredAt) < cfg.ChargeIdempotencyWindow() {
		return s.skipped(resellerID, billingdomain.ReasonIdempotencyGuard), nil
	}

	total, err := s.configRepo.SumBillableBytes(ctx, s.db, resellerID)
	if err != nil {
		return nil, err
	}

	var baseline int64
	if latest != nil {
		baseline = latest.TotalBytes
	}
	delta := total - baseline
	if delta < 0 {
		// Counters moved backwards, typically a panel-side reset that raced
		// the settlement flow. Never credit the wallet for it.
		s.log.Warn("negative usage delta clamped",
			zap.Int64("reseller_id", int64(resellerID)),
			zap.Int64("total", total),
			zap.Int64("baseline", baseline),
		)
		delta = 0
	}

	if delta < cfg.MinimumDeltaBytes {
		result := s.skipped(resellerID, billingdomain.ReasonNoUsageDelta)
		result.TotalBytes = total
		result.BalanceAfter = reseller.WalletBalance
		// No traffic does not mean solvent. A reseller already at or below
		// the threshold still gets suspended on this pass.
		if reseller.WalletBalance <= cfg.SuspensionThreshold {
			suspended, err := s.suspension.Evaluate(ctx, resellerID)
			if err != nil {
				s.log.Warn("suspension evaluation failed", zap.Int64("reseller_id", int64(resellerID)), zap.Error(err))
			}
			result.Suspended = suspended
		}
		return result, nil
	}

	deltaGB, cost := billingdomain.CostForBytes(delta, reseller.PricePerGB)

	if opts.DryRun {
		s.metrics.IncChargeAttempt(string(billingdomain.StatusDryRun), "")
		return &billingdomain.ChargeResult{
			Status:       billingdomain.StatusDryRun,
			ResellerID:   resellerID,
			TotalBytes:   total,
			DeltaBytes:   delta,
			DeltaGB:      deltaGB,
			Cost:         cost,
			BalanceAfter: reseller.WalletBalance - cost,
		}, nil
	}

	var balanceAfter int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.resellerRepo.FindByID(ctx, tx, resellerID)
		if err != nil {
			return err
		}
		if current == nil {
			return billingdomain.ErrResellerNotFound
		}

		if err := s.resellerRepo.AddWalletBalance(ctx, tx, resellerID, -cost); err != nil {
			return err
		}
		balanceAfter = current.WalletBalance - cost

		entry := &ledgerdomain.WalletLedgerEntry{
			ID:            s.node.Generate(),
			ResellerID:    resellerID,
			ActionType:    ledgerdomain.ActionHourly,
			ChargedBytes:  delta,
			AmountCharged: cost,
			PricePerGB:    current.PricePerGB,
			BalanceBefore: current.WalletBalance,
			BalanceAfter:  balanceAfter,
			Metadata: datatypes.JSONMap{
				"source":      opts.Source,
				"total_bytes": total,
				"delta_gb":    deltaGB,
			},
			CreatedAt: now,
		}
		if err := s.ledgerRepo.Insert(ctx, tx, entry); err != nil {
			return err
		}

		snapshot := &usagedomain.UsageSnapshot{
			ID:                 s.node.Generate(),
			ResellerID:         resellerID,
			TotalBytes:         total,
			MeasuredAt:         now,
			CycleChargeApplied: true,
			DeltaBytes:         delta,
			DeltaGB:            deltaGB,
			Cost:               cost,
			CycleStartedAt:     billingdomain.CycleStart(now, cfg.CycleKeyResolution),
			Source:             opts.Source,
			CreatedAt:          now,
		}
		if err := s.snapshotRepo.Insert(ctx, tx, snapshot); err != nil {
			return err
		}

		return s.configRepo.SetChargedBytesToUsage(ctx, tx, resellerID)
	})
	if err != nil {
		s.metrics.IncChargeAttempt("error", "")
		return nil, err
	}

	s.metrics.IncChargeAttempt(string(billingdomain.StatusCharged), "")
	s.metrics.ObserveCharge(cost, delta)
	s.log.Info("reseller charged",
		zap.Int64("reseller_id", int64(resellerID)),
		zap.Int64("delta_bytes", delta),
		zap.Int64("cost", cost),
		zap.Int64("balance_after", balanceAfter),
		zap.String("source", opts.Source),
	)

	result := &billingdomain.ChargeResult{
		Status:       billingdomain.StatusCharged,
		ResellerID:   resellerID,
		TotalBytes:   total,
		DeltaBytes:   delta,
		DeltaGB:      deltaGB,
		Cost:         cost,
		BalanceAfter: balanceAfter,
	}

	if balanceAfter <= cfg.SuspensionThreshold {
		suspended, err := s.suspension.Evaluate(ctx, resellerID)
		if err != nil {
			s.log.Warn("suspension evaluation failed", zap.Int64("reseller_id", int64(resellerID)), zap.Error(err))
		}
		result.Suspended = suspended
	}

	return result, nil
}

func (s *service) Snapshots(ctx context.Context, resellerID snowflake.ID, limit int) ([]usagedomain.UsageSnapshot, error) {
	return s.snapshotRepo.ListByReseller(ctx, s.db, resellerID, limit)
}

func (s *service) skipped(resellerID snowflake.ID, reason string) *billingdomain.ChargeResult {
	s.metrics.IncChargeAttempt(string(billingdomain.StatusSkipped), reason)
	return &billingdomain.ChargeResult{
		Status:     billingdomain.StatusSkipped,
		Reason:     reason,
		ResellerID: resellerID,
	}
}
