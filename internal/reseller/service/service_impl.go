package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"github.com/smallbiznis/netbill/internal/reenable"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db         *gorm.DB
	node       *snowflake.Node
	repo       resellerdomain.Repository
	ledgerRepo ledgerdomain.Repository
	holder     *config.BillingConfigHolder
	reenable   *reenable.Orchestrator
	clock      clock.Clock
	log        *zap.Logger
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Node       *snowflake.Node
	Repo       resellerdomain.Repository
	LedgerRepo ledgerdomain.Repository
	Holder     *config.BillingConfigHolder
	Reenable   *reenable.Orchestrator
	Clock      clock.Clock
	Logger     *zap.Logger
}

func New(p Params) resellerdomain.Service {
	return &service{
		db:         p.DB,
		node:       p.Node,
		repo:       p.Repo,
		ledgerRepo: p.LedgerRepo,
		holder:     p.Holder,
		reenable:   p.Reenable,
		clock:      p.Clock,
		log:        p.Logger.Named("reseller"),
	}
}

func (s *service) Create(ctx context.Context, reseller *resellerdomain.Reseller) error {
	if reseller.ID == 0 {
		reseller.ID = s.node.Generate()
	}
	if reseller.BillingType == "" {
		reseller.BillingType = resellerdomain.BillingTypeWallet
	}
	if reseller.Status == "" {
		reseller.Status = resellerdomain.StatusActive
	}
	now := s.clock.Now()
	reseller.CreatedAt = now
	reseller.UpdatedAt = now
	return s.repo.Insert(ctx, s.db, reseller)
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*resellerdomain.Reseller, error) {
	reseller, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if reseller == nil {
		return nil, resellerdomain.ErrNotFound
	}
	return reseller, nil
}

func (s *service) TopUp(ctx context.Context, id snowflake.ID, amount int64) (*resellerdomain.TopUpResult, error) {
	if amount <= 0 {
		return nil, resellerdomain.ErrInvalidAmount
	}

	var result resellerdomain.TopUpResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reseller, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if reseller == nil {
			return resellerdomain.ErrNotFound
		}

		if err := s.repo.AddWalletBalance(ctx, tx, id, amount); err != nil {
			return err
		}

		result = resellerdomain.TopUpResult{
			ResellerID:    id,
			Amount:        amount,
			BalanceBefore: reseller.WalletBalance,
			BalanceAfter:  reseller.WalletBalance + amount,
			Status:        reseller.Status,
		}

		// Credits are negative charges in the ledger, so summing
		// amount_charged over any period nets out to revenue.
		entry := &ledgerdomain.WalletLedgerEntry{
			ID:            s.node.Generate(),
			ResellerID:    id,
			ActionType:    ledgerdomain.ActionTopUp,
			AmountCharged: -amount,
			PricePerGB:    reseller.PricePerGB,
			BalanceBefore: reseller.WalletBalance,
			BalanceAfter:  reseller.WalletBalance + amount,
			CreatedAt:     s.clock.Now(),
		}
		return s.ledgerRepo.Insert(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	cfg := s.holder.Get()
	if result.Status == resellerdomain.StatusSuspendedWallet && result.BalanceAfter > cfg.SuspensionThreshold {
		changed, err := s.repo.UpdateStatus(ctx, s.db, id,
			resellerdomain.StatusSuspendedWallet, resellerdomain.StatusActive)
		if err != nil {
			return nil, err
		}
		if changed {
			result.Status = resellerdomain.StatusActive
			s.log.Info("reseller reactivated after top up",
				zap.Int64("reseller_id", int64(id)),
				zap.Int64("balance_after", result.BalanceAfter),
			)
			enabled, failed, err := s.reenable.ReenableWalletSuspendedConfigs(ctx, id)
			if err != nil {
				s.log.Warn("reenable sweep failed after top up", zap.Int64("reseller_id", int64(id)), zap.Error(err))
			}
			result.ReenabledConfigs = enabled
			result.FailedConfigs = failed
		}
	}

	return &result, nil
}
