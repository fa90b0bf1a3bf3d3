package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, e *ledgerdomain.WalletLedgerEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO wallet_ledger_entries (
			id, reseller_id, config_id, action_type,
			charged_bytes, amount_charged, price_per_gb, balance_before, balance_after,
			metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.ResellerID,
		e.ConfigID,
		e.ActionType,
		e.ChargedBytes,
		e.AmountCharged,
		e.PricePerGB,
		e.BalanceBefore,
		e.BalanceAfter,
		e.Metadata,
		e.CreatedAt,
	).Error
}

func (r *repo) ListByReseller(ctx context.Context, db *gorm.DB, resellerID snowflake.ID, limit int) ([]ledgerdomain.WalletLedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []ledgerdomain.WalletLedgerEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, reseller_id, config_id, action_type,
			charged_bytes, amount_charged, price_per_gb, balance_before, balance_after,
			metadata, created_at
		 FROM wallet_ledger_entries
		 WHERE reseller_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		resellerID,
		limit,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
