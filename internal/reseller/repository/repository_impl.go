package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() resellerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *resellerdomain.Reseller) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO resellers (id, name, billing_type, status, wallet_balance, price_per_gb, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.Name,
		m.BillingType,
		m.Status,
		m.WalletBalance,
		m.PricePerGB,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*resellerdomain.Reseller, error) {
	var reseller resellerdomain.Reseller
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, billing_type, status, wallet_balance, price_per_gb, created_at, updated_at
		 FROM resellers WHERE id = ?`,
		id,
	).Scan(&reseller).Error
	if err != nil {
		return nil, err
	}
	if reseller.ID == 0 {
		return nil, nil
	}
	return &reseller, nil
}

func (r *repo) ListForCharging(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]resellerdomain.Reseller, error) {
	var resellers []resellerdomain.Reseller
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, billing_type, status, wallet_balance, price_per_gb, created_at, updated_at
		 FROM resellers
		 WHERE billing_type = ? AND status IN (?, ?) AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		resellerdomain.BillingTypeWallet,
		resellerdomain.StatusActive,
		resellerdomain.StatusSuspendedWallet,
		afterID,
		limit,
	).Scan(&resellers).Error
	if err != nil {
		return nil, err
	}
	return resellers, nil
}

func (r *repo) AddWalletBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE resellers
		 SET wallet_balance = wallet_balance + ?, updated_at = ?
		 WHERE id = ?`,
		delta,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to resellerdomain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE resellers
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC(),
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
