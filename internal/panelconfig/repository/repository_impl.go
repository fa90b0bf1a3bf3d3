package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	"gorm.io/gorm"
)

const configColumns = `id, reseller_id, panel_id, panel_user_id, name, status,
	usage_bytes, settled_usage_bytes, charged_bytes,
	disabled_by_wallet_suspension, disabled_by_wallet_suspension_cycle_at,
	disabled_by_reseller_id, disabled_at,
	last_settlement_at, last_settlement_action,
	created_at, updated_at, deleted_at`

type repo struct{}

func Provide() configdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *configdomain.Config) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO configs (
			id, reseller_id, panel_id, panel_user_id, name, status,
			usage_bytes, settled_usage_bytes, charged_bytes,
			disabled_by_wallet_suspension, disabled_by_wallet_suspension_cycle_at,
			disabled_by_reseller_id, last_settlement_action,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.ResellerID,
		c.PanelID,
		c.PanelUserID,
		c.Name,
		c.Status,
		c.UsageBytes,
		c.SettledUsageBytes,
		c.ChargedBytes,
		c.DisabledByWalletSuspension,
		c.DisabledByWalletSuspensionCycleAt,
		c.DisabledByResellerID,
		c.LastSettlementAction,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*configdomain.Config, error) {
	var config configdomain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+`
		 FROM configs WHERE id = ? AND deleted_at IS NULL`,
		id,
	).Scan(&config).Error
	if err != nil {
		return nil, err
	}
	if config.ID == 0 {
		return nil, nil
	}
	return &config, nil
}

func (r *repo) FindByIDIncludingDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID) (*configdomain.Config, error) {
	var config configdomain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+`
		 FROM configs WHERE id = ?`,
		id,
	).Scan(&config).Error
	if err != nil {
		return nil, err
	}
	if config.ID == 0 {
		return nil, nil
	}
	return &config, nil
}

func (r *repo) SumBillableBytes(ctx context.Context, db *gorm.DB, resellerID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(usage_bytes + settled_usage_bytes), 0)
		 FROM configs
		 WHERE reseller_id = ? AND deleted_at IS NULL`,
		resellerID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) ListActiveOutsideCycle(ctx context.Context, db *gorm.DB, resellerID snowflake.ID, cycleKey string) ([]configdomain.Config, error) {
	var configs []configdomain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+`
		 FROM configs
		 WHERE reseller_id = ?
		   AND status = ?
		   AND disabled_by_wallet_suspension_cycle_at <> ?
		   AND deleted_at IS NULL
		 ORDER BY id ASC`,
		resellerID,
		configdomain.StatusActive,
		cycleKey,
	).Scan(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repo) ListWalletSuspended(ctx context.Context, db *gorm.DB, resellerID snowflake.ID) ([]configdomain.Config, error) {
	var configs []configdomain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+`
		 FROM configs
		 WHERE reseller_id = ?
		   AND status = ?
		   AND disabled_by_wallet_suspension = ?
		   AND deleted_at IS NULL
		 ORDER BY id ASC`,
		resellerID,
		configdomain.StatusDisabled,
		true,
	).Scan(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repo) ListResellerIDsWithWalletSuspended(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT reseller_id
		 FROM configs
		 WHERE status = ?
		   AND disabled_by_wallet_suspension = ?
		   AND deleted_at IS NULL
		 ORDER BY reseller_id ASC`,
		configdomain.StatusDisabled,
		true,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) MarkDisabledForSuspension(ctx context.Context, db *gorm.DB, id, resellerID snowflake.ID, cycleKey string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE configs
		 SET status = ?,
		     disabled_by_wallet_suspension = ?,
		     disabled_by_wallet_suspension_cycle_at = ?,
		     disabled_by_reseller_id = ?,
		     disabled_at = ?,
		     updated_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND disabled_by_wallet_suspension_cycle_at <> ?
		   AND deleted_at IS NULL`,
		configdomain.StatusDisabled,
		true,
		cycleKey,
		resellerID,
		now,
		now,
		id,
		configdomain.StatusActive,
		cycleKey,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkReenabled(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE configs
		 SET status = ?,
		     disabled_by_wallet_suspension = ?,
		     disabled_by_wallet_suspension_cycle_at = '',
		     disabled_by_reseller_id = 0,
		     disabled_at = NULL,
		     updated_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND disabled_by_wallet_suspension = ?
		   AND deleted_at IS NULL`,
		configdomain.StatusActive,
		false,
		now,
		id,
		configdomain.StatusDisabled,
		true,
	).Error
}

func (r *repo) SetChargedBytesToUsage(ctx context.Context, db *gorm.DB, resellerID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE configs
		 SET charged_bytes = usage_bytes, updated_at = ?
		 WHERE reseller_id = ? AND deleted_at IS NULL`,
		time.Now().UTC(),
		resellerID,
	).Error
}

func (r *repo) RecordSettlementAttempt(ctx context.Context, db *gorm.DB, id snowflake.ID, action configdomain.SettlementAction, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE configs
		 SET last_settlement_at = ?, last_settlement_action = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		at,
		string(action),
		at,
		id,
	).Error
}

func (r *repo) SettleForReset(ctx context.Context, db *gorm.DB, id snowflake.ID, action configdomain.SettlementAction, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE configs
		 SET settled_usage_bytes = settled_usage_bytes + usage_bytes,
		     charged_bytes = 0,
		     last_settlement_at = ?,
		     last_settlement_action = ?,
		     updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		at,
		string(action),
		at,
		id,
	).Error
}

func (r *repo) ResetUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE configs
		 SET usage_bytes = 0, charged_bytes = 0, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE configs
		 SET deleted_at = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		at,
		at,
		id,
	).Error
}
