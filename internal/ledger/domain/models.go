// Package domain contains the wallet ledger model. Every balance mutation
// writes exactly one entry; the ledger is the audit trail for charges,
// settlements and top ups.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActionType string

const (
	ActionHourly       ActionType = "hourly"
	ActionResetTraffic ActionType = "reset_traffic"
	ActionDeleteConfig ActionType = "delete_config"
	ActionTopUp        ActionType = "top_up"
	ActionManual       ActionType = "manual"
)

type WalletLedgerEntry struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	ResellerID snowflake.ID  `gorm:"not null;index:idx_wallet_ledger_reseller_created,priority:1"`
	ConfigID   *snowflake.ID `gorm:"index"`
	ActionType ActionType    `gorm:"type:text;not null"`

	ChargedBytes  int64 `gorm:"not null"`
	AmountCharged int64 `gorm:"not null"`
	PricePerGB    int64 `gorm:"not null"`
	BalanceBefore int64 `gorm:"not null"`
	BalanceAfter  int64 `gorm:"not null"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_wallet_ledger_reseller_created,priority:2"`
}

// TableName sets the database table name.
func (WalletLedgerEntry) TableName() string { return "wallet_ledger_entries" }
