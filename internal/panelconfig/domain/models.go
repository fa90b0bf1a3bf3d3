// Package domain contains the provisioned config model. A config is a
// metered account living on an external panel and billed to a reseller.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// SettlementAction identifies the destructive action a final settlement
// precedes.
type SettlementAction string

const (
	SettlementActionResetTraffic SettlementAction = "reset_traffic"
	SettlementActionDeleteConfig SettlementAction = "delete_config"
)

// Config is a provisioned account on an external panel.
//
// UsageBytes is the panel-reported cumulative counter, monotonically
// non-decreasing until a traffic reset. SettledUsageBytes holds usage
// permanently folded in by reset settlements and never decreases, so a
// config's total billable usage is always UsageBytes + SettledUsageBytes.
// ChargedBytes tracks how much of the current usage counter has already
// been billed; it is advanced by the hourly charge and zeroed by settlement.
type Config struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	ResellerID  snowflake.ID `gorm:"not null;index"`
	PanelID     snowflake.ID `gorm:"not null;index"`
	PanelUserID string       `gorm:"type:text;not null"`
	Name        string       `gorm:"type:text;not null"`
	Status      Status       `gorm:"type:text;not null;index"`

	UsageBytes        int64 `gorm:"not null"`
	SettledUsageBytes int64 `gorm:"not null"`
	ChargedBytes      int64 `gorm:"not null"`

	DisabledByWalletSuspension        bool         `gorm:"not null"`
	DisabledByWalletSuspensionCycleAt string       `gorm:"type:text;not null;default:''"`
	DisabledByResellerID              snowflake.ID `gorm:"not null;default:0"`
	DisabledAt                        *time.Time

	LastSettlementAt     *time.Time
	LastSettlementAction string `gorm:"type:text;not null;default:''"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName sets the database table name.
func (Config) TableName() string { return "configs" }

// TotalBillableBytes is the config's contribution to the reseller's
// aggregate usage.
func (c Config) TotalBillableBytes() int64 {
	return c.UsageBytes + c.SettledUsageBytes
}

var (
	ErrNotFound  = errors.New("config_not_found")
	ErrInvalidID = errors.New("invalid_id")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
