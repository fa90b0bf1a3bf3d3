// Package domain contains the reseller account model and its contracts.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingType selects how a reseller pays for provisioned configs. Only
// wallet resellers participate in usage-metered charging.
type BillingType string

const (
	BillingTypeWallet  BillingType = "wallet"
	BillingTypeTraffic BillingType = "traffic"
	BillingTypePlan    BillingType = "plan"
)

type Status string

const (
	StatusActive          Status = "active"
	StatusSuspendedWallet Status = "suspended_wallet"
	StatusDisabled        Status = "disabled"
)

// Reseller owns provisioned configs and a prepaid wallet. WalletBalance is
// signed integer currency units and may go negative; PricePerGB is currency
// units per gibibyte of traffic.
type Reseller struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	Name          string       `gorm:"type:text;not null"`
	BillingType   BillingType  `gorm:"type:text;not null;index"`
	Status        Status       `gorm:"type:text;not null;index"`
	WalletBalance int64        `gorm:"not null"`
	PricePerGB    int64        `gorm:"not null"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Reseller) TableName() string { return "resellers" }

var (
	ErrNotFound      = errors.New("reseller_not_found")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidID     = errors.New("invalid_id")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
