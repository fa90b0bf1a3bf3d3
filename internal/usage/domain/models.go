// Package domain contains the usage snapshot model. Snapshots are immutable
// point-in-time readings of a reseller's aggregate billable usage; the most
// recent one is the baseline for the next charge.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type UsageSnapshot struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	ResellerID snowflake.ID `gorm:"not null;index:idx_usage_snapshots_reseller_measured,priority:1"`
	TotalBytes int64        `gorm:"not null"`
	MeasuredAt time.Time    `gorm:"not null;index:idx_usage_snapshots_reseller_measured,priority:2"`

	CycleChargeApplied bool      `gorm:"not null"`
	DeltaBytes         int64     `gorm:"not null"`
	DeltaGB            int64     `gorm:"not null"`
	Cost               int64     `gorm:"not null"`
	CycleStartedAt     time.Time `gorm:"not null"`
	Source             string    `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageSnapshot) TableName() string { return "usage_snapshots" }
