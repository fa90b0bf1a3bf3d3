// Package domain contains persistence models for external control planes.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Panel is an external control-plane service hosting provisioned configs.
// The billing core treats it as an opaque address plus credentials.
type Panel struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Type      string       `gorm:"type:text;not null"`
	Name      string       `gorm:"type:text;not null"`
	APIURL    string       `gorm:"type:text;not null"`
	APIKey    string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Panel) TableName() string { return "panels" }

var ErrNotFound = errors.New("panel_not_found")
