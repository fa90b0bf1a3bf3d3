package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reseller *Reseller) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Reseller, error)
	// ListForCharging pages wallet resellers in active or suspended_wallet
	// status by ascending id, starting strictly after afterID.
	ListForCharging(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]Reseller, error)
	// AddWalletBalance applies a signed delta as a single atomic increment.
	AddWalletBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) error
	// UpdateStatus transitions from one status to another, reporting whether
	// a row was changed. The guard makes concurrent transitions idempotent.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status) (bool, error)
}
