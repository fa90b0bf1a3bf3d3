package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is append-only; entries are never updated or deleted.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *WalletLedgerEntry) error
	ListByReseller(ctx context.Context, db *gorm.DB, resellerID snowflake.ID, limit int) ([]WalletLedgerEntry, error)
}
