package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SnapshotRepository is append-only; a written snapshot is never updated.
type SnapshotRepository interface {
	Insert(ctx context.Context, db *gorm.DB, snapshot *UsageSnapshot) error
	Latest(ctx context.Context, db *gorm.DB, resellerID snowflake.ID) (*UsageSnapshot, error)
	ListByReseller(ctx context.Context, db *gorm.DB, resellerID snowflake.ID, limit int) ([]UsageSnapshot, error)
}
