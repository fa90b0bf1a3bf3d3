package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, config *Config) error
	// FindByID excludes soft-deleted rows.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Config, error)
	// FindByIDIncludingDeleted returns tombstoned rows too, for audit reads.
	FindByIDIncludingDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Config, error)

	// SumBillableBytes aggregates usage_bytes + settled_usage_bytes across
	// all non-deleted configs of the reseller, regardless of name.
	SumBillableBytes(ctx context.Context, db *gorm.DB, resellerID snowflake.ID) (int64, error)

	// ListActiveOutsideCycle returns active configs of the reseller whose
	// wallet-suspension cycle tag differs from cycleKey, i.e. candidates for
	// disabling in the current cycle.
	ListActiveOutsideCycle(ctx context.Context, db *gorm.DB, resellerID snowflake.ID, cycleKey string) ([]Config, error)
	// ListWalletSuspended returns disabled configs carrying the wallet
	// suspension flag. Manually disabled configs are not included.
	ListWalletSuspended(ctx context.Context, db *gorm.DB, resellerID snowflake.ID) ([]Config, error)
	// ListResellerIDsWithWalletSuspended returns the distinct owners of
	// wallet-suspended configs, for the periodic re-enable sweep.
	ListResellerIDsWithWalletSuspended(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)

	// MarkDisabledForSuspension flips an active config to disabled and tags
	// it with the suspension cycle key. Returns false when the config was
	// already disabled or already tagged with this cycle key, leaving
	// disabled_at untouched.
	MarkDisabledForSuspension(ctx context.Context, db *gorm.DB, id, resellerID snowflake.ID, cycleKey string, now time.Time) (bool, error)
	// MarkReenabled reactivates a wallet-suspended config and clears the
	// suspension tags.
	MarkReenabled(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// SetChargedBytesToUsage records that everything on the current usage
	// counters has been billed, for every non-deleted config of the reseller.
	SetChargedBytesToUsage(ctx context.Context, db *gorm.DB, resellerID snowflake.ID) error

	// RecordSettlementAttempt stamps the settlement idempotency metadata
	// without touching usage figures. Delete settlements use it directly so
	// the tombstoned row keeps its counters for audit.
	RecordSettlementAttempt(ctx context.Context, db *gorm.DB, id snowflake.ID, action SettlementAction, at time.Time) error
	// SettleForReset zeroes charged_bytes and folds the current usage
	// counter into settled_usage_bytes; the caller resets usage afterwards.
	SettleForReset(ctx context.Context, db *gorm.DB, id snowflake.ID, action SettlementAction, at time.Time) error

	// ResetUsage zeroes the live usage counter and its charged marker after
	// a reset settlement.
	ResetUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
