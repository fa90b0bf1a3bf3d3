// Package domain defines the charge pipeline contracts. A charge samples a
// reseller's aggregate usage, bills the growth since the previous snapshot
// and debits the wallet, all inside one transaction.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/config"
	usagedomain "github.com/smallbiznis/netbill/internal/usage/domain"
)

// GiB is the billing unit. Partial units round up.
const GiB = int64(1 << 30)

type ChargeStatus string

const (
	StatusCharged ChargeStatus = "charged"
	StatusSkipped ChargeStatus = "skipped"
	StatusDryRun  ChargeStatus = "dry_run"
)

// Skip reasons reported on ChargeResult and in metrics.
const (
	ReasonNotWalletType      = "not_wallet_type"
	ReasonFeatureDisabled    = "feature_disabled"
	ReasonLockContention     = "lock_contention"
	ReasonIdempotencyGuard   = "idempotency_guard"
	ReasonNoUsageDelta       = "no_usage_delta"
	ReasonNoOutstandingUsage = "no_outstanding_usage"
)

// Sources stamped on usage snapshots.
const (
	SourceScheduled = "scheduled"
	SourceManual    = "manual"
)

var ErrResellerNotFound = errors.New("reseller_not_found")

// ChargeLockKey names the lease that serializes wallet charging for one
// reseller. Every path that advances charged_bytes or debits the wallet for
// usage must hold it, settlement included.
func ChargeLockKey(resellerID snowflake.ID) string {
	return fmt.Sprintf("netbill:charge:%d", resellerID)
}

type ChargeOptions struct {
	// Source is recorded on the snapshot; scheduled runs and manual API
	// triggers are distinguishable in the audit trail.
	Source string
	// Force bypasses the idempotency window but not the lock.
	Force bool
	// DryRun computes the would-be charge without writing anything.
	DryRun bool
}

type ChargeResult struct {
	Status     ChargeStatus `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	ResellerID snowflake.ID `json:"reseller_id"`

	TotalBytes   int64 `json:"total_bytes"`
	DeltaBytes   int64 `json:"delta_bytes"`
	DeltaGB      int64 `json:"delta_gb"`
	Cost         int64 `json:"cost"`
	BalanceAfter int64 `json:"balance_after"`

	Suspended bool `json:"suspended,omitempty"`
}

type Service interface {
	// ChargeReseller runs the full charge pipeline for one reseller.
	ChargeReseller(ctx context.Context, resellerID snowflake.ID, opts ChargeOptions) (*ChargeResult, error)
	// Snapshots returns recent usage snapshots, newest first.
	Snapshots(ctx context.Context, resellerID snowflake.ID, limit int) ([]usagedomain.UsageSnapshot, error)
}

// CostForBytes bills delta at pricePerGB with ceiling division, so any
// positive delta costs at least one full unit.
func CostForBytes(delta, pricePerGB int64) (deltaGB, cost int64) {
	if delta <= 0 || pricePerGB <= 0 {
		return 0, 0
	}
	deltaGB = (delta + GiB - 1) / GiB
	return deltaGB, deltaGB * pricePerGB
}

// CycleKey tags a point in time with its billing cycle, so cycle-scoped
// operations stay idempotent within the cycle.
func CycleKey(t time.Time, resolution string) string {
	if resolution == config.CycleKeyDaily {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01-02T15")
}

// CycleStart truncates t to the beginning of its billing cycle.
func CycleStart(t time.Time, resolution string) time.Time {
	if resolution == config.CycleKeyDaily {
		return t.UTC().Truncate(24 * time.Hour)
	}
	return t.UTC().Truncate(time.Hour)
}
