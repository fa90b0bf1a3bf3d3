package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/smallbiznis/netbill/internal/usage/domain"
	"gorm.io/gorm"
)

const snapshotColumns = `id, reseller_id, total_bytes, measured_at,
	cycle_charge_applied, delta_bytes, delta_gb, cost, cycle_started_at, source,
	created_at`

type repo struct{}

func Provide() usagedomain.SnapshotRepository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *usagedomain.UsageSnapshot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO usage_snapshots (
			id, reseller_id, total_bytes, measured_at,
			cycle_charge_applied, delta_bytes, delta_gb, cost, cycle_started_at, source,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.ResellerID,
		s.TotalBytes,
		s.MeasuredAt,
		s.CycleChargeApplied,
		s.DeltaBytes,
		s.DeltaGB,
		s.Cost,
		s.CycleStartedAt,
		s.Source,
		s.CreatedAt,
	).Error
}

func (r *repo) Latest(ctx context.Context, db *gorm.DB, resellerID snowflake.ID) (*usagedomain.UsageSnapshot, error) {
	var snapshot usagedomain.UsageSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+snapshotColumns+`
		 FROM usage_snapshots
		 WHERE reseller_id = ?
		 ORDER BY measured_at DESC, id DESC
		 LIMIT 1`,
		resellerID,
	).Scan(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == 0 {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *repo) ListByReseller(ctx context.Context, db *gorm.DB, resellerID snowflake.ID, limit int) ([]usagedomain.UsageSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	var snapshots []usagedomain.UsageSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+snapshotColumns+`
		 FROM usage_snapshots
		 WHERE reseller_id = ?
		 ORDER BY measured_at DESC, id DESC
		 LIMIT ?`,
		resellerID,
		limit,
	).Scan(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
