// Package scheduler drives the periodic billing work: the wallet charge pass
// over every wallet reseller and the re-enable sweep for resellers that
// recovered from suspension.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/observability/metrics"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	"github.com/smallbiznis/netbill/internal/reenable"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	BillingSvc billingdomain.Service
	Reenable   *reenable.Orchestrator

	ResellerRepo resellerdomain.Repository
	ConfigRepo   configdomain.Repository
	Clock        clock.Clock
	Config       Config `optional:"true"`
}

type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	billingSvc   billingdomain.Service
	reenable     *reenable.Orchestrator
	resellerRepo resellerdomain.Repository
	configRepo   configdomain.Repository
	metrics      *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.BillingSvc == nil || p.Reenable == nil || p.ResellerRepo == nil || p.ConfigRepo == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          cfg,
		clock:        p.Clock,
		billingSvc:   p.BillingSvc,
		reenable:     p.Reenable,
		resellerRepo: p.ResellerRepo,
		configRepo:   p.ConfigRepo,
		metrics:      metrics.Default(),
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"charge_wallets", s.isJobEnabled("charge_wallets"), func(ctx context.Context) error {
			return s.runJob(ctx, "charge_wallets", s.cfg.JobTimeout, s.ChargeWalletsJob)
		}},
		{"reenable_sweep", s.isJobEnabled("reenable_sweep"), func(ctx context.Context) error {
			return s.runJob(ctx, "reenable_sweep", s.cfg.JobTimeout, s.ReenableSweepJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty EnabledJobs means all jobs run (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ChargeWalletsJob charges every wallet reseller once. Pagination is keyset
// by id so a reseller inserted mid-run is picked up next tick at worst. A
// failed or skipped reseller never blocks the rest of the batch.
func (s *Scheduler) ChargeWalletsJob(ctx context.Context) error {
	var jobErr error
	var afterID snowflake.ID

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		resellers, err := s.resellerRepo.ListForCharging(ctx, s.db, afterID, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(resellers) == 0 {
			break
		}

		for _, reseller := range resellers {
			if ctx.Err() != nil {
				return errors.Join(jobErr, ctx.Err())
			}

			result, err := s.billingSvc.ChargeReseller(ctx, reseller.ID, billingdomain.ChargeOptions{
				Source: billingdomain.SourceScheduled,
			})
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				s.log.Error("charge failed",
					zap.Int64("reseller_id", int64(reseller.ID)),
					zap.Error(err),
				)
				continue
			}
			if result.Status == billingdomain.StatusSkipped && result.Reason == billingdomain.ReasonLockContention {
				s.log.Debug("charge skipped, lock held elsewhere",
					zap.Int64("reseller_id", int64(reseller.ID)),
				)
			}
		}

		afterID = resellers[len(resellers)-1].ID
	}

	return jobErr
}

// ReenableSweepJob retries panel re-enables that failed during top-up flows.
// Only resellers back in active status are considered; the orchestrator
// re-checks status itself so the sweep and a concurrent suspension cannot
// fight over the same configs.
func (s *Scheduler) ReenableSweepJob(ctx context.Context) error {
	ids, err := s.configRepo.ListResellerIDsWithWalletSuspended(ctx, s.db)
	if err != nil {
		return err
	}

	var jobErr error
	for _, id := range ids {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		if _, _, err := s.reenable.ReenableWalletSuspendedConfigs(ctx, id); err != nil {
			jobErr = errors.Join(jobErr, err)
			s.log.Error("reenable sweep failed",
				zap.Int64("reseller_id", int64(id)),
				zap.Error(err),
			)
		}
	}

	return jobErr
}
