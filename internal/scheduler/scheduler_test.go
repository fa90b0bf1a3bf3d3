package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
	panelrepo "github.com/smallbiznis/netbill/internal/panel/repository"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	panelconfigrepo "github.com/smallbiznis/netbill/internal/panelconfig/repository"
	"github.com/smallbiznis/netbill/internal/reenable"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	resellerrepo "github.com/smallbiznis/netbill/internal/reseller/repository"
	usagedomain "github.com/smallbiznis/netbill/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type billingStub struct {
	mu      sync.Mutex
	charged []snowflake.ID
	sources []string
}

func (b *billingStub) ChargeReseller(_ context.Context, resellerID snowflake.ID, opts billingdomain.ChargeOptions) (*billingdomain.ChargeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.charged = append(b.charged, resellerID)
	b.sources = append(b.sources, opts.Source)
	return &billingdomain.ChargeResult{Status: billingdomain.StatusCharged, ResellerID: resellerID}, nil
}

func (b *billingStub) Snapshots(context.Context, snowflake.ID, int) ([]usagedomain.UsageSnapshot, error) {
	return nil, nil
}

type enableStub struct{}

func (enableStub) Enable(context.Context, paneldomain.Panel, string) error       { return nil }
func (enableStub) Disable(context.Context, paneldomain.Panel, string) error      { return nil }
func (enableStub) ResetTraffic(context.Context, paneldomain.Panel, string) error { return nil }
func (enableStub) Remove(context.Context, paneldomain.Panel, string) error       { return nil }

type schedEnv struct {
	db    *gorm.DB
	node  *snowflake.Node
	stub  *billingStub
	sched *Scheduler
}

func newSchedEnv(t *testing.T, cfg Config) *schedEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&paneldomain.Panel{},
		&resellerdomain.Reseller{},
		&configdomain.Config{},
	))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	stub := &billingStub{}
	resellerRepoImpl := resellerrepo.Provide()
	configRepoImpl := panelconfigrepo.Provide()

	orch := reenable.New(reenable.Params{
		DB:           db,
		ResellerRepo: resellerRepoImpl,
		ConfigRepo:   configRepoImpl,
		PanelRepo:    panelrepo.Provide(),
		Provisioner:  enableStub{},
		Holder:       config.NewBillingConfigHolderFromValue(config.DefaultBillingConfig()),
		Logger:       zap.NewNop(),
	})

	sched, err := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		BillingSvc:   stub,
		Reenable:     orch,
		ResellerRepo: resellerRepoImpl,
		ConfigRepo:   configRepoImpl,
		Clock:        clock.NewFakeClock(time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)),
		Config:       cfg,
	})
	require.NoError(t, err)

	return &schedEnv{db: db, node: node, stub: stub, sched: sched}
}

func (e *schedEnv) seedReseller(t *testing.T, billingType resellerdomain.BillingType, status resellerdomain.Status) snowflake.ID {
	t.Helper()
	reseller := &resellerdomain.Reseller{
		ID:          e.node.Generate(),
		Name:        "r",
		BillingType: billingType,
		Status:      status,
		PricePerGB:  1_000,
	}
	require.NoError(t, e.db.Create(reseller).Error)
	return reseller.ID
}

func TestChargeWalletsJobPagesThroughAllWalletResellers(t *testing.T) {
	env := newSchedEnv(t, Config{BatchSize: 2})

	a := env.seedReseller(t, resellerdomain.BillingTypeWallet, resellerdomain.StatusActive)
	b := env.seedReseller(t, resellerdomain.BillingTypeWallet, resellerdomain.StatusSuspendedWallet)
	c := env.seedReseller(t, resellerdomain.BillingTypeWallet, resellerdomain.StatusActive)
	env.seedReseller(t, resellerdomain.BillingTypeTraffic, resellerdomain.StatusActive)
	env.seedReseller(t, resellerdomain.BillingTypeWallet, resellerdomain.StatusDisabled)

	require.NoError(t, env.sched.ChargeWalletsJob(context.Background()))

	assert.ElementsMatch(t, []snowflake.ID{a, b, c}, env.stub.charged)
	for _, source := range env.stub.sources {
		assert.Equal(t, billingdomain.SourceScheduled, source)
	}
}

func TestRunOnceHonorsEnabledJobs(t *testing.T) {
	env := newSchedEnv(t, Config{EnabledJobs: []string{"reenable_sweep"}})
	env.seedReseller(t, resellerdomain.BillingTypeWallet, resellerdomain.StatusActive)

	require.NoError(t, env.sched.RunOnce(context.Background()))

	assert.Empty(t, env.stub.charged)
}

func TestSchedulerRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.JobTimeout)
}
