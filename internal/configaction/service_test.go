package configaction

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
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/netbill/internal/ledger/repository"
	"github.com/smallbiznis/netbill/internal/lock"
	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
	panelrepo "github.com/smallbiznis/netbill/internal/panel/repository"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	panelconfigrepo "github.com/smallbiznis/netbill/internal/panelconfig/repository"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	resellerrepo "github.com/smallbiznis/netbill/internal/reseller/repository"
	"github.com/smallbiznis/netbill/internal/settlement"
	usagedomain "github.com/smallbiznis/netbill/internal/usage/domain"
	usagerepo "github.com/smallbiznis/netbill/internal/usage/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingProvisioner struct {
	mu      sync.Mutex
	resets  []string
	removes []string
	fail    bool
}

func (p *recordingProvisioner) Enable(context.Context, paneldomain.Panel, string) error {
	return nil
}

func (p *recordingProvisioner) Disable(context.Context, paneldomain.Panel, string) error {
	return nil
}

func (p *recordingProvisioner) ResetTraffic(_ context.Context, _ paneldomain.Panel, panelUserID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("panel unavailable")
	}
	p.resets = append(p.resets, panelUserID)
	return nil
}

func (p *recordingProvisioner) Remove(_ context.Context, _ paneldomain.Panel, panelUserID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("panel unavailable")
	}
	p.removes = append(p.removes, panelUserID)
	return nil
}

type actionEnv struct {
	db      *gorm.DB
	node    *snowflake.Node
	clk     *clock.FakeClock
	prov    *recordingProvisioner
	svc     *Service
	panelID snowflake.ID
}

func newActionEnv(t *testing.T) *actionEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&paneldomain.Panel{},
		&resellerdomain.Reseller{},
		&configdomain.Config{},
		&usagedomain.UsageSnapshot{},
		&ledgerdomain.WalletLedgerEntry{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))
	holder := config.NewBillingConfigHolderFromValue(config.DefaultBillingConfig())
	prov := &recordingProvisioner{}

	configRepo := panelconfigrepo.Provide()
	panelRepoImpl := panelrepo.Provide()

	settleSvc := settlement.New(settlement.Params{
		DB:           db,
		Node:         node,
		ResellerRepo: resellerrepo.Provide(),
		ConfigRepo:   configRepo,
		SnapshotRepo: usagerepo.Provide(),
		LedgerRepo:   ledgerrepo.Provide(),
		Locker:       lock.NewMemoryLocker(),
		Holder:       holder,
		Clock:        clk,
		Logger:       zap.NewNop(),
	})

	svc := New(Params{
		DB:          db,
		ConfigRepo:  configRepo,
		PanelRepo:   panelRepoImpl,
		Settlement:  settleSvc,
		Provisioner: prov,
		Clock:       clk,
		Logger:      zap.NewNop(),
	})

	panel := &paneldomain.Panel{
		ID:     node.Generate(),
		Type:   "marzban",
		Name:   "panel-a",
		APIURL: "http://panel-a.local",
		APIKey: "secret",
	}
	require.NoError(t, db.Create(panel).Error)

	return &actionEnv{db: db, node: node, clk: clk, prov: prov, svc: svc, panelID: panel.ID}
}

func (e *actionEnv) seedResellerAndConfig(t *testing.T, balance, pricePerGB, usage, charged int64) (snowflake.ID, snowflake.ID) {
	t.Helper()
	reseller := &resellerdomain.Reseller{
		ID:            e.node.Generate(),
		Name:          "acme",
		BillingType:   resellerdomain.BillingTypeWallet,
		Status:        resellerdomain.StatusActive,
		WalletBalance: balance,
		PricePerGB:    pricePerGB,
	}
	require.NoError(t, e.db.Create(reseller).Error)

	cfg := &configdomain.Config{
		ID:           e.node.Generate(),
		ResellerID:   reseller.ID,
		PanelID:      e.panelID,
		PanelUserID:  "user-1",
		Name:         "cfg",
		Status:       configdomain.StatusActive,
		UsageBytes:   usage,
		ChargedBytes: charged,
	}
	require.NoError(t, e.db.Create(cfg).Error)
	return reseller.ID, cfg.ID
}

func (e *actionEnv) loadConfig(t *testing.T, id snowflake.ID) configdomain.Config {
	t.Helper()
	var cfg configdomain.Config
	require.NoError(t, e.db.Unscoped().First(&cfg, "id = ?", id).Error)
	return cfg
}

func TestResetTrafficSettlesThenZeroes(t *testing.T) {
	env := newActionEnv(t)
	resellerID, configID := env.seedResellerAndConfig(t, 10_000, 1_000, 5*billingdomain.GiB, 0)

	result, err := env.svc.ResetTraffic(context.Background(), configID)
	require.NoError(t, err)

	require.NotNil(t, result.Settlement)
	assert.Equal(t, billingdomain.StatusCharged, result.Settlement.Status)
	assert.Equal(t, int64(5_000), result.Settlement.Cost)
	assert.True(t, result.RemoteSync)
	assert.Equal(t, []string{"user-1"}, env.prov.resets)

	cfg := env.loadConfig(t, configID)
	assert.Equal(t, int64(0), cfg.UsageBytes)
	assert.Equal(t, int64(0), cfg.ChargedBytes)
	assert.Equal(t, 5*billingdomain.GiB, cfg.SettledUsageBytes)

	var reseller resellerdomain.Reseller
	require.NoError(t, env.db.First(&reseller, "id = ?", resellerID).Error)
	assert.Equal(t, int64(5_000), reseller.WalletBalance)
}

func TestResetTrafficRemoteFailureStillResetsLocally(t *testing.T) {
	env := newActionEnv(t)
	_, configID := env.seedResellerAndConfig(t, 10_000, 1_000, billingdomain.GiB, 0)
	env.prov.fail = true

	result, err := env.svc.ResetTraffic(context.Background(), configID)
	require.NoError(t, err)

	assert.False(t, result.RemoteSync)
	cfg := env.loadConfig(t, configID)
	assert.Equal(t, int64(0), cfg.UsageBytes)
}

func TestDeleteConfigSettlesAndTombstones(t *testing.T) {
	env := newActionEnv(t)
	resellerID, configID := env.seedResellerAndConfig(t, 10_000, 1_000, 3*billingdomain.GiB, billingdomain.GiB)

	result, err := env.svc.DeleteConfig(context.Background(), configID)
	require.NoError(t, err)

	require.NotNil(t, result.Settlement)
	assert.Equal(t, billingdomain.StatusCharged, result.Settlement.Status)
	assert.Equal(t, 2*billingdomain.GiB, result.Settlement.OutstandingBytes)
	assert.True(t, result.RemoteSync)
	assert.Equal(t, []string{"user-1"}, env.prov.removes)

	cfg := env.loadConfig(t, configID)
	assert.True(t, cfg.DeletedAt.Valid)
	// Counters survive on the tombstone for audit.
	assert.Equal(t, 3*billingdomain.GiB, cfg.UsageBytes)

	// The tombstone no longer contributes to aggregation.
	var total int64
	require.NoError(t, env.db.Raw(
		`SELECT COALESCE(SUM(usage_bytes + settled_usage_bytes), 0)
		 FROM configs WHERE reseller_id = ? AND deleted_at IS NULL`,
		resellerID,
	).Scan(&total).Error)
	assert.Equal(t, int64(0), total)
}

func TestGetReturnsTombstonedConfigForAudit(t *testing.T) {
	env := newActionEnv(t)
	_, configID := env.seedResellerAndConfig(t, 10_000, 1_000, 3*billingdomain.GiB, billingdomain.GiB)

	_, err := env.svc.DeleteConfig(context.Background(), configID)
	require.NoError(t, err)

	cfg, err := env.svc.Get(context.Background(), configID)
	require.NoError(t, err)

	assert.True(t, cfg.DeletedAt.Valid)
	assert.Equal(t, 3*billingdomain.GiB, cfg.UsageBytes)
	assert.Equal(t, billingdomain.GiB, cfg.ChargedBytes)
	assert.Equal(t, string(configdomain.SettlementActionDeleteConfig), cfg.LastSettlementAction)
}

func TestDeleteConfigNotFound(t *testing.T) {
	env := newActionEnv(t)

	_, err := env.svc.DeleteConfig(context.Background(), env.node.Generate())
	assert.ErrorIs(t, err, configdomain.ErrNotFound)
}
