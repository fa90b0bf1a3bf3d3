package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/netbill/internal/ledger/repository"
	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
	panelrepo "github.com/smallbiznis/netbill/internal/panel/repository"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	panelconfigrepo "github.com/smallbiznis/netbill/internal/panelconfig/repository"
	"github.com/smallbiznis/netbill/internal/reenable"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	resellerrepo "github.com/smallbiznis/netbill/internal/reseller/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type okProvisioner struct{}

func (okProvisioner) Enable(context.Context, paneldomain.Panel, string) error       { return nil }
func (okProvisioner) Disable(context.Context, paneldomain.Panel, string) error      { return nil }
func (okProvisioner) ResetTraffic(context.Context, paneldomain.Panel, string) error { return nil }
func (okProvisioner) Remove(context.Context, paneldomain.Panel, string) error       { return nil }

type resellerEnv struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     resellerdomain.Service
	panelID snowflake.ID
}

func newResellerEnv(t *testing.T, cfg config.BillingConfig) *resellerEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&paneldomain.Panel{},
		&resellerdomain.Reseller{},
		&configdomain.Config{},
		&ledgerdomain.WalletLedgerEntry{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	holder := config.NewBillingConfigHolderFromValue(cfg)
	repo := resellerrepo.Provide()

	orch := reenable.New(reenable.Params{
		DB:           db,
		ResellerRepo: repo,
		ConfigRepo:   panelconfigrepo.Provide(),
		PanelRepo:    panelrepo.Provide(),
		Provisioner:  okProvisioner{},
		Holder:       holder,
		Logger:       zap.NewNop(),
	})

	svc := New(Params{
		DB:         db,
		Node:       node,
		Repo:       repo,
		LedgerRepo: ledgerrepo.Provide(),
		Holder:     holder,
		Reenable:   orch,
		Clock:      clock.NewFakeClock(time.Date(2026, 1, 2, 14, 0, 0, 0, time.UTC)),
		Logger:     zap.NewNop(),
	})

	panel := &paneldomain.Panel{
		ID:     node.Generate(),
		Type:   "marzban",
		Name:   "panel-a",
		APIURL: "http://panel-a.local",
		APIKey: "secret",
	}
	require.NoError(t, db.Create(panel).Error)

	return &resellerEnv{db: db, node: node, svc: svc, panelID: panel.ID}
}

func (e *resellerEnv) seedReseller(t *testing.T, balance int64, status resellerdomain.Status) snowflake.ID {
	t.Helper()
	reseller := &resellerdomain.Reseller{
		ID:            e.node.Generate(),
		Name:          "acme",
		BillingType:   resellerdomain.BillingTypeWallet,
		Status:        status,
		WalletBalance: balance,
		PricePerGB:    1_000,
	}
	require.NoError(t, e.db.Create(reseller).Error)
	return reseller.ID
}

func TestTopUpCreditsWalletAndWritesLedger(t *testing.T) {
	env := newResellerEnv(t, config.DefaultBillingConfig())
	resellerID := env.seedReseller(t, 500, resellerdomain.StatusActive)

	result, err := env.svc.TopUp(context.Background(), resellerID, 2_000)
	require.NoError(t, err)

	assert.Equal(t, int64(500), result.BalanceBefore)
	assert.Equal(t, int64(2_500), result.BalanceAfter)
	assert.Equal(t, resellerdomain.StatusActive, result.Status)

	var entry ledgerdomain.WalletLedgerEntry
	require.NoError(t, env.db.First(&entry, "reseller_id = ?", resellerID).Error)
	assert.Equal(t, ledgerdomain.ActionTopUp, entry.ActionType)
	assert.Equal(t, int64(-2_000), entry.AmountCharged)
	assert.Equal(t, int64(500), entry.BalanceBefore)
	assert.Equal(t, int64(2_500), entry.BalanceAfter)
}

func TestTopUpReactivatesSuspendedReseller(t *testing.T) {
	env := newResellerEnv(t, config.DefaultBillingConfig())
	resellerID := env.seedReseller(t, -900, resellerdomain.StatusSuspendedWallet)

	now := time.Now().UTC()
	cfg := &configdomain.Config{
		ID:                                env.node.Generate(),
		ResellerID:                        resellerID,
		PanelID:                           env.panelID,
		PanelUserID:                       "user-1",
		Name:                              "cfg",
		Status:                            configdomain.StatusDisabled,
		DisabledByWalletSuspension:        true,
		DisabledByWalletSuspensionCycleAt: "2026-01-02T09",
		DisabledByResellerID:              resellerID,
		DisabledAt:                        &now,
	}
	require.NoError(t, env.db.Create(cfg).Error)

	result, err := env.svc.TopUp(context.Background(), resellerID, 5_000)
	require.NoError(t, err)

	assert.Equal(t, int64(4_100), result.BalanceAfter)
	assert.Equal(t, resellerdomain.StatusActive, result.Status)
	assert.Equal(t, 1, result.ReenabledConfigs)
	assert.Zero(t, result.FailedConfigs)

	var reloaded configdomain.Config
	require.NoError(t, env.db.First(&reloaded, "id = ?", cfg.ID).Error)
	assert.Equal(t, configdomain.StatusActive, reloaded.Status)
	assert.False(t, reloaded.DisabledByWalletSuspension)
}

func TestTopUpBelowThresholdStaysSuspended(t *testing.T) {
	env := newResellerEnv(t, config.DefaultBillingConfig())
	resellerID := env.seedReseller(t, -5_000, resellerdomain.StatusSuspendedWallet)

	result, err := env.svc.TopUp(context.Background(), resellerID, 1_000)
	require.NoError(t, err)

	assert.Equal(t, int64(-4_000), result.BalanceAfter)
	assert.Equal(t, resellerdomain.StatusSuspendedWallet, result.Status)
	assert.Zero(t, result.ReenabledConfigs)
}

func TestTopUpRejectsNonPositiveAmount(t *testing.T) {
	env := newResellerEnv(t, config.DefaultBillingConfig())
	resellerID := env.seedReseller(t, 0, resellerdomain.StatusActive)

	_, err := env.svc.TopUp(context.Background(), resellerID, 0)
	assert.ErrorIs(t, err, resellerdomain.ErrInvalidAmount)

	_, err = env.svc.TopUp(context.Background(), resellerID, -100)
	assert.ErrorIs(t, err, resellerdomain.ErrInvalidAmount)
}

func TestTopUpUnknownReseller(t *testing.T) {
	env := newResellerEnv(t, config.DefaultBillingConfig())

	_, err := env.svc.TopUp(context.Background(), env.node.Generate(), 100)
	assert.ErrorIs(t, err, resellerdomain.ErrNotFound)
}

func TestCreateAppliesDefaults(t *testing.T) {
	env := newResellerEnv(t, config.DefaultBillingConfig())

	reseller := &resellerdomain.Reseller{Name: "fresh"}
	require.NoError(t, env.svc.Create(context.Background(), reseller))

	assert.NotZero(t, reseller.ID)
	assert.Equal(t, resellerdomain.BillingTypeWallet, reseller.BillingType)
	assert.Equal(t, resellerdomain.StatusActive, reseller.Status)

	fetched, err := env.svc.Get(context.Background(), reseller.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", fetched.Name)
}
