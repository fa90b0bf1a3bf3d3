package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBillingConfig(t *testing.T) {
	cfg := DefaultBillingConfig()

	assert.True(t, cfg.ChargeEnabled)
	assert.Equal(t, int64(0), cfg.SuspensionThreshold)
	assert.Equal(t, int64(1), cfg.MinimumDeltaBytes)
	assert.Equal(t, 45*time.Second, cfg.ChargeIdempotencyWindow())
	assert.Equal(t, 30*time.Second, cfg.SettlementIdempotencyWindow())
	assert.True(t, cfg.AutoReenableEnabled)
	assert.Equal(t, CycleKeyHourly, cfg.CycleKeyResolution)

	require.NoError(t, validateBillingConfig(cfg))
}

func TestValidateBillingConfig(t *testing.T) {
	valid := DefaultBillingConfig()

	broken := valid
	broken.MinimumDeltaBytes = 0
	assert.Error(t, validateBillingConfig(broken))

	broken = valid
	broken.ChargeIdempotencySeconds = 0
	assert.Error(t, validateBillingConfig(broken))

	broken = valid
	broken.SettlementIdempotencySeconds = -1
	assert.Error(t, validateBillingConfig(broken))

	broken = valid
	broken.CycleKeyResolution = "weekly"
	assert.Error(t, validateBillingConfig(broken))
}

func TestHolderFromValue(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.SuspensionThreshold = -1_000

	holder := NewBillingConfigHolderFromValue(cfg)
	assert.Equal(t, int64(-1_000), holder.Get().SuspensionThreshold)
}
