package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	CycleKeyHourly = "hourly"
	CycleKeyDaily  = "daily"
)

// BillingConfig is the hot-reloadable set of billing knobs.
type BillingConfig struct {
	ChargeEnabled                bool   `mapstructure:"chargeEnabled"`
	SuspensionThreshold          int64  `mapstructure:"suspensionThreshold"`
	MinimumDeltaBytes            int64  `mapstructure:"minimumDeltaBytes"`
	ChargeIdempotencySeconds     int    `mapstructure:"chargeIdempotencySeconds"`
	SettlementIdempotencySeconds int    `mapstructure:"settlementIdempotencySeconds"`
	AutoReenableEnabled          bool   `mapstructure:"autoReenableEnabled"`
	CycleKeyResolution           string `mapstructure:"cycleKeyResolution"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		ChargeEnabled:                true,
		SuspensionThreshold:          0,
		MinimumDeltaBytes:            1,
		ChargeIdempotencySeconds:     45,
		SettlementIdempotencySeconds: 30,
		AutoReenableEnabled:          true,
		CycleKeyResolution:           CycleKeyHourly,
	}
}

func (c BillingConfig) ChargeIdempotencyWindow() time.Duration {
	return time.Duration(c.ChargeIdempotencySeconds) * time.Second
}

func (c BillingConfig) SettlementIdempotencyWindow() time.Duration {
	return time.Duration(c.SettlementIdempotencySeconds) * time.Second
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewBillingConfigHolderFromValue builds a static holder, used by tests and
// single-shot commands that do not watch a config file.
func NewBillingConfigHolderFromValue(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/netbill/config") // Volume-mounted config
	v.AddConfigPath("/etc/netbill")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("NETBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.chargeEnabled", defaults.ChargeEnabled)
	v.SetDefault("billing.suspensionThreshold", defaults.SuspensionThreshold)
	v.SetDefault("billing.minimumDeltaBytes", defaults.MinimumDeltaBytes)
	v.SetDefault("billing.chargeIdempotencySeconds", defaults.ChargeIdempotencySeconds)
	v.SetDefault("billing.settlementIdempotencySeconds", defaults.SettlementIdempotencySeconds)
	v.SetDefault("billing.autoReenableEnabled", defaults.AutoReenableEnabled)
	v.SetDefault("billing.cycleKeyResolution", defaults.CycleKeyResolution)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.MinimumDeltaBytes < 1 {
		return errors.New("billing.minimumDeltaBytes must be at least 1")
	}
	if cfg.ChargeIdempotencySeconds <= 0 {
		return errors.New("billing.chargeIdempotencySeconds must be positive")
	}
	if cfg.SettlementIdempotencySeconds <= 0 {
		return errors.New("billing.settlementIdempotencySeconds must be positive")
	}
	switch cfg.CycleKeyResolution {
	case CycleKeyHourly, CycleKeyDaily:
	default:
		return errors.New("billing.cycleKeyResolution must be hourly or daily")
	}
	return nil
}
