package domain

import (
	"testing"
	"time"

	"github.com/smallbiznis/netbill/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestCostForBytes(t *testing.T) {
	cases := []struct {
		name       string
		delta      int64
		pricePerGB int64
		wantGB     int64
		wantCost   int64
	}{
		{"exact unit", GiB, 1_000, 1, 1_000},
		{"partial rounds up", GiB / 5, 1_000, 1, 1_000},
		{"one byte over", GiB + 1, 1_000, 2, 2_000},
		{"multiple units", 5 * GiB, 1_000, 5, 5_000},
		{"zero delta", 0, 1_000, 0, 0},
		{"negative delta", -GiB, 1_000, 0, 0},
		{"zero price", GiB, 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gb, cost := CostForBytes(tc.delta, tc.pricePerGB)
			assert.Equal(t, tc.wantGB, gb)
			assert.Equal(t, tc.wantCost, cost)
		})
	}
}

func TestCycleKey(t *testing.T) {
	at := time.Date(2026, 1, 2, 10, 45, 30, 0, time.UTC)

	assert.Equal(t, "2026-01-02T10", CycleKey(at, config.CycleKeyHourly))
	assert.Equal(t, "2026-01-02", CycleKey(at, config.CycleKeyDaily))

	// Same hour, different minute resolves to the same key.
	assert.Equal(t, CycleKey(at, config.CycleKeyHourly), CycleKey(at.Add(10*time.Minute), config.CycleKeyHourly))
	// Next hour rolls over.
	assert.NotEqual(t, CycleKey(at, config.CycleKeyHourly), CycleKey(at.Add(time.Hour), config.CycleKeyHourly))
}

func TestCycleStart(t *testing.T) {
	at := time.Date(2026, 1, 2, 10, 45, 30, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), CycleStart(at, config.CycleKeyHourly))
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), CycleStart(at, config.CycleKeyDaily))
}
