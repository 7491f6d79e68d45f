package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecayAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d float64) *time.Time {
		ts := now.Add(-time.Duration(d * 24 * float64(time.Hour)))
		return &ts
	}

	assert.Equal(t, 1.0, DecayAt(now, nil, 365))
	assert.InDelta(t, 1.0, DecayAt(now, daysAgo(0), 365), 1e-9)
	assert.InDelta(t, 0.5, DecayAt(now, daysAgo(365), 365), 0.01)
	assert.InDelta(t, 0.25, DecayAt(now, daysAgo(60), 30), 1e-9)

	future := now.Add(48 * time.Hour)
	assert.Equal(t, 1.0, DecayAt(now, &future, 365))

	assert.InDelta(t, 0.5, DecayAt(now, daysAgo(365), 0), 1e-9, "non-positive half-life falls back to the default")
}

func TestDecayAt_StrictlyDecreasing(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := 1.1
	for _, days := range []int{0, 1, 7, 30, 180, 365, 1000, 5000} {
		ts := now.AddDate(0, 0, -days)
		d := DecayAt(now, &ts, 365)
		assert.Less(t, d, prev, "decay at %d days", days)
		assert.Greater(t, d, 0.0)
		prev = d
	}
}

func TestDecay_UsesCurrentTime(t *testing.T) {
	yearAgo := time.Now().Add(-365 * 24 * time.Hour)
	assert.InDelta(t, 0.5, Decay(&yearAgo, 365), 0.01)
}
