package factors

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/internal/contracts"
)

func TestMomentum(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		lookback int
		want     float64
		ok       bool
	}{
		{
			name:     "full window",
			closes:   []float64{100, 105, 110, 120},
			lookback: 4,
			want:     0.2,
			ok:       true,
		},
		{
			name:     "partial lookback uses tail",
			closes:   []float64{50, 100, 110},
			lookback: 2,
			want:     0.1,
			ok:       true,
		},
		{
			name:     "insufficient data",
			closes:   []float64{100, 110},
			lookback: 3,
			ok:       false,
		},
		{
			name:     "empty series",
			closes:   nil,
			lookback: 1,
			ok:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Momentum(tt.closes, tt.lookback)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestRealizedVol(t *testing.T) {
	// Returns are 0.1, -0.1, 0.1; sample std is sqrt(0.0133...) annualized.
	closes := []float64{100, 110, 99, 108.9}
	got, ok := RealizedVol(closes, 3)
	require.True(t, ok)
	expected := 0.11547005383792516 * math.Sqrt(252)
	assert.InDelta(t, expected, got, 1e-9)
}

func TestRealizedVolInsufficientData(t *testing.T) {
	_, ok := RealizedVol([]float64{100, 110}, 3)
	assert.False(t, ok)

	// A single close yields no returns at all.
	_, ok = RealizedVol([]float64{100}, 1)
	assert.False(t, ok)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
		ok     bool
	}{
		{
			name:   "peak then trough",
			closes: []float64{100, 120, 90, 95},
			want:   -0.25,
			ok:     true,
		},
		{
			name:   "monotonic rise has zero drawdown",
			closes: []float64{100, 105, 110},
			want:   0,
			ok:     true,
		},
		{
			name:   "single observation",
			closes: []float64{100},
			want:   0,
			ok:     true,
		},
		{
			name:   "empty",
			closes: nil,
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MaxDrawdown(tt.closes)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestMedianTradedValue(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	obs := func(price, volume float64, hasVolume bool) contracts.PriceObservation {
		return contracts.PriceObservation{Date: day, AdjClose: price, Volume: volume, HasVolume: hasVolume}
	}

	t.Run("odd count", func(t *testing.T) {
		window := []contracts.PriceObservation{
			obs(10, 100, true), // 1000
			obs(10, 300, true), // 3000
			obs(10, 200, true), // 2000
		}
		got, ok := MedianTradedValue(window)
		require.True(t, ok)
		assert.InDelta(t, 2000, got, 1e-12)
	})

	t.Run("even count averages middle pair", func(t *testing.T) {
		window := []contracts.PriceObservation{
			obs(10, 100, true),
			obs(10, 200, true),
			obs(10, 300, true),
			obs(10, 400, true),
		}
		got, ok := MedianTradedValue(window)
		require.True(t, ok)
		assert.InDelta(t, 2500, got, 1e-12)
	})

	t.Run("missing volume rows are ignored", func(t *testing.T) {
		window := []contracts.PriceObservation{
			obs(10, 0, false),
			obs(10, 500, true),
		}
		got, ok := MedianTradedValue(window)
		require.True(t, ok)
		assert.InDelta(t, 5000, got, 1e-12)
	})

	t.Run("no volume at all", func(t *testing.T) {
		window := []contracts.PriceObservation{obs(10, 0, false)}
		_, ok := MedianTradedValue(window)
		assert.False(t, ok)
	})
}
