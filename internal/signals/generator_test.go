package signals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/memstore"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

func testBundle() strategyconfig.Bundle {
	bundle := strategyconfig.Default()
	bundle.Strategy.FactorWeights = map[string]float64{
		contracts.FactorMomentum12M: 0.5,
		contracts.FactorRealizedVol: -0.5,
	}
	bundle.Strategy.LiquidityFilters.MedianTradedValueCLP = 1000
	return bundle
}

func seedSymbol(t *testing.T, store *memstore.Store, run *contracts.Run, ticker string, liquidity float64, factorValues map[string]float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Universe().EnsureSymbol(ctx, contracts.Symbol{Ticker: ticker}))
	require.NoError(t, store.Universe().EnsureOpenMembership(ctx, ticker, run.AsOfDate.AddDate(-1, 0, 0), "test"))
	if liquidity >= 0 {
		require.NoError(t, store.Factors().UpsertLiquidity(ctx, contracts.LiquidityMetric{
			Ticker:            ticker,
			RunID:             run.ID,
			Date:              run.AsOfDate,
			LookbackDays:      90,
			MedianTradedValue: liquidity,
		}))
	}
	for name, value := range factorValues {
		require.NoError(t, store.Factors().Upsert(ctx, contracts.FactorValue{
			Ticker:     ticker,
			RunID:      run.ID,
			FactorName: name,
			Date:       run.AsOfDate,
			Value:      value,
		}))
	}
}

func newRun(t *testing.T, store *memstore.Store) *contracts.Run {
	t.Helper()
	run := &contracts.Run{AsOfDate: time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Runs().Create(context.Background(), run))
	return run
}

func TestBuildRanksByWeightedScore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	run := newRun(t, store)
	bundle := testBundle()

	seedSymbol(t, store, run, "AAA.SN", 5000, map[string]float64{
		contracts.FactorMomentum12M: 0.30,
		contracts.FactorRealizedVol: 0.20,
	}) // 0.5*0.30 - 0.5*0.20 = 0.05
	seedSymbol(t, store, run, "BBB.SN", 5000, map[string]float64{
		contracts.FactorMomentum12M: 0.60,
		contracts.FactorRealizedVol: 0.10,
	}) // 0.5*0.60 - 0.5*0.10 = 0.25

	gen := NewGenerator(store, &bundle, logger.NewNop())
	signals, err := gen.Build(ctx, run, run.AsOfDate)
	require.NoError(t, err)

	require.Len(t, signals, 2)
	assert.Equal(t, "BBB.SN", signals[0].Ticker)
	assert.InDelta(t, 0.25, signals[0].Score, 1e-12)
	assert.Equal(t, "AAA.SN", signals[1].Ticker)
	assert.InDelta(t, 0.05, signals[1].Score, 1e-12)
}

func TestBuildFiltersIlliquidAndIncomplete(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	run := newRun(t, store)
	bundle := testBundle()

	// Below the 1000 CLP threshold.
	seedSymbol(t, store, run, "THIN.SN", 500, map[string]float64{
		contracts.FactorMomentum12M: 0.9,
		contracts.FactorRealizedVol: 0.1,
	})
	// No liquidity metric at all.
	seedSymbol(t, store, run, "NOLIQ.SN", -1, map[string]float64{
		contracts.FactorMomentum12M: 0.9,
		contracts.FactorRealizedVol: 0.1,
	})
	// Missing realized_vol; excluded entirely, no partial scoring.
	seedSymbol(t, store, run, "PARTIAL.SN", 5000, map[string]float64{
		contracts.FactorMomentum12M: 0.9,
	})
	seedSymbol(t, store, run, "GOOD.SN", 5000, map[string]float64{
		contracts.FactorMomentum12M: 0.4,
		contracts.FactorRealizedVol: 0.2,
	})

	gen := NewGenerator(store, &bundle, logger.NewNop())
	signals, err := gen.Build(ctx, run, run.AsOfDate)
	require.NoError(t, err)

	require.Len(t, signals, 1)
	assert.Equal(t, "GOOD.SN", signals[0].Ticker)
}

func TestBuildServesCacheOnSecondCall(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	run := newRun(t, store)
	bundle := testBundle()

	seedSymbol(t, store, run, "AAA.SN", 5000, map[string]float64{
		contracts.FactorMomentum12M: 0.3,
		contracts.FactorRealizedVol: 0.1,
	})

	gen := NewGenerator(store, &bundle, logger.NewNop())
	first, err := gen.Build(ctx, run, run.AsOfDate)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Raising the threshold after generation must not change the cached
	// result for the same (run, date).
	bundle.Strategy.LiquidityFilters.MedianTradedValueCLP = 1e12
	second, err := gen.Build(ctx, run, run.AsOfDate)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildEmptyUniverse(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	run := newRun(t, store)
	bundle := testBundle()

	gen := NewGenerator(store, &bundle, logger.NewNop())
	signals, err := gen.Build(ctx, run, run.AsOfDate)
	require.NoError(t, err)
	assert.Empty(t, signals)
}
