package backtest

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

func backtestBundle(costBps, slippageBps float64) strategyconfig.Bundle {
	bundle := strategyconfig.Default()
	bundle.Strategy.FactorWeights = map[string]float64{contracts.FactorMomentum12M: 1.0}
	bundle.Strategy.LiquidityFilters.MedianTradedValueCLP = 1000
	bundle.Strategy.LiquidityFilters.MaxWeightPctOfADV = 100
	bundle.Strategy.ExecutionTiming.TransactionCostBps = costBps
	bundle.Strategy.ExecutionTiming.SlippageBps = slippageBps
	return bundle
}

// seedSignalInputs wires up the factor and liquidity rows the signal
// generator needs for one ticker.
func seedSignalInputs(t *testing.T, store *memstore.Store, run *contracts.Run, ticker string, momentum float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Universe().EnsureSymbol(ctx, contracts.Symbol{Ticker: ticker}))
	require.NoError(t, store.Universe().EnsureOpenMembership(ctx, ticker, run.AsOfDate.AddDate(-2, 0, 0), "test"))
	require.NoError(t, store.Factors().Upsert(ctx, contracts.FactorValue{
		Ticker:     ticker,
		RunID:      run.ID,
		FactorName: contracts.FactorMomentum12M,
		Date:       run.AsOfDate,
		Value:      momentum,
	}))
	require.NoError(t, store.Factors().UpsertLiquidity(ctx, contracts.LiquidityMetric{
		Ticker:            ticker,
		RunID:             run.ID,
		Date:              run.AsOfDate,
		LookbackDays:      90,
		MedianTradedValue: 1e9,
	}))
}

func seedPrice(t *testing.T, store *memstore.Store, ticker string, date time.Time, price float64) {
	t.Helper()
	require.NoError(t, store.Prices().SaveBatch(context.Background(), []contracts.PriceObservation{
		{Ticker: ticker, Date: date, AdjClose: price, Volume: 10_000, HasVolume: true},
	}))
}

func TestRunSinglePeriodReturn(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	start := day(2024, 5, 31)
	end := day(2024, 6, 30)

	run := &contracts.Run{AsOfDate: start}
	require.NoError(t, store.Runs().Create(ctx, run))
	seedSignalInputs(t, store, run, "AAA.SN", 0.5)

	// Entry on the Monday after the May rebalance at 100, exit at 110.
	seedPrice(t, store, "AAA.SN", day(2024, 6, 3), 100)
	seedPrice(t, store, "AAA.SN", day(2024, 6, 28), 110)

	bundle := backtestBundle(0, 0)
	runner := NewRunner(store, &bundle, logger.NewNop())
	result, err := runner.Run(ctx, run, start, end)
	require.NoError(t, err)

	assert.InDelta(t, 1.10, result.FinalCapital, 1e-12)
	assert.Equal(t, 2, result.Periods)

	curve, err := store.Backtests().GetEquityCurve(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.InDelta(t, 1.0, curve[0].Capital, 1e-12)
	assert.InDelta(t, 1.10, curve[1].Capital, 1e-12)

	saved, err := store.Backtests().GetResult(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, result, saved)
}

func TestRunFlatPricesDrainCosts(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	start := day(2024, 4, 30)
	end := day(2024, 6, 30)

	run := &contracts.Run{AsOfDate: start}
	require.NoError(t, store.Runs().Create(ctx, run))
	seedSignalInputs(t, store, run, "AAA.SN", 0.5)

	for _, d := range []time.Time{
		day(2024, 5, 1), day(2024, 5, 31),
		day(2024, 6, 3), day(2024, 6, 28),
	} {
		seedPrice(t, store, "AAA.SN", d, 100)
	}

	bundle := backtestBundle(20, 5)
	runner := NewRunner(store, &bundle, logger.NewNop())
	result, err := runner.Run(ctx, run, start, end)
	require.NoError(t, err)

	// Two flat periods each lose exactly 25 bps.
	perPeriod := 1 - 0.0025
	assert.InDelta(t, perPeriod*perPeriod, result.FinalCapital, 1e-12)

	curve, err := store.Backtests().GetEquityCurve(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, curve, 3)
	for i := 1; i < len(curve); i++ {
		assert.Less(t, curve[i].Capital, curve[i-1].Capital)
	}
}

func TestRunMissingPricesStayFlatWithoutCosts(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	start := day(2024, 5, 31)
	end := day(2024, 6, 30)

	run := &contracts.Run{AsOfDate: start}
	require.NoError(t, store.Runs().Create(ctx, run))
	seedSignalInputs(t, store, run, "GONE.SN", 0.5)
	// No prices at all: the position drops out and the period is flat.

	bundle := backtestBundle(20, 5)
	runner := NewRunner(store, &bundle, logger.NewNop())
	result, err := runner.Run(ctx, run, start, end)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.FinalCapital, 1e-12)
}

func TestRunEmptyUniverseStaysFlat(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	start := day(2024, 5, 31)
	end := day(2024, 6, 30)

	run := &contracts.Run{AsOfDate: start}
	require.NoError(t, store.Runs().Create(ctx, run))

	bundle := backtestBundle(20, 5)
	runner := NewRunner(store, &bundle, logger.NewNop())
	result, err := runner.Run(ctx, run, start, end)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.FinalCapital, 1e-12)
}

func TestRunScheduleTooShort(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	run := &contracts.Run{AsOfDate: day(2024, 6, 5)}
	require.NoError(t, store.Runs().Create(ctx, run))

	bundle := backtestBundle(0, 0)
	runner := NewRunner(store, &bundle, logger.NewNop())
	_, err := runner.Run(ctx, run, day(2024, 6, 5), day(2024, 6, 20))
	assert.ErrorIs(t, err, ErrScheduleTooShort)
}
