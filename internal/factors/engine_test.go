package factors

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

// seedSeries loads days of steadily rising daily closes ending at asOf.
func seedSeries(store *memstore.Store, ticker string, asOf time.Time, days int, withVolume bool) {
	observations := make([]contracts.PriceObservation, 0, days)
	price := 100.0
	for i := days - 1; i >= 0; i-- {
		observations = append(observations, contracts.PriceObservation{
			Ticker:    ticker,
			Date:      asOf.AddDate(0, 0, -i),
			AdjClose:  price,
			Volume:    10_000,
			HasVolume: withVolume,
		})
		price *= 1.001
	}
	store.SeedPrices(ticker, observations)
}

func TestEngineComputePersistsFactorsAndLiquidity(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &contracts.Run{AsOfDate: asOf}
	require.NoError(t, store.Runs().Create(ctx, run))
	require.NoError(t, store.Universe().EnsureSymbol(ctx, contracts.Symbol{Ticker: "SQM-B.SN"}))
	require.NoError(t, store.Universe().EnsureOpenMembership(ctx, "SQM-B.SN", asOf.AddDate(-2, 0, 0), "test"))
	seedSeries(store, "SQM-B.SN", asOf, 300, true)

	bundle := strategyconfig.Default()
	engine := NewEngine(store, &bundle, logger.NewNop())
	require.NoError(t, engine.Compute(ctx, run, asOf))

	for _, name := range []string{
		contracts.FactorMomentum12M,
		contracts.FactorMomentum6M,
		contracts.FactorRealizedVol,
		contracts.FactorMaxDrawdown,
	} {
		value, err := store.Factors().Get(ctx, run.ID, "SQM-B.SN", name)
		require.NoError(t, err, name)
		assert.Equal(t, run.ID, value.RunID)
	}

	metric, err := store.Factors().LatestLiquidity(ctx, run.ID, "SQM-B.SN")
	require.NoError(t, err)
	assert.Equal(t, 90, metric.LookbackDays)
	assert.Greater(t, metric.MedianTradedValue, 0.0)
}

func TestEngineComputeShortHistorySkipsLongFactors(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &contracts.Run{AsOfDate: asOf}
	require.NoError(t, store.Runs().Create(ctx, run))
	require.NoError(t, store.Universe().EnsureSymbol(ctx, contracts.Symbol{Ticker: "CAP.SN"}))
	require.NoError(t, store.Universe().EnsureOpenMembership(ctx, "CAP.SN", asOf.AddDate(-1, 0, 0), "test"))
	seedSeries(store, "CAP.SN", asOf, 150, true)

	bundle := strategyconfig.Default()
	engine := NewEngine(store, &bundle, logger.NewNop())
	require.NoError(t, engine.Compute(ctx, run, asOf))

	// 150 observations cover the 126-day lookbacks but not 252.
	_, err := store.Factors().Get(ctx, run.ID, "CAP.SN", contracts.FactorMomentum12M)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	_, err = store.Factors().Get(ctx, run.ID, "CAP.SN", contracts.FactorMomentum6M)
	assert.NoError(t, err)

	// Max drawdown uses whatever window exists.
	_, err = store.Factors().Get(ctx, run.ID, "CAP.SN", contracts.FactorMaxDrawdown)
	assert.NoError(t, err)
}

func TestEngineComputeNoVolumeOmitsLiquidity(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &contracts.Run{AsOfDate: asOf}
	require.NoError(t, store.Runs().Create(ctx, run))
	require.NoError(t, store.Universe().EnsureSymbol(ctx, contracts.Symbol{Ticker: "ILC.SN"}))
	require.NoError(t, store.Universe().EnsureOpenMembership(ctx, "ILC.SN", asOf.AddDate(-1, 0, 0), "test"))
	seedSeries(store, "ILC.SN", asOf, 300, false)

	bundle := strategyconfig.Default()
	engine := NewEngine(store, &bundle, logger.NewNop())
	require.NoError(t, engine.Compute(ctx, run, asOf))

	_, err := store.Factors().LatestLiquidity(ctx, run.ID, "ILC.SN")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestEngineComputeEmptyUniverse(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &contracts.Run{AsOfDate: asOf}
	require.NoError(t, store.Runs().Create(ctx, run))

	bundle := strategyconfig.Default()
	engine := NewEngine(store, &bundle, logger.NewNop())
	assert.NoError(t, engine.Compute(ctx, run, asOf))
}
