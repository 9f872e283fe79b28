package signals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/factors"
	"github.com/sieng/factor-engine/internal/memstore"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

// A rising stock must outrank a flat one on pure momentum, end to end
// through the factor engine and the generator.
func TestMomentumRankingScenario(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &contracts.Run{AsOfDate: asOf}
	require.NoError(t, store.Runs().Create(ctx, run))

	seed := func(ticker string, rising bool) {
		require.NoError(t, store.Universe().EnsureSymbol(ctx, contracts.Symbol{Ticker: ticker}))
		require.NoError(t, store.Universe().EnsureOpenMembership(ctx, ticker, asOf.AddDate(-2, 0, 0), "test"))
		observations := make([]contracts.PriceObservation, 0, 260)
		for i := 259; i >= 0; i-- {
			price := 100.0
			if rising {
				price = 100.0 + float64(259-i)
			}
			observations = append(observations, contracts.PriceObservation{
				Ticker:    ticker,
				Date:      asOf.AddDate(0, 0, -i),
				AdjClose:  price,
				Volume:    50_000,
				HasVolume: true,
			})
		}
		store.SeedPrices(ticker, observations)
	}
	seed("UP.SN", true)
	seed("FLAT.SN", false)

	bundle := strategyconfig.Default()
	bundle.Strategy.FactorWeights = map[string]float64{contracts.FactorMomentum12M: 1.0}
	bundle.Strategy.LiquidityFilters.MedianTradedValueCLP = 1000

	engine := factors.NewEngine(store, &bundle, logger.NewNop())
	require.NoError(t, engine.Compute(ctx, run, asOf))

	upMomentum, err := store.Factors().Get(ctx, run.ID, "UP.SN", contracts.FactorMomentum12M)
	require.NoError(t, err)
	assert.Greater(t, upMomentum.Value, 0.0)

	flatMomentum, err := store.Factors().Get(ctx, run.ID, "FLAT.SN", contracts.FactorMomentum12M)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, flatMomentum.Value, 1e-12)

	gen := NewGenerator(store, &bundle, logger.NewNop())
	results, err := gen.Build(ctx, run, asOf)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "UP.SN", results[0].Ticker)
	assert.Equal(t, "FLAT.SN", results[1].Ticker)
}
