package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/memstore"
)

func TestBuildRunSummary(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	run := &contracts.Run{AsOfDate: asOf, SurvivorshipFlag: true, Params: map[string]any{"start": "2023-01-01"}}
	require.NoError(t, store.Runs().Create(ctx, run))

	require.NoError(t, store.Portfolios().SaveBatch(ctx, run.ID, asOf, []contracts.Position{
		{Ticker: "CAP.SN", Weight: 0.6, LiquidityCap: 1},
		{Ticker: "ILC.SN", Weight: 0.4, LiquidityCap: 1},
	}))
	require.NoError(t, store.Backtests().UpsertResult(ctx, &contracts.BacktestResult{
		RunID:        run.ID,
		FinalCapital: 1.2,
		Periods:      13,
	}))

	summary, err := BuildRunSummary(ctx, store, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, summary.RunID)
	assert.Equal(t, "2024-06-28", summary.AsOfDate)
	assert.True(t, summary.SurvivorshipFlag)
	require.Len(t, summary.Positions, 2)
	assert.Equal(t, "CAP.SN", summary.Positions[0].Ticker)
	require.NotNil(t, summary.Metrics)
	assert.InDelta(t, 1.2, summary.Metrics.FinalCapital, 1e-12)
	assert.Equal(t, "2023-01-01", summary.Params["start"])
}

func TestBuildRunSummaryWithoutBacktest(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	run := &contracts.Run{AsOfDate: time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Runs().Create(ctx, run))

	summary, err := BuildRunSummary(ctx, store, run.ID)
	require.NoError(t, err)
	assert.Nil(t, summary.Metrics)
	assert.Empty(t, summary.Positions)
}

func TestBuildRunSummaryUnknownRun(t *testing.T) {
	_, err := BuildRunSummary(context.Background(), memstore.New(), "run_missing")
	assert.ErrorIs(t, err, contracts.ErrRunNotFound)
}
