package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sieng/factor-engine/internal/strategyconfig"
)

func TestApplyCosts(t *testing.T) {
	bundle := strategyconfig.Default()
	bundle.Strategy.ExecutionTiming.TransactionCostBps = 20
	bundle.Strategy.ExecutionTiming.SlippageBps = 5

	model := NewExecutionModel(&bundle)
	assert.InDelta(t, 0.0075, model.ApplyCosts(0.01), 1e-12)
	assert.InDelta(t, -0.0025, model.ApplyCosts(0), 1e-12)
}

func TestComputeSummaryEmptyCurve(t *testing.T) {
	summary := ComputeSummary(nil, 12)
	assert.Equal(t, Summary{}, summary)
}

func TestComputeSummarySinglePoint(t *testing.T) {
	summary := ComputeSummary([]float64{1.0}, 12)
	assert.Equal(t, 1, summary.Periods)
	assert.Zero(t, summary.CAGR)
	assert.Zero(t, summary.Volatility)
	assert.Zero(t, summary.MaxDrawdown)
}

func TestComputeSummaryTwoPoints(t *testing.T) {
	summary := ComputeSummary([]float64{1.0, 1.1}, 12)

	// One monthly period annualizes to 1.1^12 - 1.
	assert.InDelta(t, math.Pow(1.1, 12)-1, summary.CAGR, 1e-9)
	assert.Zero(t, summary.Volatility) // one return has zero dispersion
	assert.Zero(t, summary.MaxDrawdown)
	assert.Equal(t, 2, summary.Periods)
}

func TestComputeSummaryDrawdownAndVolatility(t *testing.T) {
	summary := ComputeSummary([]float64{1.0, 1.1, 0.99}, 12)

	// Returns are +0.1 and -0.1: zero mean, population std 0.1.
	assert.InDelta(t, 0.1*math.Sqrt(12), summary.Volatility, 1e-9)
	assert.InDelta(t, 0.99/1.1-1, summary.MaxDrawdown, 1e-9)
	assert.InDelta(t, math.Pow(0.99, 6)-1, summary.CAGR, 1e-9)
	assert.Equal(t, 3, summary.Periods)
}

func TestComputeSummaryNonPositiveCompounding(t *testing.T) {
	// A wiped-out curve cannot be annualized; CAGR pins to zero.
	summary := ComputeSummary([]float64{1.0, 0.0}, 12)
	assert.Zero(t, summary.CAGR)
	assert.InDelta(t, -1.0, summary.MaxDrawdown, 1e-12)
}
