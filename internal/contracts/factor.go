package contracts

import "time"

// Canonical factor names. These must match the factor_weights keys in the
// strategy config for a signal to be generated.
const (
	FactorMomentum12M = "momentum_12_1"
	FactorMomentum6M  = "momentum_6_1"
	FactorRealizedVol = "realized_vol"
	FactorMaxDrawdown = "max_drawdown"
)

// FactorValue is one computed factor for a symbol at an as-of date.
// Recomputing for the same (ticker, run, factor, date) upserts.
type FactorValue struct {
	Ticker     string
	RunID      string
	FactorName string
	Date       time.Time
	Value      float64
}

// LiquidityMetric is the trailing median traded value for a symbol.
// MedianTradedValue is non-negative by construction.
type LiquidityMetric struct {
	Ticker            string
	RunID             string
	Date              time.Time
	LookbackDays      int
	MedianTradedValue float64
}
