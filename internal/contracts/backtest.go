package contracts

import "time"

// EquityPoint is one point of a backtest equity curve. Capital starts at
// 1.0 by convention.
type EquityPoint struct {
	RunID   string
	Date    time.Time
	Capital float64
}

// BacktestResult is the performance summary of one backtest run, derived
// from its equity curve.
type BacktestResult struct {
	RunID        string
	StartDate    time.Time
	EndDate      time.Time
	FinalCapital float64
	CAGR         float64
	Volatility   float64
	MaxDrawdown  float64
	Periods      int
}

// OverrideAudit records one override proposal pulled from the workspace,
// whether it was applied, and by whom.
type OverrideAudit struct {
	RunID     string
	Source    string
	Field     string
	OldValue  string
	NewValue  string
	Author    string
	Enabled   bool
	AppliedAt time.Time
}

// ProviderLog records one provider call for reproducibility audits.
type ProviderLog struct {
	RunID        string
	Provider     string
	Endpoint     string
	ParamsHash   string
	ResponseHash string
	FetchedAt    time.Time
}
