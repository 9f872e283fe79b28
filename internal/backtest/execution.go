package backtest

import "github.com/sieng/factor-engine/internal/strategyconfig"

// ExecutionModel charges transaction cost and slippage against a period's
// gross portfolio return.
type ExecutionModel struct {
	costBps float64
}

// NewExecutionModel derives the total round-trip cost from the strategy's
// execution timing config.
func NewExecutionModel(bundle *strategyconfig.Bundle) *ExecutionModel {
	timing := bundle.Strategy.ExecutionTiming
	return &ExecutionModel{costBps: timing.TransactionCostBps + timing.SlippageBps}
}

// ApplyCosts returns the net period return after costs.
func (m *ExecutionModel) ApplyCosts(gross float64) float64 {
	return gross - m.costBps/10000
}
