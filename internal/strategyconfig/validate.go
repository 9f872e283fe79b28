package strategyconfig

import "fmt"

// Validate checks the bundle for configuration errors. These are fatal:
// a bundle that fails validation never reaches the pipeline.
func Validate(bundle *Bundle) error {
	if bundle.Provider.ID == "" {
		return fmt.Errorf("provider.id is required")
	}

	s := bundle.Strategy
	if len(s.FactorWeights) == 0 {
		return fmt.Errorf("strategy.factor_weights must not be empty")
	}
	if s.LiquidityFilters.MedianTradedValueCLP < 0 {
		return fmt.Errorf("strategy.liquidity_filters.median_traded_value_clp must be non-negative")
	}
	if s.LiquidityFilters.LookbackDays <= 0 {
		return fmt.Errorf("strategy.liquidity_filters.lookback_days must be positive")
	}
	if s.LiquidityFilters.MaxWeightPctOfADV <= 0 || s.LiquidityFilters.MaxWeightPctOfADV > 100 {
		return fmt.Errorf("strategy.liquidity_filters.max_weight_pct_of_adv must be in (0, 100]")
	}
	if s.ExecutionTiming.TransactionCostBps < 0 {
		return fmt.Errorf("strategy.execution_timing.transaction_cost_bps must be non-negative")
	}
	if s.ExecutionTiming.SlippageBps < 0 {
		return fmt.Errorf("strategy.execution_timing.slippage_bps must be non-negative")
	}
	if s.TopN <= 0 {
		return fmt.Errorf("strategy.top_n must be positive")
	}

	seen := make(map[string]bool, len(bundle.Universe.Constituents))
	for _, entry := range bundle.Universe.Constituents {
		if entry.Ticker == "" {
			return fmt.Errorf("universe constituent with empty ticker")
		}
		if seen[entry.Ticker] {
			return fmt.Errorf("universe constituent %s listed twice", entry.Ticker)
		}
		seen[entry.Ticker] = true
	}

	return nil
}
