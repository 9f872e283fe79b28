package contracts

// Signal is a ranked composite score for one symbol at an as-of date.
// Persisted per (run, ticker, as-of date) so repeated generation for the
// same key is served from the cache.
type Signal struct {
	Ticker    string
	Score     float64
	Liquidity float64
}

// Position is one long-only portfolio position. Weight is in [0, 1] and
// the weights of a non-empty rebalance sum to 1 after renormalization.
// LiquidityCap records the cap that applied before renormalization.
type Position struct {
	Ticker       string
	Weight       float64
	LiquidityCap float64
}

// TotalWeight returns the sum of position weights.
func TotalWeight(positions []Position) float64 {
	total := 0.0
	for _, pos := range positions {
		total += pos.Weight
	}
	return total
}
