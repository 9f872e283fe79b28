package backtest

import "math"

// Summary holds the performance metrics derived from an equity curve.
type Summary struct {
	CAGR        float64
	Volatility  float64
	MaxDrawdown float64
	Periods     int
}

// ComputeSummary derives CAGR, annualized volatility and max drawdown from
// an equity curve sampled at periodsPerYear points per year. Curves with
// fewer than two points produce all-zero metrics; Periods always reflects
// the curve length.
func ComputeSummary(curve []float64, periodsPerYear int) Summary {
	if len(curve) == 0 {
		return Summary{}
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		returns = append(returns, curve[i]/curve[i-1]-1)
	}

	compounded := curve[len(curve)-1] / curve[0]
	years := float64(maxInt(len(curve)-1, 1)) / float64(periodsPerYear)
	cagr := 0.0
	if compounded > 0 {
		cagr = math.Pow(compounded, 1/years) - 1
	}

	volatility := 0.0
	if len(returns) > 0 {
		volatility = populationStd(returns) * math.Sqrt(float64(periodsPerYear))
	}

	runningMax := curve[0]
	maxDrawdown := 0.0
	for _, capital := range curve {
		if capital > runningMax {
			runningMax = capital
		}
		drawdown := capital/runningMax - 1
		if drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return Summary{
		CAGR:        cagr,
		Volatility:  volatility,
		MaxDrawdown: maxDrawdown,
		Periods:     len(curve),
	}
}

// populationStd is the ddof=0 standard deviation.
func populationStd(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
