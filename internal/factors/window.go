package factors

import (
	"math"
	"sort"

	"github.com/sieng/factor-engine/internal/contracts"
)

// Momentum returns price[-1]/price[-lookback] - 1 over an ascending close
// series. The second return is false when the window is shorter than the
// lookback.
func Momentum(closes []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(closes) < lookback {
		return 0, false
	}
	start := closes[len(closes)-lookback]
	end := closes[len(closes)-1]
	return end/start - 1, true
}

// RealizedVol returns the annualized sample standard deviation of the
// trailing lookback daily simple returns. The window must hold at least
// lookback closes, and at least two returns must remain after differencing.
func RealizedVol(closes []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(closes) < lookback {
		return 0, false
	}
	returns := dailyReturns(closes)
	if len(returns) > lookback {
		returns = returns[len(returns)-lookback:]
	}
	if len(returns) < 2 {
		return 0, false
	}
	return sampleStd(returns) * math.Sqrt(252), true
}

// MaxDrawdown returns the minimum of price[t]/running_max[t] - 1 across the
// entire window. The result is 0 for a monotonically rising series and
// negative otherwise.
func MaxDrawdown(closes []float64) (float64, bool) {
	if len(closes) == 0 {
		return 0, false
	}
	runningMax := closes[0]
	worst := 0.0
	for _, price := range closes {
		if price > runningMax {
			runningMax = price
		}
		drawdown := price/runningMax - 1
		if drawdown < worst {
			worst = drawdown
		}
	}
	return worst, true
}

// MedianTradedValue returns the median of price*volume over the window,
// ignoring observations without a volume figure. The second return is false
// when no observation carries volume.
func MedianTradedValue(window []contracts.PriceObservation) (float64, bool) {
	var values []float64
	for _, obs := range window {
		if obs.HasVolume {
			values = append(values, obs.TradedValue())
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid], true
	}
	return (values[mid-1] + values[mid]) / 2, true
}

func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	return returns
}

// sampleStd is the ddof=1 standard deviation.
func sampleStd(values []float64) float64 {
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
	return math.Sqrt(sumSq / float64(len(values)-1))
}
