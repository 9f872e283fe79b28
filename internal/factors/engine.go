// Package factors computes momentum, risk and liquidity factors over
// trailing adjusted price windows.
package factors

import (
	"context"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

// priceWindow caps the trailing observations loaded per symbol. 300
// trading days comfortably covers the longest 252-day lookback.
const priceWindow = 300

const defaultLiquidityLookback = 90

// Factor computation methods.
const (
	methodMomentum    = "momentum"
	methodVolatility  = "volatility"
	methodMaxDrawdown = "max_drawdown"
)

// Definition names one factor and its trailing lookback.
type Definition struct {
	Name     string
	Lookback int
	Method   string
}

// DefaultDefinitions returns the built-in factor set. The names match the
// factor_weights keys in the strategy config.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: contracts.FactorMomentum12M, Lookback: 252, Method: methodMomentum},
		{Name: contracts.FactorMomentum6M, Lookback: 126, Method: methodMomentum},
		{Name: contracts.FactorRealizedVol, Lookback: 126, Method: methodVolatility},
		{Name: contracts.FactorMaxDrawdown, Lookback: 252, Method: methodMaxDrawdown},
	}
}

// Engine computes and persists factor values for the active universe.
type Engine struct {
	store       contracts.Store
	bundle      *strategyconfig.Bundle
	log         *logger.Logger
	definitions []Definition
}

// NewEngine creates a factor engine with the default factor set.
func NewEngine(store contracts.Store, bundle *strategyconfig.Bundle, log *logger.Logger) *Engine {
	return &Engine{
		store:       store,
		bundle:      bundle,
		log:         log,
		definitions: DefaultDefinitions(),
	}
}

// Compute calculates every factor and the liquidity metric for each active
// symbol as of asOf, persisting the results in one transaction. Symbols
// with too little history are skipped per factor, not failed.
func (e *Engine) Compute(ctx context.Context, run *contracts.Run, asOf time.Time) error {
	computed := 0
	skipped := 0

	err := e.store.WithTx(ctx, func(tx contracts.Store) error {
		tickers, err := tx.Universe().ActiveTickers(ctx, run.AsOfDate)
		if err != nil {
			return fmt.Errorf("load active universe: %w", err)
		}

		for _, ticker := range tickers {
			window, err := tx.Prices().Trailing(ctx, ticker, asOf, priceWindow)
			if err != nil {
				return fmt.Errorf("load prices for %s: %w", ticker, err)
			}
			if len(window) == 0 {
				skipped++
				continue
			}

			closes := make([]float64, len(window))
			for i, obs := range window {
				closes[i] = obs.AdjClose
			}

			for _, def := range e.definitions {
				value, ok := e.computeFactor(closes, def)
				if !ok {
					continue
				}
				fv := contracts.FactorValue{
					Ticker:     ticker,
					RunID:      run.ID,
					FactorName: def.Name,
					Date:       asOf,
					Value:      value,
				}
				if err := tx.Factors().Upsert(ctx, fv); err != nil {
					return fmt.Errorf("save factor %s for %s: %w", def.Name, ticker, err)
				}
				computed++
			}

			lookback := e.bundle.Strategy.LiquidityFilters.LookbackDays
			if lookback <= 0 {
				lookback = defaultLiquidityLookback
			}
			liquidityWindow := window
			if len(liquidityWindow) > lookback {
				liquidityWindow = liquidityWindow[len(liquidityWindow)-lookback:]
			}
			median, ok := MedianTradedValue(liquidityWindow)
			if !ok {
				continue
			}
			metric := contracts.LiquidityMetric{
				Ticker:            ticker,
				RunID:             run.ID,
				Date:              asOf,
				LookbackDays:      lookback,
				MedianTradedValue: median,
			}
			if err := tx.Factors().UpsertLiquidity(ctx, metric); err != nil {
				return fmt.Errorf("save liquidity for %s: %w", ticker, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.log.WithFields(map[string]interface{}{
		"run_id":   run.ID,
		"as_of":    asOf.Format("2006-01-02"),
		"computed": computed,
		"skipped":  skipped,
	}).Info("factor computation finished")
	return nil
}

func (e *Engine) computeFactor(closes []float64, def Definition) (float64, bool) {
	switch def.Method {
	case methodMomentum:
		return Momentum(closes, def.Lookback)
	case methodVolatility:
		return RealizedVol(closes, def.Lookback)
	case methodMaxDrawdown:
		return MaxDrawdown(closes)
	default:
		return 0, false
	}
}
