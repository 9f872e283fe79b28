// Package signals composes factor values into ranked, liquidity-filtered
// composite signals.
package signals

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

// Generator builds composite signals for one run. Generated signals are
// persisted per (run, as-of date); repeated calls for the same key return
// the stored batch without recomputation.
type Generator struct {
	store  contracts.Store
	bundle *strategyconfig.Bundle
	log    *logger.Logger
}

// NewGenerator creates a signal generator.
func NewGenerator(store contracts.Store, bundle *strategyconfig.Bundle, log *logger.Logger) *Generator {
	return &Generator{store: store, bundle: bundle, log: log}
}

// Build returns the run's signals for asOf, descending by score. An empty
// active universe yields an empty list, not an error.
func (g *Generator) Build(ctx context.Context, run *contracts.Run, asOf time.Time) ([]contracts.Signal, error) {
	cached, err := g.store.Signals().GetByRunAndDate(ctx, run.ID, asOf)
	if err != nil {
		return nil, fmt.Errorf("load cached signals: %w", err)
	}
	if len(cached) > 0 {
		sortSignals(cached)
		g.log.WithFields(map[string]interface{}{
			"run_id": run.ID,
			"count":  len(cached),
		}).Debug("serving signals from cache")
		return cached, nil
	}

	var generated []contracts.Signal
	err = g.store.WithTx(ctx, func(tx contracts.Store) error {
		tickers, err := tx.Universe().ActiveTickers(ctx, run.AsOfDate)
		if err != nil {
			return fmt.Errorf("load active universe: %w", err)
		}

		seen := make(map[string]bool, len(tickers))
		for _, ticker := range tickers {
			if seen[ticker] {
				continue
			}
			seen[ticker] = true

			liquidity, ok, err := g.latestLiquidity(ctx, tx, run.ID, ticker)
			if err != nil {
				return err
			}
			if !ok || liquidity < g.bundle.Strategy.LiquidityFilters.MedianTradedValueCLP {
				continue
			}

			score, complete, err := g.composeScore(ctx, tx, run.ID, ticker)
			if err != nil {
				return err
			}
			if !complete {
				continue
			}

			generated = append(generated, contracts.Signal{
				Ticker:    ticker,
				Score:     score,
				Liquidity: liquidity,
			})
		}

		if len(generated) == 0 {
			return nil
		}
		if err := tx.Signals().SaveBatch(ctx, run.ID, asOf, generated); err != nil {
			return fmt.Errorf("save signals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortSignals(generated)
	g.log.WithFields(map[string]interface{}{
		"run_id": run.ID,
		"as_of":  asOf.Format("2006-01-02"),
		"count":  len(generated),
	}).Info("signals generated")
	return generated, nil
}

// composeScore is the weighted linear sum over the configured factor
// weights. A symbol missing any required factor is excluded entirely.
func (g *Generator) composeScore(ctx context.Context, tx contracts.Store, runID, ticker string) (float64, bool, error) {
	score := 0.0
	for name, weight := range g.bundle.Strategy.FactorWeights {
		value, err := tx.Factors().Get(ctx, runID, ticker, name)
		if errors.Is(err, contracts.ErrNotFound) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("load factor %s for %s: %w", name, ticker, err)
		}
		score += weight * value.Value
	}
	return score, true, nil
}

func (g *Generator) latestLiquidity(ctx context.Context, tx contracts.Store, runID, ticker string) (float64, bool, error) {
	metric, err := tx.Factors().LatestLiquidity(ctx, runID, ticker)
	if errors.Is(err, contracts.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load liquidity for %s: %w", ticker, err)
	}
	return metric.MedianTradedValue, true, nil
}

func sortSignals(signals []contracts.Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].Ticker < signals[j].Ticker
	})
}
