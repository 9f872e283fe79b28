// Package backtest walks the monthly rebalance schedule forward, applying
// the t/t+1 execution lag and trading costs.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/portfolio"
	"github.com/sieng/factor-engine/internal/signals"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

// periodsPerYear is the monthly rebalance cadence used for annualization.
const periodsPerYear = 12

// ErrScheduleTooShort is returned when the date range spans fewer than two
// schedule points.
var ErrScheduleTooShort = errors.New("backtest requires at least two month-end dates")

// Runner executes a walk-forward backtest over a run's stored data.
type Runner struct {
	store     contracts.Store
	bundle    *strategyconfig.Bundle
	log       *logger.Logger
	signals   *signals.Generator
	portfolio *portfolio.Builder
	execution *ExecutionModel
}

// NewRunner creates a backtest runner with its own signal generator and
// portfolio builder over the same store.
func NewRunner(store contracts.Store, bundle *strategyconfig.Bundle, log *logger.Logger) *Runner {
	return &Runner{
		store:     store,
		bundle:    bundle,
		log:       log,
		signals:   signals.NewGenerator(store, bundle, log),
		portfolio: portfolio.NewBuilder(store, bundle, log),
		execution: NewExecutionModel(bundle),
	}
}

// Run walks each month-end between start and end: signals are built at the
// rebalance close, entry happens on the next weekday's first available
// price, exit on the last price at or before the following month end.
// Positions without both prices drop out flat while keeping their original
// weight; costs are charged only when at least one position contributed.
// The equity curve and summary are persisted and the summary returned.
func (r *Runner) Run(ctx context.Context, run *contracts.Run, start, end time.Time) (*contracts.BacktestResult, error) {
	schedule := MonthEndDates(start, end)
	if len(schedule) < 2 {
		return nil, ErrScheduleTooShort
	}

	capital := 1.0
	points := []contracts.EquityPoint{{RunID: run.ID, Date: start, Capital: capital}}

	for i := 0; i < len(schedule)-1; i++ {
		rebalanceDate := schedule[i]
		nextRebalance := schedule[i+1]

		// Membership and signal caching follow the rebalance date, not
		// the run's original as-of date.
		runAt := *run
		runAt.AsOfDate = rebalanceDate

		sigs, err := r.signals.Build(ctx, &runAt, rebalanceDate)
		if err != nil {
			return nil, fmt.Errorf("build signals at %s: %w", rebalanceDate.Format("2006-01-02"), err)
		}
		positions, err := r.portfolio.Build(ctx, &runAt, rebalanceDate, sigs)
		if err != nil {
			return nil, fmt.Errorf("build portfolio at %s: %w", rebalanceDate.Format("2006-01-02"), err)
		}
		if len(positions) == 0 {
			points = append(points, contracts.EquityPoint{RunID: run.ID, Date: nextRebalance, Capital: capital})
			continue
		}

		tradeDate := NextTradingDay(rebalanceDate)
		periodReturn, err := r.periodReturn(ctx, positions, tradeDate, nextRebalance)
		if err != nil {
			return nil, err
		}
		capital *= 1 + periodReturn
		points = append(points, contracts.EquityPoint{RunID: run.ID, Date: nextRebalance, Capital: capital})
	}

	curve := make([]float64, len(points))
	for i, point := range points {
		curve[i] = point.Capital
	}
	summary := ComputeSummary(curve, periodsPerYear)

	result := &contracts.BacktestResult{
		RunID:        run.ID,
		StartDate:    start,
		EndDate:      end,
		FinalCapital: points[len(points)-1].Capital,
		CAGR:         summary.CAGR,
		Volatility:   summary.Volatility,
		MaxDrawdown:  summary.MaxDrawdown,
		Periods:      summary.Periods,
	}

	err := r.store.WithTx(ctx, func(tx contracts.Store) error {
		if err := tx.Backtests().UpsertResult(ctx, result); err != nil {
			return fmt.Errorf("save backtest result: %w", err)
		}
		if err := tx.Backtests().UpsertEquityPoints(ctx, points); err != nil {
			return fmt.Errorf("save equity curve: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.WithFields(map[string]interface{}{
		"run_id":        run.ID,
		"start":         start.Format("2006-01-02"),
		"end":           end.Format("2006-01-02"),
		"final_capital": result.FinalCapital,
		"cagr":          result.CAGR,
	}).Info("backtest finished")
	return result, nil
}

// periodReturn values each position from its entry price on or after
// tradeDate to its exit price on or before exitDate. Positions missing
// either price contribute nothing. A period where no position contributed
// returns exactly zero with no costs.
func (r *Runner) periodReturn(ctx context.Context, positions []contracts.Position, tradeDate, exitDate time.Time) (float64, error) {
	total := 0.0
	effectiveWeight := 0.0

	for _, pos := range positions {
		entry, err := r.store.Prices().OnOrAfter(ctx, pos.Ticker, tradeDate)
		if errors.Is(err, contracts.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("entry price for %s: %w", pos.Ticker, err)
		}
		exit, err := r.store.Prices().OnOrBefore(ctx, pos.Ticker, exitDate)
		if errors.Is(err, contracts.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("exit price for %s: %w", pos.Ticker, err)
		}

		gross := exit.AdjClose/entry.AdjClose - 1
		total += pos.Weight * gross
		effectiveWeight += pos.Weight
	}

	if effectiveWeight == 0 {
		return 0, nil
	}
	return r.execution.ApplyCosts(total), nil
}
