package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// BacktestRepository implements contracts.BacktestRepository.
type BacktestRepository struct {
	q database.Querier
}

// UpsertResult writes the one-per-run backtest summary.
func (r *BacktestRepository) UpsertResult(ctx context.Context, result *contracts.BacktestResult) error {
	query := `
		INSERT INTO backtest_results (run_id, start_date, end_date, final_capital, cagr, volatility, max_drawdown, periods)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			final_capital = EXCLUDED.final_capital,
			cagr = EXCLUDED.cagr,
			volatility = EXCLUDED.volatility,
			max_drawdown = EXCLUDED.max_drawdown,
			periods = EXCLUDED.periods
	`
	_, err := r.q.Exec(ctx, query,
		result.RunID, result.StartDate, result.EndDate, result.FinalCapital,
		result.CAGR, result.Volatility, result.MaxDrawdown, result.Periods,
	)
	return err
}

// UpsertEquityPoints writes the equity curve points.
func (r *BacktestRepository) UpsertEquityPoints(ctx context.Context, points []contracts.EquityPoint) error {
	query := `
		INSERT INTO backtest_equity_curve (run_id, point_date, capital)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, point_date) DO UPDATE SET
			capital = EXCLUDED.capital
	`
	for _, point := range points {
		if _, err := r.q.Exec(ctx, query, point.RunID, point.Date, point.Capital); err != nil {
			return err
		}
	}
	return nil
}

// GetResult returns the backtest summary for a run, or ErrNotFound.
func (r *BacktestRepository) GetResult(ctx context.Context, runID string) (*contracts.BacktestResult, error) {
	query := `
		SELECT run_id, start_date, end_date, final_capital, cagr, volatility, max_drawdown, periods
		FROM backtest_results
		WHERE run_id = $1
	`

	var result contracts.BacktestResult
	err := r.q.QueryRow(ctx, query, runID).Scan(
		&result.RunID, &result.StartDate, &result.EndDate, &result.FinalCapital,
		&result.CAGR, &result.Volatility, &result.MaxDrawdown, &result.Periods,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetEquityCurve returns the equity curve for a run ordered by date.
func (r *BacktestRepository) GetEquityCurve(ctx context.Context, runID string) ([]contracts.EquityPoint, error) {
	query := `
		SELECT run_id, point_date, capital
		FROM backtest_equity_curve
		WHERE run_id = $1
		ORDER BY point_date ASC
	`

	rows, err := r.q.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []contracts.EquityPoint
	for rows.Next() {
		var point contracts.EquityPoint
		if err := rows.Scan(&point.RunID, &point.Date, &point.Capital); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}
