package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// FactorRepository implements contracts.FactorRepository.
type FactorRepository struct {
	q database.Querier
}

// Upsert writes a factor value; recomputation for the same key overwrites.
func (r *FactorRepository) Upsert(ctx context.Context, value contracts.FactorValue) error {
	query := `
		INSERT INTO factor_values (ticker, run_id, factor_name, value_date, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticker, run_id, factor_name, value_date) DO UPDATE SET
			value = EXCLUDED.value
	`
	_, err := r.q.Exec(ctx, query, value.Ticker, value.RunID, value.FactorName, value.Date, value.Value)
	return err
}

// Get returns the most recent factor value for (run, ticker, name).
func (r *FactorRepository) Get(ctx context.Context, runID, ticker, name string) (*contracts.FactorValue, error) {
	query := `
		SELECT ticker, run_id, factor_name, value_date, value
		FROM factor_values
		WHERE run_id = $1 AND ticker = $2 AND factor_name = $3
		ORDER BY value_date DESC
		LIMIT 1
	`

	var value contracts.FactorValue
	err := r.q.QueryRow(ctx, query, runID, ticker, name).Scan(
		&value.Ticker, &value.RunID, &value.FactorName, &value.Date, &value.Value,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// UpsertLiquidity writes a liquidity metric for (ticker, run, date).
func (r *FactorRepository) UpsertLiquidity(ctx context.Context, metric contracts.LiquidityMetric) error {
	query := `
		INSERT INTO liquidity_metrics (ticker, run_id, metric_date, lookback_days, median_traded_value_clp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticker, run_id, metric_date) DO UPDATE SET
			lookback_days = EXCLUDED.lookback_days,
			median_traded_value_clp = EXCLUDED.median_traded_value_clp
	`
	_, err := r.q.Exec(ctx, query, metric.Ticker, metric.RunID, metric.Date, metric.LookbackDays, metric.MedianTradedValue)
	return err
}

// LatestLiquidity returns the most recent liquidity metric for (run, ticker).
func (r *FactorRepository) LatestLiquidity(ctx context.Context, runID, ticker string) (*contracts.LiquidityMetric, error) {
	query := `
		SELECT ticker, run_id, metric_date, lookback_days, median_traded_value_clp
		FROM liquidity_metrics
		WHERE run_id = $1 AND ticker = $2
		ORDER BY metric_date DESC
		LIMIT 1
	`

	var metric contracts.LiquidityMetric
	err := r.q.QueryRow(ctx, query, runID, ticker).Scan(
		&metric.Ticker, &metric.RunID, &metric.Date, &metric.LookbackDays, &metric.MedianTradedValue,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &metric, nil
}
