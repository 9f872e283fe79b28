package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// PriceRepository implements contracts.PriceRepository.
type PriceRepository struct {
	q database.Querier
}

// Trailing returns up to limit observations on or before asOf, ascending
// by date.
func (r *PriceRepository) Trailing(ctx context.Context, ticker string, asOf time.Time, limit int) ([]contracts.PriceObservation, error) {
	query := `
		SELECT ticker, price_date, adj_close, volume
		FROM (
			SELECT ticker, price_date, adj_close, volume
			FROM prices_adjusted
			WHERE ticker = $1 AND price_date <= $2
			ORDER BY price_date DESC
			LIMIT $3
		) trailing
		ORDER BY price_date ASC
	`

	rows, err := r.q.Query(ctx, query, ticker, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []contracts.PriceObservation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// OnOrAfter returns the nearest observation dated >= target.
func (r *PriceRepository) OnOrAfter(ctx context.Context, ticker string, target time.Time) (*contracts.PriceObservation, error) {
	query := `
		SELECT ticker, price_date, adj_close, volume
		FROM prices_adjusted
		WHERE ticker = $1 AND price_date >= $2
		ORDER BY price_date ASC
		LIMIT 1
	`
	return r.queryOne(ctx, query, ticker, target)
}

// OnOrBefore returns the nearest observation dated <= target.
func (r *PriceRepository) OnOrBefore(ctx context.Context, ticker string, target time.Time) (*contracts.PriceObservation, error) {
	query := `
		SELECT ticker, price_date, adj_close, volume
		FROM prices_adjusted
		WHERE ticker = $1 AND price_date <= $2
		ORDER BY price_date DESC
		LIMIT 1
	`
	return r.queryOne(ctx, query, ticker, target)
}

// SaveBatch upserts observations; re-ingesting a (ticker, date) overwrites.
func (r *PriceRepository) SaveBatch(ctx context.Context, observations []contracts.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}

	query := `
		INSERT INTO prices_adjusted (ticker, price_date, adj_close, volume)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker, price_date) DO UPDATE SET
			adj_close = EXCLUDED.adj_close,
			volume = EXCLUDED.volume
	`
	for _, obs := range observations {
		var volume *float64
		if obs.HasVolume {
			volume = &obs.Volume
		}
		if _, err := r.q.Exec(ctx, query, obs.Ticker, obs.Date, obs.AdjClose, volume); err != nil {
			return fmt.Errorf("save price %s %s: %w", obs.Ticker, obs.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

func (r *PriceRepository) queryOne(ctx context.Context, query, ticker string, target time.Time) (*contracts.PriceObservation, error) {
	row := r.q.QueryRow(ctx, query, ticker, target)
	obs, err := scanObservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

func scanObservation(row pgx.Row) (contracts.PriceObservation, error) {
	var obs contracts.PriceObservation
	var volume *float64
	if err := row.Scan(&obs.Ticker, &obs.Date, &obs.AdjClose, &volume); err != nil {
		return contracts.PriceObservation{}, err
	}
	if volume != nil {
		obs.Volume = *volume
		obs.HasVolume = true
	}
	return obs, nil
}
