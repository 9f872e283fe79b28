package store

import (
	"context"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// SignalRepository implements contracts.SignalRepository.
type SignalRepository struct {
	q database.Querier
}

// GetByRunAndDate returns persisted signals for (run, as-of date). An empty
// result means the cache is cold.
func (r *SignalRepository) GetByRunAndDate(ctx context.Context, runID string, asOf time.Time) ([]contracts.Signal, error) {
	query := `
		SELECT ticker, score, liquidity
		FROM signals
		WHERE run_id = $1 AND as_of_date = $2
	`

	rows, err := r.q.Query(ctx, query, runID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []contracts.Signal
	for rows.Next() {
		var sig contracts.Signal
		if err := rows.Scan(&sig.Ticker, &sig.Score, &sig.Liquidity); err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// SaveBatch upserts signals for (run, as-of date); re-running is idempotent.
func (r *SignalRepository) SaveBatch(ctx context.Context, runID string, asOf time.Time, signals []contracts.Signal) error {
	query := `
		INSERT INTO signals (run_id, ticker, as_of_date, score, liquidity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, ticker, as_of_date) DO UPDATE SET
			score = EXCLUDED.score,
			liquidity = EXCLUDED.liquidity
	`
	for _, sig := range signals {
		if _, err := r.q.Exec(ctx, query, runID, sig.Ticker, asOf, sig.Score, sig.Liquidity); err != nil {
			return err
		}
	}
	return nil
}
