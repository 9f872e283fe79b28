package store

import (
	"context"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// PortfolioRepository implements contracts.PortfolioRepository.
type PortfolioRepository struct {
	q database.Querier
}

// SaveBatch upserts positions for (run, rebalance date).
func (r *PortfolioRepository) SaveBatch(ctx context.Context, runID string, rebalanceDate time.Time, positions []contracts.Position) error {
	query := `
		INSERT INTO portfolio_positions (run_id, ticker, rebalance_date, weight, liquidity_cap)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, ticker, rebalance_date) DO UPDATE SET
			weight = EXCLUDED.weight,
			liquidity_cap = EXCLUDED.liquidity_cap
	`
	for _, pos := range positions {
		if _, err := r.q.Exec(ctx, query, runID, pos.Ticker, rebalanceDate, pos.Weight, pos.LiquidityCap); err != nil {
			return err
		}
	}
	return nil
}

// GetByRun returns all persisted positions for a run, heaviest first.
func (r *PortfolioRepository) GetByRun(ctx context.Context, runID string) ([]contracts.Position, error) {
	query := `
		SELECT ticker, weight, liquidity_cap
		FROM portfolio_positions
		WHERE run_id = $1
		ORDER BY weight DESC
	`

	rows, err := r.q.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []contracts.Position
	for rows.Next() {
		var pos contracts.Position
		if err := rows.Scan(&pos.Ticker, &pos.Weight, &pos.LiquidityCap); err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}
