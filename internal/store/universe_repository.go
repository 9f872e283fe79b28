package store

import (
	"context"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// UniverseRepository implements contracts.UniverseRepository.
type UniverseRepository struct {
	q database.Querier
}

// EnsureSymbol inserts the symbol if missing, keeping existing metadata.
func (r *UniverseRepository) EnsureSymbol(ctx context.Context, symbol contracts.Symbol) error {
	query := `
		INSERT INTO symbols (ticker, name, currency, sector)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query, symbol.Ticker, symbol.Name, symbol.Currency, symbol.Sector)
	return err
}

// AllSymbols returns every known symbol ordered by ticker.
func (r *UniverseRepository) AllSymbols(ctx context.Context) ([]contracts.Symbol, error) {
	query := `
		SELECT ticker, COALESCE(name, ''), currency, COALESCE(sector, '')
		FROM symbols
		ORDER BY ticker ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []contracts.Symbol
	for rows.Next() {
		var sym contracts.Symbol
		if err := rows.Scan(&sym.Ticker, &sym.Name, &sym.Currency, &sym.Sector); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// UpsertMembership writes a membership interval keyed by (ticker, start).
func (r *UniverseRepository) UpsertMembership(ctx context.Context, membership contracts.Membership) error {
	query := `
		INSERT INTO universe_membership (ticker, start_date, end_date, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker, start_date) DO UPDATE SET
			end_date = EXCLUDED.end_date,
			source = EXCLUDED.source
	`
	_, err := r.q.Exec(ctx, query, membership.Ticker, membership.StartDate, membership.EndDate, membership.Source)
	return err
}

// EnsureOpenMembership creates an open-ended membership starting at
// startDate unless one is already open for the ticker.
func (r *UniverseRepository) EnsureOpenMembership(ctx context.Context, ticker string, startDate time.Time, source string) error {
	query := `
		INSERT INTO universe_membership (ticker, start_date, end_date, source)
		SELECT $1, $2, NULL, $3
		WHERE NOT EXISTS (
			SELECT 1 FROM universe_membership
			WHERE ticker = $1 AND end_date IS NULL
		)
		ON CONFLICT (ticker, start_date) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query, ticker, startDate, source)
	return err
}

// ActiveTickers returns distinct symbols whose membership interval
// contains asOf.
func (r *UniverseRepository) ActiveTickers(ctx context.Context, asOf time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT ticker
		FROM universe_membership
		WHERE start_date <= $1 AND (end_date IS NULL OR end_date >= $1)
		ORDER BY ticker ASC
	`

	rows, err := r.q.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, err
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}
