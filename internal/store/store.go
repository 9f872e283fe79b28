package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/database"
)

// Store implements contracts.Store over PostgreSQL. The zero handle runs
// every statement directly on the pool; WithTx derives a handle whose
// repositories share one transaction.
type Store struct {
	db *database.DB
	q  database.Querier
}

// New creates a store over the given database handle.
func New(db *database.DB) *Store {
	return &Store{db: db, q: db.Pool}
}

// Runs returns the run repository.
func (s *Store) Runs() contracts.RunRepository { return &RunRepository{q: s.q} }

// Prices returns the price repository.
func (s *Store) Prices() contracts.PriceRepository { return &PriceRepository{q: s.q} }

// Factors returns the factor repository.
func (s *Store) Factors() contracts.FactorRepository { return &FactorRepository{q: s.q} }

// Signals returns the signal repository.
func (s *Store) Signals() contracts.SignalRepository { return &SignalRepository{q: s.q} }

// Portfolios returns the portfolio repository.
func (s *Store) Portfolios() contracts.PortfolioRepository { return &PortfolioRepository{q: s.q} }

// Backtests returns the backtest repository.
func (s *Store) Backtests() contracts.BacktestRepository { return &BacktestRepository{q: s.q} }

// Universe returns the universe repository.
func (s *Store) Universe() contracts.UniverseRepository { return &UniverseRepository{q: s.q} }

// Audits returns the audit repository.
func (s *Store) Audits() contracts.AuditRepository { return &AuditRepository{q: s.q} }

// WithTx runs fn against a store bound to a single transaction. Nested
// calls reuse the surrounding transaction.
func (s *Store) WithTx(ctx context.Context, fn func(contracts.Store) error) error {
	if _, ok := s.q.(pgx.Tx); ok {
		return fn(s)
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&Store{db: s.db, q: tx})
	})
}
