package contracts

import (
	"context"
	"time"
)

// RunRepository manages run lifecycle rows.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	UpdateStage(ctx context.Context, id, stage string) error
	SetSurvivorship(ctx context.Context, id string, flag bool) error
}

// PriceRepository manages adjusted daily prices.
type PriceRepository interface {
	// Trailing returns up to limit observations on or before asOf,
	// sorted ascending by date.
	Trailing(ctx context.Context, ticker string, asOf time.Time, limit int) ([]PriceObservation, error)
	// OnOrAfter returns the nearest observation dated >= target, or
	// ErrNotFound.
	OnOrAfter(ctx context.Context, ticker string, target time.Time) (*PriceObservation, error)
	// OnOrBefore returns the nearest observation dated <= target, or
	// ErrNotFound.
	OnOrBefore(ctx context.Context, ticker string, target time.Time) (*PriceObservation, error)
	SaveBatch(ctx context.Context, observations []PriceObservation) error
}

// FactorRepository manages factor values and liquidity metrics.
type FactorRepository interface {
	Upsert(ctx context.Context, value FactorValue) error
	// Get returns the factor value for (run, ticker, name), or ErrNotFound.
	Get(ctx context.Context, runID, ticker, name string) (*FactorValue, error)
	UpsertLiquidity(ctx context.Context, metric LiquidityMetric) error
	// LatestLiquidity returns the most recent liquidity metric for
	// (run, ticker), or ErrNotFound.
	LatestLiquidity(ctx context.Context, runID, ticker string) (*LiquidityMetric, error)
}

// SignalRepository manages persisted signals, which double as the
// per-(run, date) cache.
type SignalRepository interface {
	GetByRunAndDate(ctx context.Context, runID string, asOf time.Time) ([]Signal, error)
	SaveBatch(ctx context.Context, runID string, asOf time.Time, signals []Signal) error
}

// PortfolioRepository manages persisted rebalance positions.
type PortfolioRepository interface {
	SaveBatch(ctx context.Context, runID string, rebalanceDate time.Time, positions []Position) error
	GetByRun(ctx context.Context, runID string) ([]Position, error)
}

// BacktestRepository manages backtest results and equity curves.
type BacktestRepository interface {
	UpsertResult(ctx context.Context, result *BacktestResult) error
	UpsertEquityPoints(ctx context.Context, points []EquityPoint) error
	GetResult(ctx context.Context, runID string) (*BacktestResult, error)
	GetEquityCurve(ctx context.Context, runID string) ([]EquityPoint, error)
}

// UniverseRepository manages symbols and membership intervals.
type UniverseRepository interface {
	EnsureSymbol(ctx context.Context, symbol Symbol) error
	AllSymbols(ctx context.Context) ([]Symbol, error)
	UpsertMembership(ctx context.Context, membership Membership) error
	// EnsureOpenMembership creates an open-ended membership starting at
	// startDate unless one is already open for the ticker.
	EnsureOpenMembership(ctx context.Context, ticker string, startDate time.Time, source string) error
	// ActiveTickers returns the distinct symbols whose membership interval
	// contains asOf.
	ActiveTickers(ctx context.Context, asOf time.Time) ([]string, error)
}

// AuditRepository manages override audits and provider logs.
type AuditRepository interface {
	SaveOverride(ctx context.Context, audit OverrideAudit) error
	SaveProviderLog(ctx context.Context, log ProviderLog) error
}

// Store aggregates the repositories behind a single persistence handle.
// WithTx runs fn against a store whose repositories share one transaction;
// the batch commits only when fn returns nil.
type Store interface {
	Runs() RunRepository
	Prices() PriceRepository
	Factors() FactorRepository
	Signals() SignalRepository
	Portfolios() PortfolioRepository
	Backtests() BacktestRepository
	Universe() UniverseRepository
	Audits() AuditRepository

	WithTx(ctx context.Context, fn func(Store) error) error
}
