package store

import (
	"context"
	"fmt"
)

// schema is the full DDL for the engine. Statements are idempotent so the
// migrate command can run repeatedly.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id            TEXT PRIMARY KEY,
		as_of_date        DATE NOT NULL,
		rebalance_date    DATE,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		stage             TEXT NOT NULL DEFAULT 'pending',
		params_json       JSONB,
		survivorship_flag BOOLEAN NOT NULL DEFAULT FALSE,
		config_hash       TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS symbols (
		ticker   TEXT PRIMARY KEY,
		name     TEXT,
		currency TEXT NOT NULL DEFAULT 'CLP',
		sector   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS universe_membership (
		ticker     TEXT NOT NULL REFERENCES symbols(ticker),
		start_date DATE NOT NULL,
		end_date   DATE,
		source     TEXT NOT NULL DEFAULT 'manual',
		PRIMARY KEY (ticker, start_date)
	)`,
	`CREATE TABLE IF NOT EXISTS prices_adjusted (
		ticker     TEXT NOT NULL REFERENCES symbols(ticker),
		price_date DATE NOT NULL,
		adj_close  DOUBLE PRECISION NOT NULL,
		volume     DOUBLE PRECISION,
		PRIMARY KEY (ticker, price_date)
	)`,
	`CREATE TABLE IF NOT EXISTS factor_values (
		ticker      TEXT NOT NULL REFERENCES symbols(ticker),
		run_id      TEXT NOT NULL REFERENCES runs(run_id),
		factor_name TEXT NOT NULL,
		value_date  DATE NOT NULL,
		value       DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ticker, run_id, factor_name, value_date)
	)`,
	`CREATE TABLE IF NOT EXISTS liquidity_metrics (
		ticker                  TEXT NOT NULL REFERENCES symbols(ticker),
		run_id                  TEXT NOT NULL REFERENCES runs(run_id),
		metric_date             DATE NOT NULL,
		lookback_days           INTEGER NOT NULL,
		median_traded_value_clp DOUBLE PRECISION NOT NULL CHECK (median_traded_value_clp >= 0),
		PRIMARY KEY (ticker, run_id, metric_date)
	)`,
	`CREATE TABLE IF NOT EXISTS signals (
		run_id     TEXT NOT NULL REFERENCES runs(run_id),
		ticker     TEXT NOT NULL REFERENCES symbols(ticker),
		as_of_date DATE NOT NULL,
		score      DOUBLE PRECISION NOT NULL,
		liquidity  DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ticker, as_of_date)
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio_positions (
		run_id         TEXT NOT NULL REFERENCES runs(run_id),
		ticker         TEXT NOT NULL REFERENCES symbols(ticker),
		rebalance_date DATE NOT NULL,
		weight         DOUBLE PRECISION NOT NULL,
		liquidity_cap  DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ticker, rebalance_date)
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_results (
		run_id        TEXT PRIMARY KEY REFERENCES runs(run_id),
		start_date    DATE NOT NULL,
		end_date      DATE NOT NULL,
		final_capital DOUBLE PRECISION NOT NULL,
		cagr          DOUBLE PRECISION,
		volatility    DOUBLE PRECISION,
		max_drawdown  DOUBLE PRECISION,
		periods       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_equity_curve (
		run_id     TEXT NOT NULL REFERENCES runs(run_id),
		point_date DATE NOT NULL,
		capital    DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, point_date)
	)`,
	`CREATE TABLE IF NOT EXISTS override_audit (
		id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		run_id     TEXT REFERENCES runs(run_id),
		source     TEXT NOT NULL,
		field      TEXT NOT NULL,
		old_value  TEXT,
		new_value  TEXT,
		author     TEXT,
		enabled    BOOLEAN NOT NULL DEFAULT FALSE,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS provider_logs (
		id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		run_id        TEXT NOT NULL REFERENCES runs(run_id),
		provider      TEXT NOT NULL,
		endpoint      TEXT NOT NULL,
		params_hash   TEXT NOT NULL,
		response_hash TEXT NOT NULL,
		fetched_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_ticker_date ON prices_adjusted (ticker, price_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_factor_values_run ON factor_values (run_id, ticker)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_run_date ON signals (run_id, as_of_date)`,
}

// Migrate creates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
