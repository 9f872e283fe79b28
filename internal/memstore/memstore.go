// Package memstore provides an in-memory contracts.Store for tests. It
// mirrors the Postgres store's key semantics (upserts, not-found errors,
// sort orders) but offers no transactional isolation: WithTx runs fn
// against the same state.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
)

type signalKey struct {
	RunID string
	Date  string
}

// Store is an in-memory contracts.Store.
type Store struct {
	mu sync.Mutex

	runs        map[string]contracts.Run
	symbols     map[string]contracts.Symbol
	memberships []contracts.Membership
	prices      map[string][]contracts.PriceObservation // per ticker, ascending
	factors     map[string]contracts.FactorValue        // ticker|run|name -> latest
	liquidity   map[string][]contracts.LiquidityMetric  // ticker|run, append order
	signals     map[signalKey][]contracts.Signal
	positions   map[string][]contracts.Position // runID -> positions
	results     map[string]contracts.BacktestResult
	curves      map[string][]contracts.EquityPoint
	Overrides   []contracts.OverrideAudit
	ProviderLog []contracts.ProviderLog
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		runs:      make(map[string]contracts.Run),
		symbols:   make(map[string]contracts.Symbol),
		prices:    make(map[string][]contracts.PriceObservation),
		factors:   make(map[string]contracts.FactorValue),
		liquidity: make(map[string][]contracts.LiquidityMetric),
		signals:   make(map[signalKey][]contracts.Signal),
		positions: make(map[string][]contracts.Position),
		results:   make(map[string]contracts.BacktestResult),
		curves:    make(map[string][]contracts.EquityPoint),
	}
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func (s *Store) Runs() contracts.RunRepository             { return (*runRepo)(s) }
func (s *Store) Prices() contracts.PriceRepository         { return (*priceRepo)(s) }
func (s *Store) Factors() contracts.FactorRepository       { return (*factorRepo)(s) }
func (s *Store) Signals() contracts.SignalRepository       { return (*signalRepo)(s) }
func (s *Store) Portfolios() contracts.PortfolioRepository { return (*portfolioRepo)(s) }
func (s *Store) Backtests() contracts.BacktestRepository   { return (*backtestRepo)(s) }
func (s *Store) Universe() contracts.UniverseRepository    { return (*universeRepo)(s) }
func (s *Store) Audits() contracts.AuditRepository         { return (*auditRepo)(s) }

// WithTx runs fn against the same state. Errors propagate but nothing is
// rolled back.
func (s *Store) WithTx(_ context.Context, fn func(contracts.Store) error) error {
	return fn(s)
}

// SeedPrices loads a price series for a ticker, sorted ascending.
func (s *Store) SeedPrices(ticker string, observations []contracts.PriceObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series := append([]contracts.PriceObservation(nil), observations...)
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	s.prices[ticker] = series
}

type runRepo Store

func (r *runRepo) Create(_ context.Context, run *contracts.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == "" {
		run.ID = fmt.Sprintf("run_mem_%d", len(r.runs)+1)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Stage == "" {
		run.Stage = contracts.StageInitialized
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *runRepo) Get(_ context.Context, id string) (*contracts.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, contracts.ErrRunNotFound
	}
	return &run, nil
}

func (r *runRepo) UpdateStage(_ context.Context, id, stage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return contracts.ErrRunNotFound
	}
	run.Stage = stage
	r.runs[id] = run
	return nil
}

func (r *runRepo) SetSurvivorship(_ context.Context, id string, flag bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return contracts.ErrRunNotFound
	}
	run.SurvivorshipFlag = flag
	r.runs[id] = run
	return nil
}

type priceRepo Store

func (r *priceRepo) Trailing(_ context.Context, ticker string, asOf time.Time, limit int) ([]contracts.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var window []contracts.PriceObservation
	for _, obs := range r.prices[ticker] {
		if !obs.Date.After(asOf) {
			window = append(window, obs)
		}
	}
	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	return append([]contracts.PriceObservation(nil), window...), nil
}

func (r *priceRepo) OnOrAfter(_ context.Context, ticker string, target time.Time) (*contracts.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, obs := range r.prices[ticker] {
		if !obs.Date.Before(target) {
			found := obs
			return &found, nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (r *priceRepo) OnOrBefore(_ context.Context, ticker string, target time.Time) (*contracts.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	series := r.prices[ticker]
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].Date.After(target) {
			found := series[i]
			return &found, nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (r *priceRepo) SaveBatch(_ context.Context, observations []contracts.PriceObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, obs := range observations {
		series := r.prices[obs.Ticker]
		replaced := false
		for i := range series {
			if series[i].Date.Equal(obs.Date) {
				series[i] = obs
				replaced = true
				break
			}
		}
		if !replaced {
			series = append(series, obs)
			sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		}
		r.prices[obs.Ticker] = series
	}
	return nil
}

type factorRepo Store

func factorKey(ticker, runID, name string) string {
	return ticker + "|" + runID + "|" + name
}

func (r *factorRepo) Upsert(_ context.Context, value contracts.FactorValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factors[factorKey(value.Ticker, value.RunID, value.FactorName)] = value
	return nil
}

func (r *factorRepo) Get(_ context.Context, runID, ticker, name string) (*contracts.FactorValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.factors[factorKey(ticker, runID, name)]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return &value, nil
}

func (r *factorRepo) UpsertLiquidity(_ context.Context, metric contracts.LiquidityMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := metric.Ticker + "|" + metric.RunID
	r.liquidity[key] = append(r.liquidity[key], metric)
	return nil
}

func (r *factorRepo) LatestLiquidity(_ context.Context, runID, ticker string) (*contracts.LiquidityMetric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	metrics := r.liquidity[ticker+"|"+runID]
	if len(metrics) == 0 {
		return nil, contracts.ErrNotFound
	}
	latest := metrics[0]
	for _, m := range metrics[1:] {
		if m.Date.After(latest.Date) {
			latest = m
		}
	}
	return &latest, nil
}

type signalRepo Store

func (r *signalRepo) GetByRunAndDate(_ context.Context, runID string, asOf time.Time) ([]contracts.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cached := r.signals[signalKey{RunID: runID, Date: dateKey(asOf)}]
	return append([]contracts.Signal(nil), cached...), nil
}

func (r *signalRepo) SaveBatch(_ context.Context, runID string, asOf time.Time, signals []contracts.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals[signalKey{RunID: runID, Date: dateKey(asOf)}] = append([]contracts.Signal(nil), signals...)
	return nil
}

type portfolioRepo Store

func (r *portfolioRepo) SaveBatch(_ context.Context, runID string, _ time.Time, positions []contracts.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[runID] = append([]contracts.Position(nil), positions...)
	return nil
}

func (r *portfolioRepo) GetByRun(_ context.Context, runID string) ([]contracts.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	positions := append([]contracts.Position(nil), r.positions[runID]...)
	sort.Slice(positions, func(i, j int) bool { return positions[i].Weight > positions[j].Weight })
	return positions, nil
}

type backtestRepo Store

func (r *backtestRepo) UpsertResult(_ context.Context, result *contracts.BacktestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.RunID] = *result
	return nil
}

func (r *backtestRepo) UpsertEquityPoints(_ context.Context, points []contracts.EquityPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, point := range points {
		curve := r.curves[point.RunID]
		replaced := false
		for i := range curve {
			if curve[i].Date.Equal(point.Date) {
				curve[i] = point
				replaced = true
				break
			}
		}
		if !replaced {
			curve = append(curve, point)
			sort.Slice(curve, func(i, j int) bool { return curve[i].Date.Before(curve[j].Date) })
		}
		r.curves[point.RunID] = curve
	}
	return nil
}

func (r *backtestRepo) GetResult(_ context.Context, runID string) (*contracts.BacktestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[runID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return &result, nil
}

func (r *backtestRepo) GetEquityCurve(_ context.Context, runID string) ([]contracts.EquityPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contracts.EquityPoint(nil), r.curves[runID]...), nil
}

type universeRepo Store

func (r *universeRepo) EnsureSymbol(_ context.Context, symbol contracts.Symbol) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.symbols[symbol.Ticker]; !ok {
		r.symbols[symbol.Ticker] = symbol
	}
	return nil
}

func (r *universeRepo) AllSymbols(_ context.Context) ([]contracts.Symbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	symbols := make([]contracts.Symbol, 0, len(r.symbols))
	for _, sym := range r.symbols {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Ticker < symbols[j].Ticker })
	return symbols, nil
}

func (r *universeRepo) UpsertMembership(_ context.Context, membership contracts.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.memberships {
		if r.memberships[i].Ticker == membership.Ticker && r.memberships[i].StartDate.Equal(membership.StartDate) {
			r.memberships[i] = membership
			return nil
		}
	}
	r.memberships = append(r.memberships, membership)
	return nil
}

func (r *universeRepo) EnsureOpenMembership(_ context.Context, ticker string, startDate time.Time, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.Ticker == ticker && m.EndDate == nil {
			return nil
		}
	}
	r.memberships = append(r.memberships, contracts.Membership{
		Ticker:    ticker,
		StartDate: startDate,
		Source:    source,
	})
	return nil
}

func (r *universeRepo) ActiveTickers(_ context.Context, asOf time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var tickers []string
	for _, m := range r.memberships {
		if m.Active(asOf) && !seen[m.Ticker] {
			seen[m.Ticker] = true
			tickers = append(tickers, m.Ticker)
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

type auditRepo Store

func (r *auditRepo) SaveOverride(_ context.Context, audit contracts.OverrideAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Overrides = append(r.Overrides, audit)
	return nil
}

func (r *auditRepo) SaveProviderLog(_ context.Context, log contracts.ProviderLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ProviderLog = append(r.ProviderLog, log)
	return nil
}
