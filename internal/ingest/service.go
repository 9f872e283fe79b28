// Package ingest orchestrates provider fetches and price persistence for
// one run.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/provider"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

const membershipSource = "universe_config"

// Service ingests adjusted prices for the run's active universe.
type Service struct {
	store    contracts.Store
	provider provider.DataProvider
	bundle   *strategyconfig.Bundle
	log      *logger.Logger
}

// NewService creates an ingestion service.
func NewService(store contracts.Store, dataProvider provider.DataProvider, bundle *strategyconfig.Bundle, log *logger.Logger) *Service {
	return &Service{store: store, provider: dataProvider, bundle: bundle, log: log}
}

// Ingest resolves the active universe, fetches daily bars between start
// and end, and persists them in one transaction. When no membership row is
// active at the run's as-of date the engine falls back to the full static
// configured universe and flags the run for survivorship bias.
func (s *Service) Ingest(ctx context.Context, run *contracts.Run, start, end time.Time) error {
	tickers, err := s.activeTickers(ctx, run)
	if err != nil {
		return err
	}
	if err := s.ensureSymbols(ctx, run); err != nil {
		return err
	}

	requests := make([]provider.PriceRequest, 0, len(tickers))
	for _, ticker := range tickers {
		requests = append(requests, provider.PriceRequest{Ticker: ticker, Start: start, End: end})
	}

	frames, err := s.provider.FetchPrices(ctx, requests)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	var batch []contracts.PriceObservation
	fetched := make([]string, 0, len(frames))
	for ticker, observations := range frames {
		batch = append(batch, observations...)
		fetched = append(fetched, ticker)
	}
	sort.Strings(fetched)

	if len(batch) > 0 {
		err = s.store.WithTx(ctx, func(tx contracts.Store) error {
			return tx.Prices().SaveBatch(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("save prices: %w", err)
		}
	}

	s.log.WithFields(map[string]interface{}{
		"run_id":       run.ID,
		"requested":    len(tickers),
		"fetched":      len(fetched),
		"observations": len(batch),
	}).Info("ingestion finished")
	return nil
}

// activeTickers resolves the membership-based universe, falling back to
// the static config when it is empty.
func (s *Service) activeTickers(ctx context.Context, run *contracts.Run) ([]string, error) {
	tickers, err := s.store.Universe().ActiveTickers(ctx, run.AsOfDate)
	if err != nil {
		return nil, fmt.Errorf("load active universe: %w", err)
	}
	if len(tickers) > 0 {
		return tickers, nil
	}

	if err := s.store.Runs().SetSurvivorship(ctx, run.ID, true); err != nil {
		return nil, fmt.Errorf("flag survivorship: %w", err)
	}
	run.SurvivorshipFlag = true
	s.log.WithField("run_id", run.ID).Warn("no active membership, falling back to static universe")

	fallback := make([]string, 0, len(s.bundle.Universe.Constituents))
	for _, entry := range s.bundle.Universe.Constituents {
		fallback = append(fallback, entry.Ticker)
	}
	return fallback, nil
}

// ensureSymbols seeds symbol rows and open memberships for every
// configured constituent.
func (s *Service) ensureSymbols(ctx context.Context, run *contracts.Run) error {
	return s.store.WithTx(ctx, func(tx contracts.Store) error {
		for _, entry := range s.bundle.Universe.Constituents {
			symbol := contracts.Symbol{
				Ticker:   entry.Ticker,
				Name:     entry.Name,
				Currency: entry.Currency,
				Sector:   entry.Sector,
			}
			if err := tx.Universe().EnsureSymbol(ctx, symbol); err != nil {
				return fmt.Errorf("ensure symbol %s: %w", entry.Ticker, err)
			}
			if err := tx.Universe().EnsureOpenMembership(ctx, entry.Ticker, run.AsOfDate, membershipSource); err != nil {
				return fmt.Errorf("ensure membership %s: %w", entry.Ticker, err)
			}
		}
		return nil
	})
}
