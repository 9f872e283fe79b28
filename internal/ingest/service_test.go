package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/memstore"
	"github.com/sieng/factor-engine/internal/provider"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/logger"
)

// fakeProvider returns canned series and records what was requested.
type fakeProvider struct {
	prices    map[string][]contracts.PriceObservation
	requested []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchPrices(_ context.Context, requests []provider.PriceRequest) (map[string][]contracts.PriceObservation, error) {
	results := make(map[string][]contracts.PriceObservation)
	for _, req := range requests {
		f.requested = append(f.requested, req.Ticker)
		if series, ok := f.prices[req.Ticker]; ok {
			results[req.Ticker] = series
		}
	}
	return results, nil
}

func (f *fakeProvider) FetchMetadata(_ context.Context, tickers []string) (map[string]contracts.Symbol, error) {
	info := make(map[string]contracts.Symbol)
	for _, ticker := range tickers {
		info[ticker] = contracts.Symbol{Ticker: ticker}
	}
	return info, nil
}

func ingestBundle(tickers ...string) strategyconfig.Bundle {
	bundle := strategyconfig.Default()
	for _, ticker := range tickers {
		bundle.Universe.Constituents = append(bundle.Universe.Constituents, strategyconfig.UniverseEntry{
			Ticker: ticker, Currency: "CLP",
		})
	}
	return bundle
}

func TestIngestPersistsFetchedPrices(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &contracts.Run{AsOfDate: asOf}
	require.NoError(t, store.Runs().Create(ctx, run))

	fake := &fakeProvider{prices: map[string][]contracts.PriceObservation{
		"CAP.SN": {
			{Ticker: "CAP.SN", Date: asOf.AddDate(0, 0, -1), AdjClose: 100, Volume: 1000, HasVolume: true},
			{Ticker: "CAP.SN", Date: asOf, AdjClose: 101, Volume: 1100, HasVolume: true},
		},
	}}

	bundle := ingestBundle("CAP.SN")
	svc := NewService(store, fake, &bundle, logger.NewNop())
	require.NoError(t, svc.Ingest(ctx, run, asOf.AddDate(0, -1, 0), asOf))

	series, err := store.Prices().Trailing(ctx, "CAP.SN", asOf, 10)
	require.NoError(t, err)
	assert.Len(t, series, 2)

	// The constituent gained a symbol row and an open membership.
	active, err := store.Universe().ActiveTickers(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"CAP.SN"}, active)
}

func TestIngestFallsBackToStaticUniverse(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &contracts.Run{AsOfDate: asOf}
	require.NoError(t, store.Runs().Create(ctx, run))

	fake := &fakeProvider{}
	bundle := ingestBundle("CAP.SN", "ILC.SN")
	svc := NewService(store, fake, &bundle, logger.NewNop())
	require.NoError(t, svc.Ingest(ctx, run, asOf.AddDate(0, -1, 0), asOf))

	// No membership existed, so the static universe was requested and the
	// run flagged.
	assert.Equal(t, []string{"CAP.SN", "ILC.SN"}, fake.requested)

	saved, err := store.Runs().Get(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, saved.SurvivorshipFlag)
}

func TestIngestActiveMembershipSkipsFallback(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	asOf := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &contracts.Run{AsOfDate: asOf}
	require.NoError(t, store.Runs().Create(ctx, run))
	require.NoError(t, store.Universe().EnsureSymbol(ctx, contracts.Symbol{Ticker: "SQM-B.SN"}))
	require.NoError(t, store.Universe().EnsureOpenMembership(ctx, "SQM-B.SN", asOf.AddDate(-1, 0, 0), "csv"))

	fake := &fakeProvider{}
	bundle := ingestBundle("CAP.SN")
	svc := NewService(store, fake, &bundle, logger.NewNop())
	require.NoError(t, svc.Ingest(ctx, run, asOf.AddDate(0, -1, 0), asOf))

	// Only the member was requested, not the static constituent.
	assert.Equal(t, []string{"SQM-B.SN"}, fake.requested)

	saved, err := store.Runs().Get(ctx, run.ID)
	require.NoError(t, err)
	assert.False(t, saved.SurvivorshipFlag)
}
