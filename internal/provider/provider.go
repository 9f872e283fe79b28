// Package provider isolates market data sources behind a common interface.
// Every provider call is fingerprinted into the provider log so a run's
// inputs can be audited later.
package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/httputil"
	"github.com/sieng/factor-engine/pkg/logger"
)

// PriceRequest asks a provider for one ticker's daily history.
type PriceRequest struct {
	Ticker   string
	Start    time.Time
	End      time.Time
	Interval string
}

// DataProvider fetches market data. Unknown or delisted tickers are
// omitted from the result, never returned as errors, so one dead symbol
// cannot fail a whole batch.
type DataProvider interface {
	Name() string
	FetchPrices(ctx context.Context, requests []PriceRequest) (map[string][]contracts.PriceObservation, error)
	FetchMetadata(ctx context.Context, tickers []string) (map[string]contracts.Symbol, error)
}

// CallRecorder persists provider call fingerprints. The store's audit
// repository satisfies it.
type CallRecorder interface {
	SaveProviderLog(ctx context.Context, log contracts.ProviderLog) error
}

// New builds the provider selected by the config bundle.
func New(bundle *strategyconfig.Bundle, client *httputil.Client, recorder CallRecorder, run *contracts.Run, log *logger.Logger) (DataProvider, error) {
	switch bundle.Provider.ID {
	case "yahoo", "":
		return NewYahoo(bundle.Provider.BaseURL, client, recorder, run, log), nil
	case "bolsa":
		return NewBolsa(bundle.Provider.BaseURL, client, recorder, run, log), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", bundle.Provider.ID)
	}
}

func hashText(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// responseHashLimit caps how much of a payload feeds the fingerprint.
const responseHashLimit = 10_000

func hashPayload(payload []byte) string {
	if len(payload) > responseHashLimit {
		payload = payload[:responseHashLimit]
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func recordCall(ctx context.Context, recorder CallRecorder, run *contracts.Run, providerName, endpoint, params string, payload []byte) error {
	if recorder == nil || run == nil {
		return nil
	}
	return recorder.SaveProviderLog(ctx, contracts.ProviderLog{
		RunID:        run.ID,
		Provider:     providerName,
		Endpoint:     endpoint,
		ParamsHash:   hashText(params),
		ResponseHash: hashPayload(payload),
		FetchedAt:    time.Now().UTC(),
	})
}
