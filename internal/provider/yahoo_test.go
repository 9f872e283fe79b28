package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/memstore"
	"github.com/sieng/factor-engine/pkg/httputil"
	"github.com/sieng/factor-engine/pkg/logger"
)

// Timestamps 2024-06-03 and 2024-06-04 UTC midnight.
const chartPayload = `{
  "chart": {
    "result": [{
      "timestamp": [1717372800, 1717459200],
      "indicators": {
        "quote": [{"close": [101.0, 102.0], "volume": [5000, null]}],
        "adjclose": [{"adjclose": [100.5, 101.5]}]
      }
    }],
    "error": null
  }
}`

func newTestClient() *httputil.Client {
	return httputil.New(logger.NewNop()).DisableRetry()
}

func TestYahooFetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartPayload))
	}))
	defer server.Close()

	store := memstore.New()
	run := &contracts.Run{ID: "run_test"}
	yahoo := NewYahoo(server.URL, newTestClient(), store.Audits(), run, logger.NewNop())

	prices, err := yahoo.FetchPrices(context.Background(), []PriceRequest{{
		Ticker: "SQM-B.SN",
		Start:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	series := prices["SQM-B.SN"]
	require.Len(t, series, 2)

	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), series[0].Date)
	assert.InDelta(t, 100.5, series[0].AdjClose, 1e-12) // adjclose preferred over close
	assert.True(t, series[0].HasVolume)
	assert.InDelta(t, 5000, series[0].Volume, 1e-12)

	// Null volume entries survive without a volume figure.
	assert.False(t, series[1].HasVolume)

	require.Len(t, store.ProviderLog, 1)
	assert.Equal(t, "yahoo", store.ProviderLog[0].Provider)
	assert.Equal(t, "prices", store.ProviderLog[0].Endpoint)
	assert.Len(t, store.ProviderLog[0].ParamsHash, 64)
}

func TestYahooFetchPricesSkipsUnknownTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer server.Close()

	store := memstore.New()
	run := &contracts.Run{ID: "run_test"}
	yahoo := NewYahoo(server.URL, newTestClient(), store.Audits(), run, logger.NewNop())

	prices, err := yahoo.FetchPrices(context.Background(), []PriceRequest{{
		Ticker: "DELISTED.SN",
		Start:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.Len(t, store.ProviderLog, 1) // the failed call is still fingerprinted
}

func TestParseChartSkipsNullCloses(t *testing.T) {
	payload := `{
	  "chart": {
	    "result": [{
	      "timestamp": [1717372800, 1717459200],
	      "indicators": {
	        "quote": [{"close": [null, 102.0], "volume": [null, 700]}],
	        "adjclose": [{"adjclose": [null, null]}]
	      }
	    }],
	    "error": null
	  }
	}`
	observations, err := parseChart("X.SN", []byte(payload))
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.InDelta(t, 102.0, observations[0].AdjClose, 1e-12) // falls back to close
	assert.True(t, observations[0].HasVolume)
}

func TestNewSelectsProviderByID(t *testing.T) {
	run := &contracts.Run{ID: "run_test"}
	client := newTestClient()

	bundle := testBundle("yahoo")
	p, err := New(&bundle, client, nil, run, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "yahoo", p.Name())

	bundle = testBundle("bolsa")
	p, err = New(&bundle, client, nil, run, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "bolsa", p.Name())

	bundle = testBundle("bloomberg")
	_, err = New(&bundle, client, nil, run, logger.NewNop())
	assert.Error(t, err)
}
