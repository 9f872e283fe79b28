package workspace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/httputil"
	"github.com/sieng/factor-engine/pkg/logger"
)

func workspaceBundle() strategyconfig.Bundle {
	bundle := strategyconfig.Default()
	bundle.Workspace.Databases = strategyconfig.WorkspaceDatabases{
		Runs:           "db-runs",
		Signals:        "db-signals",
		PortfolioState: "db-portfolio",
		Backtests:      "db-backtests",
		Overrides:      "db-overrides",
	}
	bundle.Workspace.Overrides = strategyconfig.OverridePolicy{
		AllowedFields:   []string{"strategy.top_n"},
		FieldProperty:   "Field",
		ValueProperty:   "Value",
		EnabledProperty: "Enabled",
		AuthorProperty:  "Author",
	}
	return bundle
}

func newClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	bundle := workspaceBundle()
	httpClient := httputil.New(logger.NewNop()).DisableRetry()
	return New(server.URL, "secret-token", &bundle, httpClient, logger.NewNop())
}

func TestPushRun(t *testing.T) {
	var gotAuth, gotVersion string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/pages", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"id":"page-123"}`))
	}))
	defer server.Close()

	client := newClient(t, server)
	run := &contracts.Run{
		ID:               "run_20240628_0001",
		AsOfDate:         time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Stage:            contracts.CompletedStage(contracts.StageBacktest),
		SurvivorshipFlag: true,
	}

	pageID, err := client.PushRun(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, "page-123", pageID)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, apiVersion, gotVersion)

	parent := gotBody["parent"].(map[string]any)
	assert.Equal(t, "db-runs", parent["database_id"])
	properties := gotBody["properties"].(map[string]any)
	quality := properties["Survivorship quality"].(map[string]any)["select"].(map[string]any)
	assert.Equal(t, "Biased", quality["name"])
}

func TestPushSignalsOnePagePerSymbol(t *testing.T) {
	var pages int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Write([]byte(`{"id":"page"}`))
	}))
	defer server.Close()

	client := newClient(t, server)
	run := &contracts.Run{ID: "run_20240628_0001", AsOfDate: time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)}

	err := client.PushSignals(context.Background(), run, []contracts.Signal{
		{Ticker: "CAP.SN", Score: 0.4},
		{Ticker: "ILC.SN", Score: 0.2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

const overridesQueryResponse = `{
  "results": [
    {
      "id": "page-1",
      "properties": {
        "Field": {"type": "title", "title": [{"plain_text": "strategy.top_n"}]},
        "Value": {"type": "rich_text", "rich_text": [{"plain_text": "10"}]},
        "Enabled": {"type": "checkbox", "checkbox": true},
        "Author": {"type": "people", "people": [{"name": "Ana"}]}
      }
    },
    {
      "id": "page-2",
      "properties": {
        "Field": {"type": "title", "title": [{"plain_text": "strategy.name"}]},
        "Value": {"type": "rich_text", "rich_text": [{"plain_text": "other"}]},
        "Enabled": {"type": "checkbox", "checkbox": true}
      }
    },
    {
      "id": "page-3",
      "properties": {
        "Field": {"type": "title", "title": []}
      }
    }
  ]
}`

func TestPullOverrides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/databases/db-overrides/query", r.URL.Path)
		w.Write([]byte(overridesQueryResponse))
	}))
	defer server.Close()

	client := newClient(t, server)
	proposals, err := client.PullOverrides(context.Background())
	require.NoError(t, err)

	// Only the allow-listed field with a name survives.
	require.Len(t, proposals, 1)
	assert.Equal(t, "strategy.top_n", proposals[0].Field)
	assert.Equal(t, "10", proposals[0].Value)
	assert.Equal(t, "Ana", proposals[0].Author)
	assert.True(t, proposals[0].Enabled)
	assert.Equal(t, "page-1", proposals[0].SourceID)
}

func TestClientWithoutTokenFailsFast(t *testing.T) {
	bundle := workspaceBundle()
	client := New("http://workspace.invalid", "", &bundle, httputil.New(logger.NewNop()), logger.NewNop())

	_, err := client.PushRun(context.Background(), &contracts.Run{ID: "r"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = client.PullOverrides(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
