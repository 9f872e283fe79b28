// Package workspace syncs run artifacts to the team's document workspace
// and pulls manual override proposals back. The wire format follows the
// workspace's pages/databases REST API.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/overrides"
	"github.com/sieng/factor-engine/internal/reports"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/pkg/httputil"
	"github.com/sieng/factor-engine/pkg/logger"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
)

// ErrNotConfigured is returned when the workspace token or a target
// database is missing from the config.
var ErrNotConfigured = errors.New("workspace sync not configured")

// Client talks to the document workspace API.
type Client struct {
	baseURL string
	token   string
	bundle  *strategyconfig.Bundle
	http    *httputil.Client
	log     *logger.Logger
}

// New creates a workspace client. An empty baseURL selects the hosted API.
func New(baseURL, token string, bundle *strategyconfig.Bundle, httpClient *httputil.Client, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{baseURL: baseURL, token: token, bundle: bundle, http: httpClient, log: log}
}

// PushRun creates a page in the runs database and returns its page ID.
func (c *Client) PushRun(ctx context.Context, run *contracts.Run) (string, error) {
	dbID := c.bundle.Workspace.Databases.Runs
	survivorship := "Free"
	if run.SurvivorshipFlag {
		survivorship = "Biased"
	}
	properties := map[string]any{
		"Run id":               titleProp(run.ID),
		"As of date":           dateProp(run.AsOfDate.Format("2006-01-02")),
		"Run status":           selectProp(run.Stage),
		"Survivorship quality": selectProp(survivorship),
	}
	return c.createPage(ctx, dbID, properties)
}

// PushSignals mirrors a run's signal batch, one page per symbol.
func (c *Client) PushSignals(ctx context.Context, run *contracts.Run, signals []contracts.Signal) error {
	dbID := c.bundle.Workspace.Databases.Signals
	for _, signal := range signals {
		shortID := run.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		properties := map[string]any{
			"Id":              titleProp(fmt.Sprintf("%s-%s", shortID, signal.Ticker)),
			"Ticker":          richTextProp(signal.Ticker),
			"Composite score": numberProp(signal.Score),
			"Signal date":     dateProp(run.AsOfDate.Format("2006-01-02")),
		}
		if _, err := c.createPage(ctx, dbID, properties); err != nil {
			return fmt.Errorf("push signal %s: %w", signal.Ticker, err)
		}
	}
	c.log.WithField("count", len(signals)).Info("signals pushed to workspace")
	return nil
}

// PushPortfolio mirrors a run's final positions.
func (c *Client) PushPortfolio(ctx context.Context, run *contracts.Run, positions []contracts.Position) error {
	dbID := c.bundle.Workspace.Databases.PortfolioState
	for _, position := range positions {
		properties := map[string]any{
			"Ticker":        titleProp(position.Ticker),
			"Target weight": numberProp(position.Weight),
			"Entry date":    dateProp(run.AsOfDate.Format("2006-01-02")),
		}
		if _, err := c.createPage(ctx, dbID, properties); err != nil {
			return fmt.Errorf("push position %s: %w", position.Ticker, err)
		}
	}
	c.log.WithField("count", len(positions)).Info("portfolio pushed to workspace")
	return nil
}

// PushBacktest mirrors a run's backtest summary metrics.
func (c *Client) PushBacktest(ctx context.Context, result *contracts.BacktestResult) error {
	dbID := c.bundle.Workspace.Databases.Backtests
	properties := map[string]any{
		"Run id":        titleProp(result.RunID),
		"Start":         dateProp(result.StartDate.Format("2006-01-02")),
		"End":           dateProp(result.EndDate.Format("2006-01-02")),
		"Final capital": numberProp(result.FinalCapital),
		"CAGR":          numberProp(result.CAGR),
		"Volatility":    numberProp(result.Volatility),
		"Max drawdown":  numberProp(result.MaxDrawdown),
	}
	_, err := c.createPage(ctx, dbID, properties)
	return err
}

// PushRunSummary creates a run page whose body lists positions and
// metrics as plain paragraphs.
func (c *Client) PushRunSummary(ctx context.Context, summary *reports.Summary) error {
	dbID := c.bundle.Workspace.Databases.Runs
	payload := map[string]any{
		"parent":     map[string]any{"database_id": dbID},
		"properties": map[string]any{"Run id": titleProp("Run " + summary.RunID)},
		"children":   summaryBlocks(summary),
	}
	_, err := c.postPage(ctx, dbID, payload)
	return err
}

// PullOverrides queries the overrides database and maps rows through the
// configured property names. Fields outside the allow-list are dropped
// here; the apply step re-checks them.
func (c *Client) PullOverrides(ctx context.Context) ([]overrides.Proposal, error) {
	policy := c.bundle.Workspace.Overrides
	dbID := c.bundle.Workspace.Databases.Overrides
	if c.token == "" || dbID == "" {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, dbID)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, map[string]any{})
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query overrides: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			ID         string                    `json:"id"`
			Properties map[string]map[string]any `json:"properties"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}

	var proposals []overrides.Proposal
	for _, entry := range payload.Results {
		field := extractText(entry.Properties[policy.FieldProperty])
		if field == "" {
			continue
		}
		if len(policy.AllowedFields) > 0 && !policy.FieldAllowed(field) {
			continue
		}
		proposals = append(proposals, overrides.Proposal{
			Field:    field,
			Value:    extractText(entry.Properties[policy.ValueProperty]),
			Author:   extractText(entry.Properties[policy.AuthorProperty]),
			SourceID: entry.ID,
			Enabled:  extractBool(entry.Properties[policy.EnabledProperty]),
		})
	}
	return proposals, nil
}

func (c *Client) createPage(ctx context.Context, dbID string, properties map[string]any) (string, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": dbID},
		"properties": properties,
	}
	return c.postPage(ctx, dbID, payload)
}

func (c *Client) postPage(ctx context.Context, dbID string, payload map[string]any) (string, error) {
	if c.token == "" || dbID == "" {
		return "", ErrNotConfigured
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/v1/pages", payload)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("create page: status %d: %s", resp.StatusCode, body)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode page response: %w", err)
	}
	return created.ID, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", apiVersion)
	return req, nil
}
