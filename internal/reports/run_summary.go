// Package reports assembles run-level summaries for the CLI and the
// workspace sync.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
)

// Summary is the flattened view of one run: lifecycle state, final
// positions and backtest metrics when present.
type Summary struct {
	RunID            string                    `json:"run_id"`
	AsOfDate         string                    `json:"as_of_date"`
	RebalanceDate    string                    `json:"rebalance_date,omitempty"`
	Stage            string                    `json:"stage"`
	SurvivorshipFlag bool                      `json:"survivorship_flag"`
	CreatedAt        string                    `json:"created_at"`
	ConfigHash       string                    `json:"config_hash,omitempty"`
	Positions        []contracts.Position      `json:"positions"`
	Metrics          *contracts.BacktestResult `json:"metrics,omitempty"`
	Params           map[string]any            `json:"params,omitempty"`
}

// BuildRunSummary loads a run and its artifacts. A missing run is an
// error; missing positions or backtest metrics are not.
func BuildRunSummary(ctx context.Context, store contracts.Store, runID string) (*Summary, error) {
	run, err := store.Runs().Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	positions, err := store.Portfolios().GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	summary := &Summary{
		RunID:            run.ID,
		AsOfDate:         run.AsOfDate.Format("2006-01-02"),
		Stage:            run.Stage,
		SurvivorshipFlag: run.SurvivorshipFlag,
		CreatedAt:        run.CreatedAt.UTC().Format(time.RFC3339),
		ConfigHash:       run.ConfigHash,
		Positions:        positions,
		Params:           run.Params,
	}
	if run.RebalanceDate != nil {
		summary.RebalanceDate = run.RebalanceDate.Format("2006-01-02")
	}

	result, err := store.Backtests().GetResult(ctx, runID)
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		// No backtest ran for this run.
	case err != nil:
		return nil, fmt.Errorf("load backtest result: %w", err)
	default:
		summary.Metrics = result
	}
	return summary, nil
}
