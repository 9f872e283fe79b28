package contracts

import "time"

// Pipeline stage labels. Stages are append-only progress markers on a run;
// each CLI command sets its stage on entry and "<stage>_completed" on exit.
const (
	StageInitialized = "initialized"
	StageIngest      = "ingest"
	StageFactors     = "factors"
	StageSignals     = "signals"
	StagePortfolio   = "portfolio"
	StageBacktest    = "backtest"
	StageSync        = "sync"
	StageOverrides   = "overrides"
	StageRunAll      = "run_all"
)

// Run identifies one execution of the pipeline. Every persisted artifact is
// keyed by the run ID; a run's artifacts are never mutated by another run.
type Run struct {
	ID               string
	AsOfDate         time.Time
	RebalanceDate    *time.Time
	CreatedAt        time.Time
	Stage            string
	Params           map[string]any
	SurvivorshipFlag bool
	ConfigHash       string
}

// CompletedStage returns the label recorded when a stage finishes.
func CompletedStage(stage string) string {
	return stage + "_completed"
}
