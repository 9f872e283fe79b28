// Package pipeline chains the research stages end to end: ingest,
// factors, signals, portfolio, backtest and workspace sync. Both the CLI
// and the scheduler drive runs through it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/backtest"
	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/factors"
	"github.com/sieng/factor-engine/internal/ingest"
	"github.com/sieng/factor-engine/internal/portfolio"
	"github.com/sieng/factor-engine/internal/provider"
	"github.com/sieng/factor-engine/internal/reports"
	"github.com/sieng/factor-engine/internal/signals"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/internal/workspace"
	"github.com/sieng/factor-engine/pkg/httputil"
	"github.com/sieng/factor-engine/pkg/logger"
)

// ProviderFactory builds the market data provider for one run. Providers
// are per-run so fetches land in that run's provider log.
type ProviderFactory func(run *contracts.Run) (provider.DataProvider, error)

// Options selects what one pipeline invocation covers.
type Options struct {
	AsOf     time.Time
	Start    time.Time
	End      time.Time
	Backtest bool
	Sync     bool
}

// Pipeline wires the stages over a shared store and config bundle.
type Pipeline struct {
	store      contracts.Store
	bundle     *strategyconfig.Bundle
	workspace  *workspace.Client // nil disables sync
	log        *logger.Logger
	configHash string
	providers  ProviderFactory
}

// New creates a pipeline. A nil workspace client turns the sync stage
// into a no-op.
func New(store contracts.Store, bundle *strategyconfig.Bundle, httpClient *httputil.Client, ws *workspace.Client, configHash string, log *logger.Logger) *Pipeline {
	p := &Pipeline{
		store:      store,
		bundle:     bundle,
		workspace:  ws,
		log:        log,
		configHash: configHash,
	}
	p.providers = func(run *contracts.Run) (provider.DataProvider, error) {
		return provider.New(bundle, httpClient, store.Audits(), run, log)
	}
	return p
}

// WithProviderFactory swaps the provider constructor. Used by tests and
// by callers that already hold a provider.
func (p *Pipeline) WithProviderFactory(factory ProviderFactory) *Pipeline {
	p.providers = factory
	return p
}

// NewRun creates and persists a run for the given options.
func (p *Pipeline) NewRun(ctx context.Context, opts Options) (*contracts.Run, error) {
	run := &contracts.Run{
		AsOfDate:   opts.AsOf,
		ConfigHash: p.configHash,
		Params: map[string]any{
			"start":    opts.Start.Format("2006-01-02"),
			"end":      opts.End.Format("2006-01-02"),
			"backtest": opts.Backtest,
		},
	}
	if err := p.store.Runs().Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// RunAll executes every stage for a fresh run and returns it.
func (p *Pipeline) RunAll(ctx context.Context, opts Options) (*contracts.Run, error) {
	run, err := p.NewRun(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := p.setStage(ctx, run, contracts.StageRunAll); err != nil {
		return nil, err
	}

	if err := p.Ingest(ctx, run, opts.Start, opts.End); err != nil {
		return run, err
	}
	if err := p.Factors(ctx, run); err != nil {
		return run, err
	}
	sigs, err := p.Signals(ctx, run)
	if err != nil {
		return run, err
	}
	if _, err := p.Portfolio(ctx, run, sigs); err != nil {
		return run, err
	}
	if opts.Backtest {
		if _, err := p.Backtest(ctx, run, opts.Start, opts.End); err != nil {
			return run, err
		}
	}
	if opts.Sync {
		if err := p.Sync(ctx, run); err != nil {
			return run, err
		}
	}

	if err := p.setStage(ctx, run, contracts.CompletedStage(contracts.StageRunAll)); err != nil {
		return run, err
	}
	return run, nil
}

// Ingest runs the ingestion stage.
func (p *Pipeline) Ingest(ctx context.Context, run *contracts.Run, start, end time.Time) error {
	if err := p.setStage(ctx, run, contracts.StageIngest); err != nil {
		return err
	}
	dataProvider, err := p.providers(run)
	if err != nil {
		return fmt.Errorf("build provider: %w", err)
	}
	svc := ingest.NewService(p.store, dataProvider, p.bundle, p.log)
	if err := svc.Ingest(ctx, run, start, end); err != nil {
		return err
	}
	return p.setStage(ctx, run, contracts.CompletedStage(contracts.StageIngest))
}

// Factors runs the factor stage.
func (p *Pipeline) Factors(ctx context.Context, run *contracts.Run) error {
	if err := p.setStage(ctx, run, contracts.StageFactors); err != nil {
		return err
	}
	engine := factors.NewEngine(p.store, p.bundle, p.log)
	if err := engine.Compute(ctx, run, run.AsOfDate); err != nil {
		return err
	}
	return p.setStage(ctx, run, contracts.CompletedStage(contracts.StageFactors))
}

// Signals runs the signal stage and returns the ranked batch.
func (p *Pipeline) Signals(ctx context.Context, run *contracts.Run) ([]contracts.Signal, error) {
	if err := p.setStage(ctx, run, contracts.StageSignals); err != nil {
		return nil, err
	}
	generator := signals.NewGenerator(p.store, p.bundle, p.log)
	sigs, err := generator.Build(ctx, run, run.AsOfDate)
	if err != nil {
		return nil, err
	}
	return sigs, p.setStage(ctx, run, contracts.CompletedStage(contracts.StageSignals))
}

// Portfolio runs the portfolio stage over a signal batch.
func (p *Pipeline) Portfolio(ctx context.Context, run *contracts.Run, sigs []contracts.Signal) ([]contracts.Position, error) {
	if err := p.setStage(ctx, run, contracts.StagePortfolio); err != nil {
		return nil, err
	}
	builder := portfolio.NewBuilder(p.store, p.bundle, p.log)
	positions, err := builder.Build(ctx, run, run.AsOfDate, sigs)
	if err != nil {
		return nil, err
	}
	return positions, p.setStage(ctx, run, contracts.CompletedStage(contracts.StagePortfolio))
}

// Backtest runs the walk-forward backtest stage.
func (p *Pipeline) Backtest(ctx context.Context, run *contracts.Run, start, end time.Time) (*contracts.BacktestResult, error) {
	if err := p.setStage(ctx, run, contracts.StageBacktest); err != nil {
		return nil, err
	}
	runner := backtest.NewRunner(p.store, p.bundle, p.log)
	result, err := runner.Run(ctx, run, start, end)
	if err != nil {
		return nil, err
	}
	return result, p.setStage(ctx, run, contracts.CompletedStage(contracts.StageBacktest))
}

// Sync pushes the run's artifacts to the workspace.
func (p *Pipeline) Sync(ctx context.Context, run *contracts.Run) error {
	if p.workspace == nil {
		p.log.WithField("run_id", run.ID).Debug("workspace sync disabled")
		return nil
	}
	if err := p.setStage(ctx, run, contracts.StageSync); err != nil {
		return err
	}

	if _, err := p.workspace.PushRun(ctx, run); err != nil {
		return fmt.Errorf("push run: %w", err)
	}

	sigs, err := p.store.Signals().GetByRunAndDate(ctx, run.ID, run.AsOfDate)
	if err != nil {
		return fmt.Errorf("load signals: %w", err)
	}
	if err := p.workspace.PushSignals(ctx, run, sigs); err != nil {
		return err
	}

	positions, err := p.store.Portfolios().GetByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	if err := p.workspace.PushPortfolio(ctx, run, positions); err != nil {
		return err
	}

	summary, err := reports.BuildRunSummary(ctx, p.store, run.ID)
	if err != nil {
		return err
	}
	if summary.Metrics != nil {
		if err := p.workspace.PushBacktest(ctx, summary.Metrics); err != nil {
			return fmt.Errorf("push backtest: %w", err)
		}
	}
	if err := p.workspace.PushRunSummary(ctx, summary); err != nil {
		return fmt.Errorf("push summary: %w", err)
	}

	return p.setStage(ctx, run, contracts.CompletedStage(contracts.StageSync))
}

func (p *Pipeline) setStage(ctx context.Context, run *contracts.Run, stage string) error {
	if err := p.store.Runs().UpdateStage(ctx, run.ID, stage); err != nil {
		return fmt.Errorf("update stage %s: %w", stage, err)
	}
	run.Stage = stage
	p.log.WithFields(map[string]interface{}{
		"run_id": run.ID,
		"stage":  stage,
	}).Debug("stage transition")
	return nil
}
