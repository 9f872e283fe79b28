package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/pipeline"
	"github.com/sieng/factor-engine/internal/store"
	"github.com/sieng/factor-engine/internal/strategyconfig"
	"github.com/sieng/factor-engine/internal/workspace"
	"github.com/sieng/factor-engine/pkg/config"
	"github.com/sieng/factor-engine/pkg/database"
	"github.com/sieng/factor-engine/pkg/httputil"
	"github.com/sieng/factor-engine/pkg/logger"
)

// app bundles the wiring every command needs: config, logger, database,
// store, strategy bundle and the pipeline over them.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	store  contracts.Store
	bundle *strategyconfig.Bundle
	hash   string
	http   *httputil.Client
	ws     *workspace.Client // nil when no workspace token is set
	pipe   *pipeline.Pipeline
}

// newApp initializes the shared dependencies every command needs, in
// order: config, logger, database, strategy bundle, HTTP client, store.
func newApp() (*app, error) {
	// 1. Load environment config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Load strategy bundle
	bundle, err := strategyconfig.Load(configDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load strategy config: %w", err)
	}
	if bundle.Provider.BaseURL == "" {
		switch bundle.Provider.ID {
		case "bolsa":
			bundle.Provider.BaseURL = cfg.Provider.BolsaBaseURL
		default:
			bundle.Provider.BaseURL = cfg.Provider.YahooBaseURL
		}
	}
	hash, err := strategyconfig.Hash(bundle)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	// 5. HTTP client shared by providers and workspace sync
	httpClient := httputil.NewWithTimeout(log, time.Duration(bundle.Provider.Timeout)*time.Second).
		WithRetry(bundle.Provider.Retries, time.Second).
		WithRateLimit(cfg.Provider.RatePerSec, cfg.Provider.Burst)

	var ws *workspace.Client
	if cfg.Workspace.Token != "" {
		ws = workspace.New(cfg.Workspace.BaseURL, cfg.Workspace.Token, bundle, httpClient, log)
	}

	st := store.New(db)
	pipe := pipeline.New(st, bundle, httpClient, ws, hash, log)

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		store:  st,
		bundle: bundle,
		hash:   hash,
		http:   httpClient,
		ws:     ws,
		pipe:   pipe,
	}, nil
}

// Close releases the database pool.
func (a *app) Close() {
	a.db.Close()
}

// resolveRun loads an existing run or creates a fresh one at the given
// as-of date.
func (a *app) resolveRun(ctx context.Context, stage, asOf, runID string) (*contracts.Run, error) {
	if runID != "" {
		run, err := a.store.Runs().Get(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load run %s: %w", runID, err)
		}
		return run, nil
	}

	asOfDate, err := parseDate(asOf, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	run := &contracts.Run{
		AsOfDate:   asOfDate,
		ConfigHash: a.hash,
		Params:     map[string]any{"stage": stage},
	}
	if err := a.store.Runs().Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// parseDate parses YYYY-MM-DD, falling back to def for an empty value.
func parseDate(value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def.Truncate(24 * time.Hour), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	return parsed, nil
}
