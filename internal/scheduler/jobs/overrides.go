package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/overrides"
	"github.com/sieng/factor-engine/internal/workspace"
	"github.com/sieng/factor-engine/pkg/logger"
)

// OverridesSyncJob pulls parameter override proposals from the workspace
// and applies the allow-listed ones through the overrides service.
type OverridesSyncJob struct {
	store     contracts.Store
	workspace *workspace.Client
	service   *overrides.Service
	allow     bool
	logger    *logger.Logger
}

// NewOverridesSyncJob creates a new overrides sync job. allow mirrors the
// CLI --allow-overrides flag; proposals are audited either way.
func NewOverridesSyncJob(store contracts.Store, ws *workspace.Client, svc *overrides.Service, allow bool, log *logger.Logger) *OverridesSyncJob {
	return &OverridesSyncJob{
		store:     store,
		workspace: ws,
		service:   svc,
		allow:     allow,
		logger:    log,
	}
}

// Name returns the job name
func (j *OverridesSyncJob) Name() string {
	return "overrides_sync"
}

// Schedule returns the cron schedule (every hour)
func (j *OverridesSyncJob) Schedule() string {
	return "0 0 * * * *"
}

// Run pulls proposals and applies them under a fresh audit run
func (j *OverridesSyncJob) Run(ctx context.Context) error {
	proposals, err := j.workspace.PullOverrides(ctx)
	if err != nil {
		return fmt.Errorf("pull overrides: %w", err)
	}
	if len(proposals) == 0 {
		j.logger.Debug("No override proposals pending")
		return nil
	}

	run := &contracts.Run{AsOfDate: time.Now().UTC()}
	if err := j.store.Runs().Create(ctx, run); err != nil {
		return fmt.Errorf("create audit run: %w", err)
	}
	if err := j.store.Runs().UpdateStage(ctx, run.ID, contracts.StageOverrides); err != nil {
		return err
	}

	result, err := j.service.Apply(ctx, run, proposals, j.allow)
	if err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}
	if err := j.store.Runs().UpdateStage(ctx, run.ID, contracts.CompletedStage(contracts.StageOverrides)); err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  run.ID,
		"total":   result.Total,
		"applied": result.Applied,
	}).Info("Scheduled overrides sync completed")
	return nil
}
