// Package jobs holds the scheduled jobs that drive the research pipeline.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sieng/factor-engine/internal/pipeline"
	"github.com/sieng/factor-engine/pkg/logger"
)

// MonthlyResearchJob runs the full pipeline after each month closes:
// ingest, factors, signals, portfolio, walk-forward backtest and
// workspace sync, all as-of the previous month end.
type MonthlyResearchJob struct {
	pipeline      *pipeline.Pipeline
	backtestYears int
	sync          bool
	logger        *logger.Logger
}

// NewMonthlyResearchJob creates the month-end pipeline job. backtestYears
// sets how far the walk-forward window reaches back from the as-of date.
func NewMonthlyResearchJob(p *pipeline.Pipeline, backtestYears int, sync bool, log *logger.Logger) *MonthlyResearchJob {
	if backtestYears <= 0 {
		backtestYears = 3
	}
	return &MonthlyResearchJob{
		pipeline:      p,
		backtestYears: backtestYears,
		sync:          sync,
		logger:        log,
	}
}

// Name returns the job name
func (j *MonthlyResearchJob) Name() string {
	return "monthly_research"
}

// Schedule returns the cron schedule (1st of each month at 7 AM, after
// the last session of the closed month has settled)
func (j *MonthlyResearchJob) Schedule() string {
	return "0 0 7 1 * *"
}

// Run executes the full pipeline as-of the previous month end
func (j *MonthlyResearchJob) Run(ctx context.Context) error {
	asOf := previousMonthEnd(time.Now().UTC())
	start := asOf.AddDate(-j.backtestYears, 0, 0)

	j.logger.WithFields(map[string]interface{}{
		"as_of": asOf.Format("2006-01-02"),
		"start": start.Format("2006-01-02"),
	}).Info("Starting scheduled monthly research run")

	run, err := j.pipeline.RunAll(ctx, pipeline.Options{
		AsOf:     asOf,
		Start:    start,
		End:      asOf,
		Backtest: true,
		Sync:     j.sync,
	})
	if err != nil {
		return fmt.Errorf("monthly pipeline: %w", err)
	}

	j.logger.WithField("run_id", run.ID).Info("Scheduled monthly research run completed")
	return nil
}

// previousMonthEnd returns the last calendar day of the month before t.
func previousMonthEnd(t time.Time) time.Time {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 0, -1)
}

// DailyIngestJob tops up adjusted prices for the active universe so the
// month-end run starts from a warm database.
type DailyIngestJob struct {
	pipeline *pipeline.Pipeline
	logger   *logger.Logger
}

// NewDailyIngestJob creates a new daily ingest job
func NewDailyIngestJob(p *pipeline.Pipeline, log *logger.Logger) *DailyIngestJob {
	return &DailyIngestJob{pipeline: p, logger: log}
}

// Name returns the job name
func (j *DailyIngestJob) Name() string {
	return "daily_ingest"
}

// Schedule returns the cron schedule (6:30 PM on weekdays, after the
// Santiago close)
func (j *DailyIngestJob) Schedule() string {
	return "0 30 18 * * MON-FRI"
}

// Run fetches the last few sessions for the active universe
func (j *DailyIngestJob) Run(ctx context.Context) error {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -7)

	j.logger.Info("Starting scheduled price ingest")

	opts := pipeline.Options{AsOf: end, Start: start, End: end}
	run, err := j.pipeline.NewRun(ctx, opts)
	if err != nil {
		return err
	}
	if err := j.pipeline.Ingest(ctx, run, start, end); err != nil {
		return fmt.Errorf("daily ingest: %w", err)
	}

	j.logger.WithField("run_id", run.ID).Info("Scheduled price ingest completed")
	return nil
}
