package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sieng/factor-engine/internal/overrides"
	"github.com/sieng/factor-engine/internal/scheduler"
	"github.com/sieng/factor-engine/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the job scheduler",
	Long: `Starts the cron scheduler with the engine's recurring jobs:

  daily_ingest      - weekday price top-up after the close
  monthly_research  - full pipeline run after each month end
  overrides_sync    - hourly workspace overrides pull (when configured)

Example:
  go run ./cmd/factorengine scheduler
  go run ./cmd/factorengine scheduler --backtest-years 5 --allow-overrides`,
	RunE: runScheduler,
}

var (
	schedulerBacktestYears  int
	schedulerAllowOverrides bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().IntVar(&schedulerBacktestYears, "backtest-years", 3, "walk-forward window for the monthly run")
	schedulerCmd.Flags().BoolVar(&schedulerAllowOverrides, "allow-overrides", false, "apply allow-listed workspace overrides")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched := scheduler.New(app.log)

	if err := sched.AddJob(jobs.NewDailyIngestJob(app.pipe, app.log)); err != nil {
		return err
	}
	if err := sched.AddJob(jobs.NewMonthlyResearchJob(app.pipe, schedulerBacktestYears, app.ws != nil, app.log)); err != nil {
		return err
	}
	if app.ws != nil {
		svc := overrides.NewService(app.store, app.bundle.Workspace.Overrides, nil, app.log)
		job := jobs.NewOverridesSyncJob(app.store, app.ws, svc, schedulerAllowOverrides, app.log)
		if err := sched.AddJob(job); err != nil {
			return err
		}
	}

	sched.Start()

	fmt.Println("✅ Scheduler running")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  job: %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
