package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/capellaquant/capella/internal/scheduler"
	"github.com/capellaquant/capella/internal/scheduler/jobs"
)

// schedulerCmd runs the job scheduler in the foreground
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the job scheduler",
	Long: `Runs scheduled jobs in the foreground.

Jobs:
  snapshot_fetch - pulls the screener snapshot after the close on weekdays

Example:
  go run ./cmd/capella scheduler
  go run ./cmd/capella scheduler --run-now`,
	RunE: runScheduler,
}

var schedulerRunNow bool

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().BoolVar(&schedulerRunNow, "run-now", false, "trigger the snapshot fetch immediately on start")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.close()

	client, err := a.newScreenerClient()
	if err != nil {
		return err
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewSnapshotFetchJob(client, a.store, a.log)); err != nil {
		return fmt.Errorf("add snapshot fetch job: %w", err)
	}

	sched.Start()
	fmt.Println("Scheduler running, press Ctrl+C to stop")

	if schedulerRunNow {
		if err := sched.RunJob("snapshot_fetch"); err != nil {
			return fmt.Errorf("run snapshot fetch: %w", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()

	for name, stats := range sched.GetJobStats() {
		fmt.Printf("%s: %d runs, %.0f%% success\n", name, stats.TotalRuns, stats.SuccessRate*100)
	}

	return nil
}
