package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pricecast/internal/scheduler"
	"github.com/wonny/pricecast/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/pricecast scheduler start
  go run ./cmd/pricecast scheduler list
  go run ./cmd/pricecast scheduler run history_maintenance`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- history_maintenance: MAINTENANCE_SCHEDULE (기본 매일 00:05:00)
- forecast_warm: FORECAST_WARM_SCHEDULE (비어 있으면 수동 실행 전용)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// newScheduler registers every periodic job against the app's services
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, a.cfg.Maintenance.MaxRetries, a.cfg.Maintenance.RetryDelay)

	if err := sched.AddJob(jobs.NewMaintenanceJob(a.maintenance, a.cfg.Maintenance.Schedule, a.log)); err != nil {
		return nil, fmt.Errorf("add maintenance job: %w", err)
	}
	if err := sched.AddJob(jobs.NewForecastWarmJob(a.cached, a.catalog, a.cfg.Maintenance.ForecastWarmSchedule, a.log)); err != nil {
		return nil, fmt.Errorf("add forecast warm job: %w", err)
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== pricecast Scheduler ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	printJobTable(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nStopping scheduler...")
	sched.Stop()
	fmt.Println("✅ Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	printJobTable(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %s", jobName, result.Duration.Round(time.Millisecond)))
	PrintKeyValue("Written", fmt.Sprint(result.Written), 12)
	if result.RunID != "" {
		PrintKeyValue("Run ID", result.RunID, 12)
	}
	return nil
}

func printJobTable(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	widths := []int{22, 20, 20, 36}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN", "LAST RUN ID"}, widths)

	for _, name := range sched.GetAllJobs() {
		st := stats[name]
		schedule := st.Schedule
		if schedule == "" {
			schedule = "(manual)"
		}
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow([]string{name, schedule, next, valueOr(st.LastRunID, "-")}, widths)
	}
}
