package jobs

import (
	"context"
	"time"

	"github.com/wonny/pricecast/internal/maintenance"
	"github.com/wonny/pricecast/internal/scheduler"
	"github.com/wonny/pricecast/pkg/logger"
)

// MaintenanceJobName is the registered name of the daily history job
const MaintenanceJobName = "history_maintenance"

// MaintenanceJob runs the backfill/daily gates on a schedule
type MaintenanceJob struct {
	svc      *maintenance.Service
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(svc *maintenance.Service, schedule string, log *logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		svc:      svc,
		schedule: schedule,
		now:      time.Now,
		logger:   log,
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return MaintenanceJobName
}

// Schedule returns the cron schedule (default 00:05 daily)
func (j *MaintenanceJob) Schedule() string {
	return j.schedule
}

// Run executes one maintenance pass for today
func (j *MaintenanceJob) Run(ctx context.Context) (scheduler.Outcome, error) {
	j.logger.Debug("Starting scheduled history maintenance")

	report, err := j.svc.Ensure(ctx, j.now())
	if err != nil {
		return scheduler.Outcome{}, err
	}

	if report.Backfilled > 0 || report.DailyAdded > 0 {
		j.logger.WithFields(map[string]interface{}{
			"run_id":      report.RunID,
			"backfilled":  report.Backfilled,
			"daily_added": report.DailyAdded,
			"compacted":   report.Compacted,
		}).Info("History maintenance completed")
	}

	return scheduler.Outcome{RunID: report.RunID, Written: report.Backfilled + report.DailyAdded}, nil
}
