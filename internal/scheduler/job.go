package scheduler

import (
	"context"
	"time"
)

// Job is one background pass over the price history
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes one pass and reports what it touched
	Run(ctx context.Context) (Outcome, error)

	// Schedule returns the cron schedule expression (with seconds).
	// Examples: "0 5 0 * * *" (every day at 00:05), "@daily", "@hourly".
	// An empty schedule registers the job for manual runs only.
	Schedule() string
}

// Outcome is what a pass hands back to the scheduler
type Outcome struct {
	RunID   string // maintenance run id, empty for passes that never write history
	Written int    // observations written, or forecasts computed by the warm-up
}

// JobResult is one recorded run of a job
type JobResult struct {
	JobName   string        `json:"job_name"`
	RunID     string        `json:"run_id,omitempty"`
	Written   int           `json:"written"`
	Attempts  int           `json:"attempts"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit caps results kept per job
const historyLimit = 100

// JobHistory keeps the most recent results of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult records a run, dropping the oldest beyond historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Latest returns the most recent run
func (h *JobHistory) Latest() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// Failures counts failed runs
func (h *JobHistory) Failures() int {
	n := 0
	for _, r := range h.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate returns successful runs over all runs (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-h.Failures()) / float64(len(h.Results))
}

// LastRunID is the run id of the newest successful pass that wrote history.
// 로그에서 run_id로 해당 패스를 추적할 때 사용
func (h *JobHistory) LastRunID() string {
	for i := len(h.Results) - 1; i >= 0; i-- {
		r := h.Results[i]
		if r.Success && r.RunID != "" && r.Written > 0 {
			return r.RunID
		}
	}
	return ""
}
