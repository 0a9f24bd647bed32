package jobs

import (
	"context"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/forecast"
	"github.com/wonny/pricecast/internal/scheduler"
	"github.com/wonny/pricecast/pkg/logger"
)

// ForecastWarmJobName is the registered name of the cache warm-up job
const ForecastWarmJobName = "forecast_warm"

// ForecastWarmJob precomputes every location listing so the first
// request after a history write hits a warm cache
type ForecastWarmJob struct {
	predictor forecast.Predictor
	catalog   contracts.CatalogReader
	schedule  string
	logger    *logger.Logger
}

// NewForecastWarmJob creates a new forecast warm-up job
func NewForecastWarmJob(predictor forecast.Predictor, catalog contracts.CatalogReader, schedule string, log *logger.Logger) *ForecastWarmJob {
	return &ForecastWarmJob{
		predictor: predictor,
		catalog:   catalog,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *ForecastWarmJob) Name() string {
	return ForecastWarmJobName
}

// Schedule returns the cron schedule (disabled when empty)
func (j *ForecastWarmJob) Schedule() string {
	return j.schedule
}

// Run forecasts every product at every location
func (j *ForecastWarmJob) Run(ctx context.Context) (scheduler.Outcome, error) {
	products := j.catalog.Products()
	locations := j.catalog.Locations()

	forecasts := 0
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return scheduler.Outcome{Written: forecasts}, err
		}
		forecasts += len(j.predictor.PredictAll(ctx, products, loc))
	}

	j.logger.WithFields(map[string]interface{}{
		"locations": len(locations),
		"forecasts": forecasts,
	}).Info("Forecast cache warmed")

	return scheduler.Outcome{Written: forecasts}, nil
}
