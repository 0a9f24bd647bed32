package jobs

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricecast/internal/catalog"
	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/engineconfig"
	"github.com/wonny/pricecast/internal/forecast"
	"github.com/wonny/pricecast/internal/history"
	"github.com/wonny/pricecast/internal/maintenance"
	"github.com/wonny/pricecast/internal/synth"
	"github.com/wonny/pricecast/pkg/logger"
)

func setup(t *testing.T) (*history.FileStore, *catalog.Catalog, *maintenance.Service) {
	t.Helper()
	store := history.NewFileStore(filepath.Join(t.TempDir(), "price_history.json"), zerolog.Nop())
	cat := catalog.New(
		[]contracts.Product{{ID: 1, Name: "Rice", BasePrice: 100}},
		[]contracts.Location{{CityID: 1, DistrictID: 1, PriceFactor: 1.0}, {CityID: 1, DistrictID: 2, PriceFactor: 1.1}},
	)
	cfg := engineconfig.Default()
	syn := synth.New(cfg.Synth, rand.New(rand.NewPCG(9, 9)), zerolog.Nop())
	return store, cat, maintenance.New(store, cat, syn, cfg.Retention, zerolog.Nop())
}

func TestMaintenanceJob(t *testing.T) {
	store, _, svc := setup(t)
	job := NewMaintenanceJob(svc, "0 5 0 * * *", logger.Nop())
	job.now = func() time.Time { return time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC) }

	assert.Equal(t, MaintenanceJobName, job.Name())
	assert.Equal(t, "0 5 0 * * *", job.Schedule())

	out, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 22, out.Written)
	assert.Len(t, store.ReadAll(context.Background()), 22) // 2 pairs × (10 + 1)

	// second run on the same day is a no-op
	again, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, out.RunID, again.RunID)
	assert.Zero(t, again.Written)
	assert.Len(t, store.ReadAll(context.Background()), 22)
}

func TestForecastWarmJob(t *testing.T) {
	store, cat, _ := setup(t)
	engine := forecast.NewEngine(engineconfig.Default().Forecast, store, zerolog.Nop())

	job := NewForecastWarmJob(engine, cat, "", logger.Nop())
	assert.Equal(t, ForecastWarmJobName, job.Name())
	assert.Empty(t, job.Schedule())
	out, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.RunID)
	assert.Equal(t, 2, out.Written) // 1 product × 2 locations

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = job.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
