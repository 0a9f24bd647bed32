package forecast

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/engineconfig"
	"github.com/wonny/pricecast/internal/history"
)

var (
	rice    = contracts.Product{ID: 1, Name: "Rice", BasePrice: 100, CategoryName: "Grains"}
	gangnam = contracts.Location{CityID: 1, CityName: "Seoul", DistrictID: 2, DistrictName: "Gangnam", PriceFactor: 1.1}
)

// newestFirst builds observations for rice@gangnam dated backwards from 2024-03-14
func newestFirst(prices ...int) []contracts.PriceObservation {
	ref := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	out := make([]contracts.PriceObservation, len(prices))
	for i, p := range prices {
		out[i] = contracts.PriceObservation{
			ProductID:   rice.ID,
			LocationKey: gangnam.Key(),
			Date:        contracts.FormatDate(ref.AddDate(0, 0, -i)),
			Price:       p,
		}
	}
	return out
}

func newEngine(t *testing.T, entries []contracts.PriceObservation) *Engine {
	t.Helper()
	store := history.NewFileStore(filepath.Join(t.TempDir(), "price_history.json"), zerolog.Nop())
	if entries != nil {
		require.NoError(t, store.Seed(context.Background(), entries))
	}
	return NewEngine(engineconfig.Default().Forecast, store, zerolog.Nop())
}

func TestPredict_NilLocation(t *testing.T) {
	e := newEngine(t, nil)
	assert.Nil(t, e.Predict(context.Background(), rice, nil))
}

func TestPredict_FallbackBelowMinPoints(t *testing.T) {
	for n := 0; n < 3; n++ {
		prices := make([]int, n)
		for i := range prices {
			prices[i] = 150
		}
		e := newEngine(t, newestFirst(prices...))

		f := e.Predict(context.Background(), rice, &gangnam)
		require.NotNil(t, f)
		assert.Equal(t, 110, f.CurrentPrice, "n=%d", n)
		assert.Equal(t, 110, f.PredictedPrice, "n=%d", n)
		assert.Equal(t, 80, f.Confidence, "n=%d", n)
		assert.Empty(t, f.History, "n=%d", n)
		assert.NotNil(t, f.History)
	}
}

func TestPredict_FractionalBasePrice(t *testing.T) {
	lettuce := contracts.Product{ID: 7, Name: "Lettuce", BasePrice: 10.4}
	jongno := contracts.Location{CityID: 1, DistrictID: 3, PriceFactor: 1.5}

	f := newEngine(t, nil).Predict(context.Background(), lettuce, &jongno)
	require.NotNil(t, f)
	assert.Equal(t, 16, f.CurrentPrice)
	assert.Equal(t, 16, f.PredictedPrice)
}

func TestPredict_MissingStoreFallsBack(t *testing.T) {
	store := history.NewFileStore(filepath.Join(t.TempDir(), "absent", "h.json"), zerolog.Nop())
	e := NewEngine(engineconfig.Default().Forecast, store, zerolog.Nop())

	f := e.Predict(context.Background(), rice, &gangnam)
	require.NotNil(t, f)
	assert.Equal(t, 110, f.PredictedPrice)
	assert.Equal(t, 80, f.Confidence)
}

func TestCompute_Examples(t *testing.T) {
	cfg := engineconfig.Default().Forecast

	tests := []struct {
		name           string
		prices         []int
		wantPredicted  int
		wantConfidence int
	}{
		// three points: first-3 and last-3 coincide, trend is zero
		{name: "three points", prices: []int{100, 105, 110}, wantPredicted: 105, wantConfidence: 85},
		// trend -10 drives 84 below the floor 93.5, which rounds half to even
		{name: "clamped low", prices: []int{100, 100, 100, 110, 110, 110}, wantPredicted: 94, wantConfidence: 94},
		{name: "volatile", prices: []int{120, 100, 100}, wantPredicted: 107, wantConfidence: 81},
		{name: "flat full window", prices: []int{110, 110, 110, 110, 110, 110, 110, 110, 110, 110}, wantPredicted: 110, wantConfidence: 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Compute(cfg, 110, newestFirst(tt.prices...))
			assert.Equal(t, 110, f.CurrentPrice)
			assert.Equal(t, tt.wantPredicted, f.PredictedPrice)
			assert.Equal(t, tt.wantConfidence, f.Confidence)
			assert.Len(t, f.History, len(tt.prices))
		})
	}
}

func TestPredict_WindowAndOrdering(t *testing.T) {
	// 12 points stored oldest first; only the newest 10 are used
	prices := []int{101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112}
	entries := newestFirst(prices...)
	stored := make([]contracts.PriceObservation, len(entries))
	for i := range entries {
		stored[len(entries)-1-i] = entries[i]
	}
	// noise for other slots must be ignored
	stored = append(stored,
		contracts.PriceObservation{ProductID: 2, LocationKey: gangnam.Key(), Date: "2024-03-14", Price: 999},
		contracts.PriceObservation{ProductID: rice.ID, LocationKey: "9_9", Date: "2024-03-14", Price: 999},
	)

	e := newEngine(t, stored)
	f := e.Predict(context.Background(), rice, &gangnam)
	require.NotNil(t, f)

	require.Len(t, f.History, 10)
	assert.Equal(t, contracts.HistoryPoint{Date: "Mar 14", Price: 101}, f.History[0])
	assert.Equal(t, contracts.HistoryPoint{Date: "Mar 05", Price: 110}, f.History[9])
}

func TestCompute_Bounds(t *testing.T) {
	cfg := engineconfig.Default().Forecast
	rng := rand.New(rand.NewPCG(42, 7))

	for i := 0; i < 500; i++ {
		base := 1 + rng.IntN(500)
		factor := 0.5 + rng.Float64()
		current := int(float64(base)*factor + 0.5)

		n := 3 + rng.IntN(12)
		prices := make([]int, n)
		for j := range prices {
			prices[j] = rng.IntN(3 * (current + 1))
		}

		f := Compute(cfg, current, newestFirst(prices...))
		lo := float64(current) * cfg.ClampLow
		hi := float64(current) * cfg.ClampHigh

		assert.GreaterOrEqual(t, float64(f.PredictedPrice), lo-0.5, "case %d", i)
		assert.LessOrEqual(t, float64(f.PredictedPrice), hi+0.5, "case %d", i)
		assert.GreaterOrEqual(t, f.Confidence, 50, "case %d", i)
		assert.LessOrEqual(t, f.Confidence, 95, "case %d", i)
	}
}

func TestCompute_ZeroPrices(t *testing.T) {
	f := Compute(engineconfig.Default().Forecast, 0, newestFirst(0, 0, 0))
	assert.Equal(t, 0, f.PredictedPrice)
	assert.Equal(t, 90, f.Confidence)
}

func TestPredictAll(t *testing.T) {
	milk := contracts.Product{ID: 2, Name: "Milk", BasePrice: 60, CategoryName: "Dairy"}
	e := newEngine(t, newestFirst(100, 105, 110))

	got := e.PredictAll(context.Background(), []contracts.Product{rice, milk}, gangnam)
	require.Len(t, got, 2)

	assert.Equal(t, "Seoul, Gangnam", got[0].Location)
	assert.Equal(t, 110, got[0].CurrentPrice)
	assert.Equal(t, 105, got[0].Forecast.PredictedPrice)

	assert.Equal(t, 66, got[1].CurrentPrice)
	assert.Equal(t, 66, got[1].Forecast.PredictedPrice)
	assert.Equal(t, 80, got[1].Forecast.Confidence)
}
