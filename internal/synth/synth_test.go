package synth

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/engineconfig"
	"github.com/wonny/pricecast/internal/pricing"
)

func newTestSynth(seed uint64) *Synthesizer {
	return New(engineconfig.Default().Synth, rand.New(rand.NewPCG(seed, seed+1)), zerolog.Nop())
}

var (
	testProducts = []contracts.Product{
		{ID: 101, Name: "Fresh Apples", BasePrice: 100},
		{ID: 201, Name: "Milk", BasePrice: 57},
	}
	testLocations = []contracts.Location{
		{CityID: 1, DistrictID: 1, PriceFactor: 1.1},
		{CityID: 1, DistrictID: 2, PriceFactor: 0.95},
		{CityID: 2, DistrictID: 1, PriceFactor: 1.3},
	}
)

func TestBackfill_SinglePair(t *testing.T) {
	s := newTestSynth(1)
	ref := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)

	entries := s.Backfill(testProducts[:1], testLocations[:1], 10, ref)
	require.Len(t, entries, 10)

	locationPrice := pricing.LocationPrice(100, 1.1)
	expectedDate := ref.AddDate(0, 0, -10)
	for i, e := range entries {
		assert.Equal(t, 101, e.ProductID)
		assert.Equal(t, "1_1", e.LocationKey)
		// 10 consecutive days, oldest first, ending the day before ref (crosses Feb 28)
		assert.Equal(t, contracts.FormatDate(expectedDate.AddDate(0, 0, i)), e.Date)
		assert.GreaterOrEqual(t, float64(e.Price), float64(locationPrice)*0.95-0.5)
		assert.LessOrEqual(t, float64(e.Price), float64(locationPrice)*1.05+0.5)
	}
	assert.Equal(t, "2026-02-20", entries[0].Date)
	assert.Equal(t, "2026-02-28", entries[9].Date)
}

func TestBackfill_AllPairs(t *testing.T) {
	s := newTestSynth(2)
	ref := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	entries := s.Backfill(testProducts, testLocations, 10, ref)
	assert.Len(t, entries, len(testProducts)*len(testLocations)*10)

	perPair := map[string]int{}
	for _, e := range entries {
		perPair[fmt.Sprintf("%d/%s", e.ProductID, e.LocationKey)]++
		assert.Less(t, e.Date, "2026-10-18")
		assert.GreaterOrEqual(t, e.Date, "2026-10-08")
	}
	assert.Len(t, perPair, 6)
	for _, n := range perPair {
		assert.Equal(t, 10, n)
	}
}

func TestBackfill_ZeroDays(t *testing.T) {
	s := newTestSynth(3)
	assert.Empty(t, s.Backfill(testProducts, testLocations, 0, time.Now()))
}

func TestDailyBatch(t *testing.T) {
	s := newTestSynth(4)
	today := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	entries := s.DailyBatch(testProducts, testLocations, today)
	require.Len(t, entries, len(testProducts)*len(testLocations))

	for _, e := range entries {
		assert.Equal(t, "2026-10-18", e.Date)

		var base float64
		for _, p := range testProducts {
			if p.ID == e.ProductID {
				base = p.BasePrice
			}
		}
		var factor float64
		for _, l := range testLocations {
			if l.Key() == e.LocationKey {
				factor = l.PriceFactor
			}
		}
		locationPrice := float64(pricing.LocationPrice(base, factor))
		assert.GreaterOrEqual(t, float64(e.Price), locationPrice*0.98-0.5)
		assert.LessOrEqual(t, float64(e.Price), locationPrice*1.02+0.5)
	}
}

func TestJitter_UsesRandomSource(t *testing.T) {
	ref := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	a := newTestSynth(7).Backfill(testProducts, testLocations, 10, ref)
	b := newTestSynth(7).Backfill(testProducts, testLocations, 10, ref)
	assert.Equal(t, a, b, "same seed must reproduce the same history")

	c := newTestSynth(8).Backfill(testProducts, testLocations, 10, ref)
	assert.NotEqual(t, a, c)
}
