package admin

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricecast/internal/catalog"
	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/engineconfig"
	"github.com/wonny/pricecast/internal/history"
	"github.com/wonny/pricecast/internal/maintenance"
	"github.com/wonny/pricecast/internal/synth"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func ptr(v int) *int { return &v }

type fixture struct {
	svc   *Service
	store *history.FileStore
}

func newFixture(t *testing.T, entries ...contracts.PriceObservation) fixture {
	t.Helper()
	ctx := context.Background()

	store := history.NewFileStore(filepath.Join(t.TempDir(), "price_history.json"), zerolog.Nop())
	if len(entries) > 0 {
		require.NoError(t, store.Seed(ctx, entries))
	}

	cat := catalog.New(
		[]contracts.Product{
			{ID: 1, Name: "Rice", BasePrice: 100, CategoryName: "Grains"},
			{ID: 2, Name: "Milk", BasePrice: 50, CategoryName: "Dairy"},
		},
		[]contracts.Location{
			{CityID: 1, CityName: "Seoul", DistrictID: 1, DistrictName: "Gangnam", PriceFactor: 1.2},
			{CityID: 1, CityName: "Seoul", DistrictID: 2, DistrictName: "Mapo", PriceFactor: 1.0},
		},
	)

	cfg := engineconfig.Default()
	syn := synth.New(cfg.Synth, rand.New(rand.NewPCG(3, 4)), zerolog.Nop())
	maint := maintenance.New(store, cat, syn, cfg.Retention, zerolog.Nop())

	svc := NewService(store, cat, maint, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return fixture{svc: svc, store: store}
}

func o(productID int, key, date string, price int) contracts.PriceObservation {
	return contracts.PriceObservation{ProductID: productID, LocationKey: key, Date: date, Price: price}
}

func TestQuery_FilterSortAndDetails(t *testing.T) {
	f := newFixture(t,
		o(1, "1_1", "2024-03-14", 120),
		o(1, "1_1", "2024-03-01", 100), // before the 10-day cutoff
		o(2, "1_2", "2024-03-13", 55),
		o(1, "1_2", "2024-03-14", 90),
		o(9, "1_1", "2024-03-14", 10), // unknown product
		o(1, "7_7", "2024-03-14", 10), // unknown location
		o(1, "1_1", "2024-03-05", 126),
	)

	page := f.svc.Query(context.Background(), HistoryQuery{})

	want := []HistoryRow{
		{ProductID: 2, ProductName: "Milk", Category: "Dairy", Location: "Seoul, Mapo", CityID: 1, DistrictID: 2, Date: "2024-03-13", Price: 55, BasePrice: 50, PriceFactor: 1.0, ExpectedPrice: 50},
		{ProductID: 1, ProductName: "Rice", Category: "Grains", Location: "Seoul, Mapo", CityID: 1, DistrictID: 2, Date: "2024-03-14", Price: 90, BasePrice: 100, PriceFactor: 1.0, ExpectedPrice: 100},
		{ProductID: 1, ProductName: "Rice", Category: "Grains", Location: "Seoul, Gangnam", CityID: 1, DistrictID: 1, Date: "2024-03-14", Price: 120, BasePrice: 100, PriceFactor: 1.2, ExpectedPrice: 120},
		{ProductID: 1, ProductName: "Rice", Category: "Grains", Location: "Seoul, Gangnam", CityID: 1, DistrictID: 1, Date: "2024-03-05", Price: 126, BasePrice: 100, PriceFactor: 1.2, ExpectedPrice: 120},
	}
	if diff := cmp.Diff(want, page.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, page.Stats)
	wantStats := &Stats{
		TotalEntries:     7,
		DisplayedEntries: 4,
		UniqueProducts:   3,
		UniqueLocations:  3,
		OldestDate:       "2024-03-01",
		NewestDate:       "2024-03-14",
		AvgDeviation:     1.25, // (10 - 10 + 0 + 5) / 4
		MaxDeviation:     10,
		MinDeviation:     -10,
	}
	if diff := cmp.Diff(wantStats, page.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, DefaultDays, page.Days)
}

func TestQuery_LocationFilterNeedsBothIDs(t *testing.T) {
	f := newFixture(t,
		o(1, "1_1", "2024-03-14", 120),
		o(1, "1_2", "2024-03-14", 100),
	)
	ctx := context.Background()

	assert.Len(t, f.svc.Query(ctx, HistoryQuery{CityID: ptr(1)}).Rows, 2)
	assert.Len(t, f.svc.Query(ctx, HistoryQuery{CityID: ptr(1), DistrictID: ptr(2)}).Rows, 1)
	assert.Len(t, f.svc.Query(ctx, HistoryQuery{ProductID: ptr(2)}).Rows, 0)
}

func TestQuery_DaysAndEmptyStats(t *testing.T) {
	f := newFixture(t, o(1, "1_1", "2024-03-01", 120))
	ctx := context.Background()

	page := f.svc.Query(ctx, HistoryQuery{})
	assert.Empty(t, page.Rows)
	assert.Nil(t, page.Stats)

	page = f.svc.Query(ctx, HistoryQuery{Days: ptr(30)})
	assert.Len(t, page.Rows, 1)
	assert.Equal(t, 30, page.Days)
}

func TestQuery_ZeroValuesMatchForm(t *testing.T) {
	f := newFixture(t,
		o(1, "1_1", "2024-03-15", 120),
		o(1, "1_1", "2024-03-14", 110),
		o(2, "1_2", "2024-03-15", 80),
	)
	ctx := context.Background()

	// days=0 → cutoff is today
	page := f.svc.Query(ctx, HistoryQuery{Days: ptr(0)})
	assert.Len(t, page.Rows, 2)
	assert.Equal(t, 0, page.Days)
	for _, row := range page.Rows {
		assert.Equal(t, "2024-03-15", row.Date)
	}

	// 0 ids mean "any"
	assert.Len(t, f.svc.Query(ctx, HistoryQuery{ProductID: ptr(0)}).Rows, 3)
	assert.Len(t, f.svc.Query(ctx, HistoryQuery{CityID: ptr(1), DistrictID: ptr(0)}).Rows, 3)
}

func TestQuery_CapsRows(t *testing.T) {
	var entries []contracts.PriceObservation
	for i := 0; i < 600; i++ {
		entries = append(entries, o(1, "1_1", "2024-03-14", i))
	}
	f := newFixture(t, entries...)

	page := f.svc.Query(context.Background(), HistoryQuery{})
	assert.Len(t, page.Rows, MaxRows)
	assert.Equal(t, 600, page.Stats.TotalEntries)
}

func TestAddEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, o(1, "1_1", "2024-03-14", 120))

	res, err := f.svc.AddEntry(ctx, EntryInput{ProductID: "1", CityID: "1", DistrictID: "1", Price: "130", Date: "2024-03-14"})
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, "Updated price history for Rice on 2024-03-14", res.Message)

	res, err = f.svc.AddEntry(ctx, EntryInput{ProductID: "2", CityID: "1", DistrictID: "2", Price: "48", Date: "2024-03-15"})
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.Equal(t, "Added new price history for Milk on 2024-03-15", res.Message)

	assert.Equal(t, []contracts.PriceObservation{
		o(1, "1_1", "2024-03-14", 130),
		o(2, "1_2", "2024-03-15", 48),
	}, f.store.ReadAll(ctx))
}

func TestAddEntry_Validation(t *testing.T) {
	valid := EntryInput{ProductID: "1", CityID: "1", DistrictID: "1", Price: "100", Date: "2024-03-14"}

	tests := []struct {
		name    string
		mutate  func(in *EntryInput)
		field   string
		message string
	}{
		{"non-numeric product", func(in *EntryInput) { in.ProductID = "abc" }, "product_id", "must be an integer"},
		{"non-numeric city", func(in *EntryInput) { in.CityID = "" }, "city_id", "must be an integer"},
		{"non-numeric district", func(in *EntryInput) { in.DistrictID = "1.5" }, "district_id", "must be an integer"},
		{"negative price", func(in *EntryInput) { in.Price = "-1" }, "price", "must not be negative"},
		{"fractional price", func(in *EntryInput) { in.Price = "9.5" }, "price", "must be an integer"},
		{"bad date", func(in *EntryInput) { in.Date = "14/03/2024" }, "date", "must be YYYY-MM-DD"},
		{"impossible date", func(in *EntryInput) { in.Date = "2024-02-30" }, "date", "must be YYYY-MM-DD"},
		{"unknown product", func(in *EntryInput) { in.ProductID = "99" }, "", "Product not found"},
		{"unknown location", func(in *EntryInput) { in.DistrictID = "9" }, "", "Location not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, o(1, "1_1", "2024-03-14", 120))
			before := f.store.ReadAll(ctx)

			in := valid
			tt.mutate(&in)
			_, err := f.svc.AddEntry(ctx, in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Message)
			assert.Equal(t, before, f.store.ReadAll(ctx))
		})
	}
}

func TestRegenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, o(1, "1_1", "2024-03-14", 120))

	report, msg, err := f.svc.Regenerate(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Successfully regenerated price history for the past 10 days", msg)
	assert.Equal(t, 40, report.Backfilled) // 2 products × 2 locations × 10 days

	entries := f.store.ReadAll(ctx)
	require.Len(t, entries, 40)
	for _, e := range entries {
		assert.Less(t, e.Date, "2024-03-15", fmt.Sprintf("%+v", e))
	}
}
