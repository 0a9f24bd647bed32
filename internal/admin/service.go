// Package admin backs the operator screens for price history: filtered
// listing with summary statistics, manual entry and full regeneration.
package admin

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/maintenance"
	"github.com/wonny/pricecast/internal/pricing"
)

const (
	// DefaultDays is the trailing window when a query gives none
	DefaultDays = 10
	// MaxRows caps a listing
	MaxRows = 500
)

// HistoryQuery filters the listing. Nil or zero ids mean "no filter";
// the location filter applies only when both ids are set.
// Nil Days means DefaultDays; 0 keeps only today's entries.
type HistoryQuery struct {
	ProductID  *int
	CityID     *int
	DistrictID *int
	Days       *int
}

// HistoryRow is one displayed observation with catalog context
type HistoryRow struct {
	ProductID     int     `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Category      string  `json:"category"`
	Location      string  `json:"location"`
	CityID        int     `json:"city_id"`
	DistrictID    int     `json:"district_id"`
	Date          string  `json:"date"`
	Price         int     `json:"price"`
	BasePrice     float64 `json:"base_price"`
	PriceFactor   float64 `json:"price_factor"`
	ExpectedPrice int     `json:"expected_price"`
}

// Stats summarizes the whole log plus deviation over the displayed rows
type Stats struct {
	TotalEntries     int     `json:"total_entries"`
	DisplayedEntries int     `json:"displayed_entries"`
	UniqueProducts   int     `json:"unique_products"`
	UniqueLocations  int     `json:"unique_locations"`
	OldestDate       string  `json:"oldest_date"`
	NewestDate       string  `json:"newest_date"`
	AvgDeviation     float64 `json:"avg_deviation"`
	MaxDeviation     float64 `json:"max_deviation"`
	MinDeviation     float64 `json:"min_deviation"`
}

// HistoryPage is a listing result. Stats is nil when no row is displayed.
type HistoryPage struct {
	Rows  []HistoryRow `json:"rows"`
	Stats *Stats       `json:"stats,omitempty"`
	Days  int          `json:"days"`
}

// EntryInput is a raw manual entry as submitted by an operator
type EntryInput struct {
	ProductID  string `json:"product_id"`
	CityID     string `json:"city_id"`
	DistrictID string `json:"district_id"`
	Price      string `json:"price"`
	Date       string `json:"date"`
}

// EntryResult reports what AddEntry did
type EntryResult struct {
	Inserted bool                       `json:"inserted"`
	Message  string                     `json:"message"`
	Entry    contracts.PriceObservation `json:"entry"`
}

// Service 관리자 가격 이력 화면
type Service struct {
	store   contracts.HistoryStore
	catalog contracts.CatalogReader
	maint   *maintenance.Service
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates the admin service
func NewService(store contracts.HistoryStore, catalog contracts.CatalogReader, maint *maintenance.Service, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		maint:   maint,
		now:     time.Now,
		log:     log.With().Str("component", "admin").Logger(),
	}
}

// Query lists history newest slot first with catalog details attached
func (s *Service) Query(ctx context.Context, q HistoryQuery) HistoryPage {
	days := DefaultDays
	if q.Days != nil {
		days = *q.Days
	}
	cutoff := contracts.FormatDate(s.now().AddDate(0, 0, -days))

	all := s.store.ReadAll(ctx)

	var locationKey string
	if nonZero(q.CityID) && nonZero(q.DistrictID) {
		locationKey = contracts.LocationKey(*q.CityID, *q.DistrictID)
	}

	filtered := make([]contracts.PriceObservation, 0, len(all))
	for _, e := range all {
		if nonZero(q.ProductID) && e.ProductID != *q.ProductID {
			continue
		}
		if locationKey != "" && e.LocationKey != locationKey {
			continue
		}
		if e.Date < cutoff {
			continue
		}
		filtered = append(filtered, e)
	}

	slices.SortStableFunc(filtered, func(a, b contracts.PriceObservation) int {
		return cmp.Or(
			cmp.Compare(b.ProductID, a.ProductID),
			cmp.Compare(b.LocationKey, a.LocationKey),
			cmp.Compare(b.Date, a.Date),
		)
	})
	if len(filtered) > MaxRows {
		filtered = filtered[:MaxRows]
	}

	rows := make([]HistoryRow, 0, len(filtered))
	for _, e := range filtered {
		row, ok := s.describe(e)
		if ok {
			rows = append(rows, row)
		}
	}

	page := HistoryPage{Rows: rows, Days: days}
	if len(rows) > 0 {
		page.Stats = summarize(all, rows)
	}
	return page
}

// nonZero reports whether an id filter is set. 0 is the form's "any".
func nonZero(id *int) bool { return id != nil && *id != 0 }

func (s *Service) describe(e contracts.PriceObservation) (HistoryRow, bool) {
	product, ok := s.catalog.Product(e.ProductID)
	if !ok {
		return HistoryRow{}, false
	}
	location, ok := s.catalog.LocationByKey(e.LocationKey)
	if !ok {
		return HistoryRow{}, false
	}

	return HistoryRow{
		ProductID:     e.ProductID,
		ProductName:   product.Name,
		Category:      product.CategoryName,
		Location:      location.DisplayName(),
		CityID:        location.CityID,
		DistrictID:    location.DistrictID,
		Date:          e.Date,
		Price:         e.Price,
		BasePrice:     product.BasePrice,
		PriceFactor:   location.PriceFactor,
		ExpectedPrice: pricing.LocationPrice(product.BasePrice, location.PriceFactor),
	}, true
}

func summarize(all []contracts.PriceObservation, rows []HistoryRow) *Stats {
	stats := &Stats{
		TotalEntries:     len(all),
		DisplayedEntries: len(rows),
	}

	products := make(map[int]struct{})
	locations := make(map[string]struct{})
	for i, e := range all {
		products[e.ProductID] = struct{}{}
		locations[e.LocationKey] = struct{}{}
		if i == 0 || e.Date < stats.OldestDate {
			stats.OldestDate = e.Date
		}
		if i == 0 || e.Date > stats.NewestDate {
			stats.NewestDate = e.Date
		}
	}
	stats.UniqueProducts = len(products)
	stats.UniqueLocations = len(locations)

	// rows with a zero expected price have no defined deviation
	var deviations []float64
	for _, r := range rows {
		if r.ExpectedPrice == 0 {
			continue
		}
		deviations = append(deviations, float64(r.Price-r.ExpectedPrice)/float64(r.ExpectedPrice)*100)
	}
	if len(deviations) > 0 {
		var sum float64
		for _, d := range deviations {
			sum += d
		}
		stats.AvgDeviation = round2(sum / float64(len(deviations)))
		stats.MaxDeviation = round2(slices.Max(deviations))
		stats.MinDeviation = round2(slices.Min(deviations))
	}

	return stats
}

func round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// AddEntry validates input and upserts it. The store is untouched on error.
func (s *Service) AddEntry(ctx context.Context, in EntryInput) (EntryResult, error) {
	productID, err := parseID("product_id", in.ProductID)
	if err != nil {
		return EntryResult{}, err
	}
	cityID, err := parseID("city_id", in.CityID)
	if err != nil {
		return EntryResult{}, err
	}
	districtID, err := parseID("district_id", in.DistrictID)
	if err != nil {
		return EntryResult{}, err
	}

	price, err := strconv.Atoi(strings.TrimSpace(in.Price))
	if err != nil {
		return EntryResult{}, invalid("price", "must be an integer")
	}
	if price < 0 {
		return EntryResult{}, invalid("price", "must not be negative")
	}

	date := strings.TrimSpace(in.Date)
	if _, err := contracts.ParseDate(date); err != nil {
		return EntryResult{}, invalid("date", "must be YYYY-MM-DD")
	}

	product, ok := s.catalog.Product(productID)
	if !ok {
		return EntryResult{}, invalid("", "Product not found")
	}
	if _, ok := s.catalog.Location(cityID, districtID); !ok {
		return EntryResult{}, invalid("", "Location not found")
	}

	entry := contracts.PriceObservation{
		ProductID:   productID,
		LocationKey: contracts.LocationKey(cityID, districtID),
		Date:        date,
		Price:       price,
	}

	inserted, err := s.store.Upsert(ctx, entry)
	if err != nil {
		return EntryResult{}, fmt.Errorf("save price entry: %w", err)
	}
	if s.maint != nil {
		s.maint.Notify(ctx, []contracts.PriceObservation{entry})
	}

	verb := "Updated"
	if inserted {
		verb = "Added new"
	}
	msg := fmt.Sprintf("%s price history for %s on %s", verb, product.Name, date)

	s.log.Info().
		Int("product_id", productID).
		Str("location_key", entry.LocationKey).
		Str("date", date).
		Int("price", price).
		Bool("inserted", inserted).
		Msg("price entry saved")

	return EntryResult{Inserted: inserted, Message: msg, Entry: entry}, nil
}

// Regenerate discards all history and backfills days (default 10)
func (s *Service) Regenerate(ctx context.Context, days int) (maintenance.Report, string, error) {
	if days <= 0 {
		days = DefaultDays
	}
	report, err := s.maint.Regenerate(ctx, s.now(), days)
	if err != nil {
		return report, "", err
	}
	return report, fmt.Sprintf("Successfully regenerated price history for the past %d days", days), nil
}

func parseID(field, raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalid(field, "must be an integer")
	}
	return id, nil
}
