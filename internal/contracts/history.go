package contracts

import (
	"fmt"
	"time"
)

// DateLayout is the on-disk and wire format of observation dates.
// Lexicographic order of this layout equals chronological order.
const DateLayout = "2006-01-02"

// DisplayDateLayout is the short label used in forecast history rows
const DisplayDateLayout = "Jan 02"

// PriceObservation is one daily price for a product at a location
// ⭐ SSOT: 가격 이력 레코드는 이 구조체만 사용
type PriceObservation struct {
	ProductID   int    `json:"product_id"`
	LocationKey string `json:"location_key"` // "<city_id>_<district_id>"
	Date        string `json:"date"`         // YYYY-MM-DD
	Price       int    `json:"price"`
}

// SameSlot reports whether two observations share product, location and date
func (o PriceObservation) SameSlot(other PriceObservation) bool {
	return o.ProductID == other.ProductID &&
		o.LocationKey == other.LocationKey &&
		o.Date == other.Date
}

// HistoryFile is the durable JSON layout of the file backend
type HistoryFile struct {
	History []PriceObservation `json:"history"`
}

// LocationKey builds the composite key "<city_id>_<district_id>"
func LocationKey(cityID, districtID int) string {
	return fmt.Sprintf("%d_%d", cityID, districtID)
}

// FormatDate renders t as a calendar date in its own location
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
