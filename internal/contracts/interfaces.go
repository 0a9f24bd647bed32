package contracts

import "context"

// HistoryStore is the durable, append-only price observation log
// ⭐ SSOT: 가격 이력 저장소 인터페이스는 여기서만 정의
type HistoryStore interface {
	// ReadAll returns the full log. Missing or unreadable storage yields an
	// empty log, never an error.
	ReadAll(ctx context.Context) []PriceObservation

	// Append adds the batch after the existing entries and persists the log
	Append(ctx context.Context, batch []PriceObservation) error

	// Upsert replaces the price of the first entry with the same
	// product/location/date, or appends the entry. inserted is true on append.
	Upsert(ctx context.Context, entry PriceObservation) (inserted bool, err error)

	// Compact keeps only the newest maxSize entries by date when the log is larger
	Compact(ctx context.Context, maxSize int) (removed int, err error)

	// Exists reports whether the durable store has ever been created
	Exists(ctx context.Context) (bool, error)

	// Seed creates the durable store holding exactly batch
	Seed(ctx context.Context, batch []PriceObservation) error

	// HasDate reports whether any entry is dated date
	HasDate(ctx context.Context, date string) (bool, error)

	// Reset removes the durable store entirely
	Reset(ctx context.Context) error

	// Backend names the storage implementation ("file", "postgres", "sqlite")
	Backend() string
}

// HistoryListener is notified after observations were durably written
type HistoryListener interface {
	OnHistoryWritten(ctx context.Context, entries []PriceObservation)
}

// HistoryListenerFunc adapts a function to HistoryListener
type HistoryListenerFunc func(ctx context.Context, entries []PriceObservation)

// OnHistoryWritten calls f
func (f HistoryListenerFunc) OnHistoryWritten(ctx context.Context, entries []PriceObservation) {
	f(ctx, entries)
}

// CatalogReader supplies products and locations owned by the catalog collaborator
type CatalogReader interface {
	Products() []Product
	Locations() []Location
	Product(id int) (Product, bool)
	Location(cityID, districtID int) (Location, bool)
	LocationByKey(key string) (Location, bool)
}
