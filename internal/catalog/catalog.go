// Package catalog adapts the products.json / locations.json collaborator
// documents into the read-only CatalogReader the engine consumes.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/pkg/httputil"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrLocationNotFound = errors.New("location not found")
)

// productsDocument mirrors products.json
type productsDocument struct {
	Categories []struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Products []struct {
			ID    int     `json:"id"`
			Name  string  `json:"name"`
			Price float64 `json:"price"`
			Unit  string  `json:"unit"`
		} `json:"products"`
	} `json:"categories"`
}

// locationsDocument mirrors locations.json
type locationsDocument struct {
	Cities []struct {
		ID        int    `json:"id"`
		Name      string `json:"name"`
		Districts []struct {
			ID          int     `json:"id"`
			Name        string  `json:"name"`
			PriceFactor float64 `json:"price_factor"`
		} `json:"districts"`
	} `json:"cities"`
}

// snapshot is immutable once built
type snapshot struct {
	products  []contracts.Product
	locations []contracts.Location
	byID      map[int]contracts.Product
	byKey     map[string]contracts.Location
}

func newSnapshot(products []contracts.Product, locations []contracts.Location) *snapshot {
	s := &snapshot{
		products:  products,
		locations: locations,
		byID:      make(map[int]contracts.Product, len(products)),
		byKey:     make(map[string]contracts.Location, len(locations)),
	}
	// first occurrence wins, like a linear scan
	for _, p := range products {
		if _, dup := s.byID[p.ID]; !dup {
			s.byID[p.ID] = p
		}
	}
	for _, l := range locations {
		if _, dup := s.byKey[l.Key()]; !dup {
			s.byKey[l.Key()] = l
		}
	}
	return s
}

// Catalog serves products and locations. Safe for concurrent use.
// ⭐ SSOT: 상품/지역 조회는 이 타입만 사용
type Catalog struct {
	mu   sync.RWMutex
	snap *snapshot

	productsSource  string
	locationsSource string
	client          *httputil.Client
	log             zerolog.Logger
}

var _ contracts.CatalogReader = (*Catalog)(nil)

// New returns a static catalog over the given products and locations
func New(products []contracts.Product, locations []contracts.Location) *Catalog {
	return &Catalog{
		snap: newSnapshot(products, locations),
		log:  zerolog.Nop(),
	}
}

// Load reads both documents from a path or http(s) URL.
// client may be nil when neither source is a URL.
func Load(ctx context.Context, productsSource, locationsSource string, client *httputil.Client, log zerolog.Logger) (*Catalog, error) {
	c := &Catalog{
		productsSource:  productsSource,
		locationsSource: locationsSource,
		client:          client,
		log:             log.With().Str("component", "catalog").Logger(),
	}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads both sources and swaps the snapshot.
// On failure the previous snapshot stays in place.
func (c *Catalog) Reload(ctx context.Context) error {
	var pdoc productsDocument
	if err := c.read(ctx, c.productsSource, &pdoc); err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	var ldoc locationsDocument
	if err := c.read(ctx, c.locationsSource, &ldoc); err != nil {
		return fmt.Errorf("load locations: %w", err)
	}

	snap := newSnapshot(flattenProducts(pdoc), flattenLocations(ldoc))

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.log.Info().
		Int("products", len(snap.products)).
		Int("locations", len(snap.locations)).
		Msg("catalog loaded")

	return nil
}

// FileSources returns the sources that are local files (watchable)
func (c *Catalog) FileSources() []string {
	var files []string
	for _, src := range []string{c.productsSource, c.locationsSource} {
		if src != "" && !isURL(src) {
			files = append(files, src)
		}
	}
	return files
}

// Products returns every product in document order
func (c *Catalog) Products() []contracts.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]contracts.Product, len(c.snap.products))
	copy(out, c.snap.products)
	return out
}

// Locations returns every city/district pair in document order
func (c *Catalog) Locations() []contracts.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]contracts.Location, len(c.snap.locations))
	copy(out, c.snap.locations)
	return out
}

// Product looks up a product by id
func (c *Catalog) Product(id int) (contracts.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.snap.byID[id]
	return p, ok
}

// Location looks up a district of a city
func (c *Catalog) Location(cityID, districtID int) (contracts.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.snap.byKey[contracts.LocationKey(cityID, districtID)]
	return l, ok
}

// LocationByKey resolves a stored location key
func (c *Catalog) LocationByKey(key string) (contracts.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.snap.byKey[key]
	return l, ok
}

// LookupProduct is Product with a sentinel error
func (c *Catalog) LookupProduct(id int) (contracts.Product, error) {
	p, ok := c.Product(id)
	if !ok {
		return contracts.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return p, nil
}

// LookupLocation is Location with a sentinel error
func (c *Catalog) LookupLocation(cityID, districtID int) (contracts.Location, error) {
	l, ok := c.Location(cityID, districtID)
	if !ok {
		return contracts.Location{}, fmt.Errorf("%w: city %d district %d", ErrLocationNotFound, cityID, districtID)
	}
	return l, nil
}

func (c *Catalog) read(ctx context.Context, source string, v any) error {
	if isURL(source) {
		if c.client == nil {
			return fmt.Errorf("no http client for %s", source)
		}
		return c.client.GetJSON(ctx, source, v)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}
	return nil
}

// flattenProducts walks categories in order. Base prices are kept as published.
func flattenProducts(doc productsDocument) []contracts.Product {
	var products []contracts.Product
	for _, cat := range doc.Categories {
		for _, p := range cat.Products {
			products = append(products, contracts.Product{
				ID:           p.ID,
				Name:         p.Name,
				BasePrice:    p.Price,
				Unit:         p.Unit,
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
			})
		}
	}
	return products
}

func flattenLocations(doc locationsDocument) []contracts.Location {
	var locations []contracts.Location
	for _, city := range doc.Cities {
		for _, d := range city.Districts {
			locations = append(locations, contracts.Location{
				CityID:       city.ID,
				CityName:     city.Name,
				DistrictID:   d.ID,
				DistrictName: d.Name,
				PriceFactor:  d.PriceFactor,
			})
		}
	}
	return locations
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
