package contracts

// Product is the catalog collaborator's view of a product.
// The engine only reads ID and BasePrice; the rest is display data.
type Product struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	BasePrice    float64 `json:"price"` // raw catalog price, may be fractional
	Unit         string  `json:"unit,omitempty"`
	CategoryID   int     `json:"category_id"`
	CategoryName string  `json:"category"`
}

// Location is a district inside a city with its price factor
type Location struct {
	CityID       int     `json:"city_id"`
	CityName     string  `json:"city_name"`
	DistrictID   int     `json:"district_id"`
	DistrictName string  `json:"district_name"`
	PriceFactor  float64 `json:"price_factor"`
}

// Key returns the composite location key used to partition history
func (l Location) Key() string {
	return LocationKey(l.CityID, l.DistrictID)
}

// DisplayName renders "City, District"
func (l Location) DisplayName() string {
	return l.CityName + ", " + l.DistrictName
}
