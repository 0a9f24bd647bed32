package contracts

// Forecast is the engine's point prediction for one product at one location
type Forecast struct {
	CurrentPrice   int            `json:"current_price"`
	PredictedPrice int            `json:"predicted_price"`
	Confidence     int            `json:"confidence"` // 50 ~ 95
	History        []HistoryPoint `json:"history"`
}

// HistoryPoint is a recent observation formatted for display (newest first)
type HistoryPoint struct {
	Date  string `json:"date"` // "Jan 02"
	Price int    `json:"price"`
}

// ProductForecast pairs a product with its forecast at a location
type ProductForecast struct {
	ProductID    int       `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	BasePrice    float64   `json:"base_price"`
	CurrentPrice int       `json:"current_price"`
	Forecast     *Forecast `json:"forecast"`
}
