// Package forecast turns recent price history into a point prediction with
// a confidence score for one product at one location.
package forecast

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/engineconfig"
	"github.com/wonny/pricecast/internal/pricing"
)

var tracer = otel.Tracer("pricecast-forecast")

// Predictor is satisfied by Engine and CachedEngine
type Predictor interface {
	Predict(ctx context.Context, product contracts.Product, location *contracts.Location) *contracts.Forecast
	PredictAll(ctx context.Context, products []contracts.Product, location contracts.Location) []contracts.ProductForecast
}

// Engine 가격 예측 엔진
// ⭐ SSOT: 예측 산식은 Compute 하나
type Engine struct {
	cfg   engineconfig.Forecast
	store contracts.HistoryStore
	log   zerolog.Logger
}

var _ Predictor = (*Engine)(nil)

// NewEngine creates a forecast engine reading from store
func NewEngine(cfg engineconfig.Forecast, store contracts.HistoryStore, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:   cfg,
		store: store,
		log:   log.With().Str("component", "forecast.engine").Logger(),
	}
}

// Predict returns nil when location is absent. It never fails: unreadable
// history degrades to the base-price fallback.
func (e *Engine) Predict(ctx context.Context, product contracts.Product, location *contracts.Location) *contracts.Forecast {
	if location == nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "forecast.predict")
	defer span.End()
	span.SetAttributes(
		attribute.Int("product.id", product.ID),
		attribute.String("location.key", location.Key()),
	)

	current := pricing.LocationPrice(product.BasePrice, location.PriceFactor)
	matches := matching(e.store.ReadAll(ctx), product.ID, location.Key())

	f := Compute(e.cfg, current, matches)
	span.SetAttributes(
		attribute.Int("forecast.points", len(f.History)),
		attribute.Int("forecast.confidence", f.Confidence),
	)

	e.log.Debug().
		Int("product_id", product.ID).
		Str("location_key", location.Key()).
		Int("current", f.CurrentPrice).
		Int("predicted", f.PredictedPrice).
		Int("confidence", f.Confidence).
		Msg("forecast computed")

	return f
}

// PredictAll forecasts every product at location from a single history read
func (e *Engine) PredictAll(ctx context.Context, products []contracts.Product, location contracts.Location) []contracts.ProductForecast {
	ctx, span := tracer.Start(ctx, "forecast.predict_all")
	defer span.End()
	span.SetAttributes(
		attribute.String("location.key", location.Key()),
		attribute.Int("products", len(products)),
	)

	all := e.store.ReadAll(ctx)
	key := location.Key()

	out := make([]contracts.ProductForecast, 0, len(products))
	for _, p := range products {
		current := pricing.LocationPrice(p.BasePrice, location.PriceFactor)
		out = append(out, contracts.ProductForecast{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Category:     p.CategoryName,
			Location:     location.DisplayName(),
			BasePrice:    p.BasePrice,
			CurrentPrice: current,
			Forecast:     Compute(e.cfg, current, matching(all, p.ID, key)),
		})
	}
	return out
}

// matching filters entries for one product/location, newest first.
// The sort is stable so equal dates keep their log order.
func matching(all []contracts.PriceObservation, productID int, locationKey string) []contracts.PriceObservation {
	var out []contracts.PriceObservation
	for _, o := range all {
		if o.ProductID == productID && o.LocationKey == locationKey {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b contracts.PriceObservation) int {
		return cmp.Compare(b.Date, a.Date)
	})
	return out
}

// Compute applies the forecast heuristic to history sorted newest first
func Compute(cfg engineconfig.Forecast, current int, history []contracts.PriceObservation) *contracts.Forecast {
	if len(history) < cfg.MinPoints {
		return &contracts.Forecast{
			CurrentPrice:   current,
			PredictedPrice: current,
			Confidence:     cfg.FallbackConfidence,
			History:        []contracts.HistoryPoint{},
		}
	}

	window := history
	if len(window) > cfg.Window {
		window = window[:cfg.Window]
	}

	prices := make([]float64, len(window))
	for i, o := range window {
		prices[i] = float64(o.Price)
	}
	n := len(prices)
	avg := mean(prices)

	// newest minus oldest segment of the window
	k := min(cfg.TrendWindow, n)
	trend := mean(prices[:k]) - mean(prices[n-k:])

	predicted := avg * (1 + cfg.TrendFactor*trend)
	predicted = math.Max(float64(current)*cfg.ClampLow, math.Min(float64(current)*cfg.ClampHigh, predicted))

	var volatility float64
	if n > 1 {
		var sum float64
		for i := 1; i < n; i++ {
			sum += math.Abs(prices[i] - prices[i-1])
		}
		volatility = sum / float64(n-1)
	}

	var volatilityFactor float64
	if avg != 0 {
		volatilityFactor = volatility / avg
	}

	c := cfg.Confidence
	confidence := c.Base - volatilityFactor*100 + float64(n-cfg.MinPoints)*c.PerPoint
	confidence = math.Min(c.Max, math.Max(c.Min, confidence))

	points := make([]contracts.HistoryPoint, n)
	for i, o := range window {
		points[i] = contracts.HistoryPoint{Date: displayDate(o.Date), Price: o.Price}
	}

	return &contracts.Forecast{
		CurrentPrice:   current,
		PredictedPrice: pricing.Round(predicted),
		Confidence:     pricing.Round(confidence),
		History:        points,
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// displayDate renders YYYY-MM-DD as "Jan 02"; unparseable dates pass through
func displayDate(date string) string {
	t, err := contracts.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format(contracts.DisplayDateLayout)
}
