package forecast

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/pricing"
	"github.com/wonny/pricecast/pkg/redis"
)

// CachedEngine serves forecasts from Redis when enabled.
// Keys carry the date, the engine config hash and a generation counter that
// every history write bumps, so stale entries are never read back.
type CachedEngine struct {
	engine     *Engine
	cache      *redis.Cache
	configHash string
	now        func() time.Time
	log        zerolog.Logger
}

var (
	_ Predictor                 = (*CachedEngine)(nil)
	_ contracts.HistoryListener = (*CachedEngine)(nil)
)

// NewCachedEngine wraps engine; with a disabled cache it is a pass-through
func NewCachedEngine(engine *Engine, cache *redis.Cache, configHash string, log zerolog.Logger) *CachedEngine {
	return &CachedEngine{
		engine:     engine,
		cache:      cache,
		configHash: configHash,
		now:        time.Now,
		log:        log.With().Str("component", "forecast.cache").Logger(),
	}
}

// Predict implements Predictor
func (c *CachedEngine) Predict(ctx context.Context, product contracts.Product, location *contracts.Location) *contracts.Forecast {
	if location == nil {
		return nil
	}
	if !c.cache.Enabled() {
		return c.engine.Predict(ctx, product, location)
	}

	gen, ok := c.generation(ctx)
	if !ok {
		return c.engine.Predict(ctx, product, location)
	}
	key := redis.ForecastKey(contracts.FormatDate(c.now()), c.configHash, gen, product.ID, location.Key())

	var cached contracts.Forecast
	if found, err := c.cache.Get(ctx, key, &cached); err == nil && found && cached.CurrentPrice == pricing.LocationPrice(product.BasePrice, location.PriceFactor) {
		return &cached
	}

	f := c.engine.Predict(ctx, product, location)
	if err := c.cache.Set(ctx, key, f, redis.TTLForecast); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("forecast cache write failed")
	}
	return f
}

// PredictAll implements Predictor
func (c *CachedEngine) PredictAll(ctx context.Context, products []contracts.Product, location contracts.Location) []contracts.ProductForecast {
	if !c.cache.Enabled() {
		return c.engine.PredictAll(ctx, products, location)
	}

	gen, ok := c.generation(ctx)
	if !ok {
		return c.engine.PredictAll(ctx, products, location)
	}
	key := redis.ForecastLocationKey(contracts.FormatDate(c.now()), c.configHash, gen, location.Key())

	var cached []contracts.ProductForecast
	if found, err := c.cache.Get(ctx, key, &cached); err == nil && found && sameProducts(cached, products, location) {
		return cached
	}

	out := c.engine.PredictAll(ctx, products, location)
	if err := c.cache.Set(ctx, key, out, redis.TTLForecast); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("forecast cache write failed")
	}
	return out
}

// OnHistoryWritten invalidates every cached forecast
func (c *CachedEngine) OnHistoryWritten(ctx context.Context, _ []contracts.PriceObservation) {
	c.Invalidate(ctx)
}

// Invalidate bumps the generation counter
func (c *CachedEngine) Invalidate(ctx context.Context) {
	if !c.cache.Enabled() {
		return
	}
	gen, err := c.cache.Incr(ctx, redis.ForecastGenerationKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("forecast cache invalidation failed")
		return
	}
	c.log.Debug().Int64("generation", gen).Msg("forecast cache invalidated")
}

func (c *CachedEngine) generation(ctx context.Context) (int64, bool) {
	gen, err := c.cache.Counter(ctx, redis.ForecastGenerationKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("forecast cache unavailable, computing directly")
		return 0, false
	}
	return gen, true
}

// sameProducts guards against catalog edits between cache writes
func sameProducts(cached []contracts.ProductForecast, products []contracts.Product, location contracts.Location) bool {
	if len(cached) != len(products) {
		return false
	}
	for i, p := range products {
		if cached[i].ProductID != p.ID || cached[i].CurrentPrice != pricing.LocationPrice(p.BasePrice, location.PriceFactor) {
			return false
		}
	}
	return true
}
