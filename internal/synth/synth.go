// Package synth generates synthetic price observations that stand in for an
// upstream price feed: a trailing backfill window and one batch per day.
package synth

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/engineconfig"
	"github.com/wonny/pricecast/internal/pricing"
)

// Synthesizer 합성 가격 생성기
// ⭐ SSOT: 합성 가격 지터 산식은 여기서만
type Synthesizer struct {
	cfg engineconfig.Synth
	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
	log zerolog.Logger
}

// New creates a Synthesizer. A nil rng is seeded from the clock.
func New(cfg engineconfig.Synth, rng *rand.Rand, log zerolog.Logger) *Synthesizer {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Synthesizer{
		cfg: cfg,
		rng: rng,
		log: log.With().Str("component", "synth").Logger(),
	}
}

// BackfillDays returns the configured default backfill window
func (s *Synthesizer) BackfillDays() int {
	return s.cfg.BackfillDays
}

// Backfill emits one observation per product × location for each of the
// days calendar days strictly before referenceDate, oldest first.
// Each price is round(locationPrice × U[1-j, 1+j]) with j = BackfillJitter.
func (s *Synthesizer) Backfill(products []contracts.Product, locations []contracts.Location, days int, referenceDate time.Time) []contracts.PriceObservation {
	if days <= 0 {
		return nil
	}

	dates := make([]string, 0, days)
	for offset := days; offset >= 1; offset-- {
		dates = append(dates, contracts.FormatDate(referenceDate.AddDate(0, 0, -offset)))
	}

	entries := make([]contracts.PriceObservation, 0, len(products)*len(locations)*days)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		for _, loc := range locations {
			locationPrice := pricing.LocationPrice(p.BasePrice, loc.PriceFactor)
			key := loc.Key()

			for _, date := range dates {
				entries = append(entries, contracts.PriceObservation{
					ProductID:   p.ID,
					LocationKey: key,
					Date:        date,
					Price:       s.jitter(locationPrice, s.cfg.BackfillJitter),
				})
			}
		}
	}

	s.log.Debug().
		Int("products", len(products)).
		Int("locations", len(locations)).
		Int("days", days).
		Int("entries", len(entries)).
		Msg("backfill generated")

	return entries
}

// DailyBatch emits one observation dated today per product × location,
// priced round(locationPrice × U[1-j, 1+j]) with j = DailyJitter.
func (s *Synthesizer) DailyBatch(products []contracts.Product, locations []contracts.Location, today time.Time) []contracts.PriceObservation {
	date := contracts.FormatDate(today)
	entries := make([]contracts.PriceObservation, 0, len(products)*len(locations))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		for _, loc := range locations {
			locationPrice := pricing.LocationPrice(p.BasePrice, loc.PriceFactor)
			entries = append(entries, contracts.PriceObservation{
				ProductID:   p.ID,
				LocationKey: loc.Key(),
				Date:        date,
				Price:       s.jitter(locationPrice, s.cfg.DailyJitter),
			})
		}
	}

	s.log.Debug().
		Str("date", date).
		Int("entries", len(entries)).
		Msg("daily batch generated")

	return entries
}

// jitter draws a multiplier uniformly from [1-band, 1+band) and rounds.
// Caller holds s.mu.
func (s *Synthesizer) jitter(price int, band float64) int {
	variation := (1 - band) + s.rng.Float64()*(2*band)
	p := pricing.Round(float64(price) * variation)
	if p < 0 {
		return 0
	}
	return p
}
