// Package maintenance keeps the price history populated: a one-time
// backfill for a brand-new store and one synthetic batch per calendar day.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/engineconfig"
	"github.com/wonny/pricecast/internal/synth"
)

var tracer = otel.Tracer("pricecast-maintenance")

// Report summarizes one maintenance pass
type Report struct {
	RunID      string        `json:"run_id"`
	Date       string        `json:"date"`
	Backfilled int           `json:"backfilled"`
	DailyAdded int           `json:"daily_added"`
	Compacted  int           `json:"compacted"`
	Duration   time.Duration `json:"duration_ns"`
}

// Service runs the backfill and daily gates against a history store
// ⭐ SSOT: 이력 초기화/일일 갱신은 여기서만
type Service struct {
	store      contracts.HistoryStore
	catalog    contracts.CatalogReader
	synth      *synth.Synthesizer
	maxEntries int

	group singleflight.Group
	runMu sync.Mutex // one pass (ensure or regenerate) at a time

	listenerMu sync.RWMutex
	listeners  []contracts.HistoryListener

	log zerolog.Logger
}

// New creates a maintenance service
func New(
	store contracts.HistoryStore,
	catalog contracts.CatalogReader,
	synthesizer *synth.Synthesizer,
	retention engineconfig.Retention,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:      store,
		catalog:    catalog,
		synth:      synthesizer,
		maxEntries: retention.MaxEntries,
		log:        log.With().Str("component", "maintenance").Logger(),
	}
}

// AddListener registers l for every batch the service writes
func (s *Service) AddListener(l contracts.HistoryListener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Ensure runs the backfill gate and the daily gate for today.
// Concurrent calls for the same date share one pass. The shared pass is
// detached from the caller's cancellation: a caller that gives up returns
// ctx.Err() while the pass finishes for everyone else.
func (s *Service) Ensure(ctx context.Context, today time.Time) (Report, error) {
	date := contracts.FormatDate(today)

	ch := s.group.DoChan("ensure:"+date, func() (any, error) {
		return s.ensure(context.WithoutCancel(ctx), today)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.log.Debug().Str("date", date).Msg("joined in-flight maintenance pass")
		}
		report, _ := res.Val.(Report)
		return report, res.Err
	case <-ctx.Done():
		return Report{Date: date}, ctx.Err()
	}
}

func (s *Service) ensure(ctx context.Context, today time.Time) (Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report := Report{RunID: uuid.NewString(), Date: contracts.FormatDate(today)}
	start := time.Now()
	log := s.log.With().Str("run_id", report.RunID).Str("date", report.Date).Logger()

	ctx, span := tracer.Start(ctx, "maintenance.ensure")
	span.SetAttributes(
		attribute.String("run.id", report.RunID),
		attribute.String("store.backend", s.store.Backend()),
	)
	defer span.End()

	fail := func(err error) (Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("maintenance pass failed")
		report.Duration = time.Since(start)
		return report, err
	}

	products := s.catalog.Products()
	locations := s.catalog.Locations()

	// 1. Backfill gate
	exists, err := s.store.Exists(ctx)
	if err != nil {
		return fail(fmt.Errorf("check history store: %w", err))
	}
	if !exists {
		n, err := s.backfill(ctx, products, locations, s.synth.BackfillDays(), today)
		if err != nil {
			return fail(err)
		}
		report.Backfilled = n
		log.Info().Int("entries", n).Msg("history backfilled")
	}

	// 2. Daily gate: any entry dated today closes it
	has, err := s.store.HasDate(ctx, report.Date)
	if err != nil {
		return fail(fmt.Errorf("check daily batch: %w", err))
	}
	if !has {
		batch := s.synth.DailyBatch(products, locations, today)
		if err := s.store.Append(ctx, batch); err != nil {
			return fail(fmt.Errorf("append daily batch: %w", err))
		}
		report.DailyAdded = len(batch)
		s.notify(ctx, batch)

		removed, err := s.store.Compact(ctx, s.maxEntries)
		if err != nil {
			return fail(fmt.Errorf("compact history: %w", err))
		}
		report.Compacted = removed
	}

	report.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("history.backfilled", report.Backfilled),
		attribute.Int("history.daily_added", report.DailyAdded),
		attribute.Int("history.compacted", report.Compacted),
	)

	log.Info().
		Int("backfilled", report.Backfilled).
		Int("daily_added", report.DailyAdded).
		Int("compacted", report.Compacted).
		Dur("duration", report.Duration).
		Msg("maintenance pass complete")

	return report, nil
}

// Regenerate discards the whole history and backfills days (default from
// config when days <= 0) ending the day before today. Today's batch is left
// to the next Ensure.
func (s *Service) Regenerate(ctx context.Context, today time.Time, days int) (Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if days <= 0 {
		days = s.synth.BackfillDays()
	}

	report := Report{RunID: uuid.NewString(), Date: contracts.FormatDate(today)}
	start := time.Now()

	ctx, span := tracer.Start(ctx, "maintenance.regenerate")
	span.SetAttributes(attribute.String("run.id", report.RunID), attribute.Int("days", days))
	defer span.End()

	if err := s.store.Reset(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, fmt.Errorf("reset history: %w", err)
	}

	n, err := s.backfill(ctx, s.catalog.Products(), s.catalog.Locations(), days, today)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	report.Backfilled = n
	report.Duration = time.Since(start)

	s.log.Info().
		Str("run_id", report.RunID).
		Int("days", days).
		Int("entries", n).
		Msg("history regenerated")

	return report, nil
}

func (s *Service) backfill(ctx context.Context, products []contracts.Product, locations []contracts.Location, days int, today time.Time) (int, error) {
	batch := s.synth.Backfill(products, locations, days, today)
	if err := s.store.Seed(ctx, batch); err != nil {
		return 0, fmt.Errorf("seed history: %w", err)
	}
	s.notify(ctx, batch)
	return len(batch), nil
}

func (s *Service) notify(ctx context.Context, entries []contracts.PriceObservation) {
	if len(entries) == 0 {
		return
	}

	s.listenerMu.RLock()
	listeners := make([]contracts.HistoryListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()

	for _, l := range listeners {
		l.OnHistoryWritten(ctx, entries)
	}
}

// Notify forwards externally written entries (admin upserts) to listeners
func (s *Service) Notify(ctx context.Context, entries []contracts.PriceObservation) {
	s.notify(ctx, entries)
}
