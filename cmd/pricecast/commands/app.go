package commands

import (
	"context"
	"fmt"

	"github.com/wonny/pricecast/internal/admin"
	"github.com/wonny/pricecast/internal/catalog"
	"github.com/wonny/pricecast/internal/engineconfig"
	"github.com/wonny/pricecast/internal/forecast"
	"github.com/wonny/pricecast/internal/history"
	"github.com/wonny/pricecast/internal/maintenance"
	"github.com/wonny/pricecast/internal/synth"
	"github.com/wonny/pricecast/pkg/config"
	"github.com/wonny/pricecast/pkg/httputil"
	"github.com/wonny/pricecast/pkg/logger"
	"github.com/wonny/pricecast/pkg/redis"
)

// app wires every component a command may need
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg       *config.Config
	engineCfg *engineconfig.Config
	log       *logger.Logger

	store       history.Store
	catalog     *catalog.Catalog
	redis       *redis.Client
	maintenance *maintenance.Service
	engine      *forecast.Engine
	cached      *forecast.CachedEngine
	admin       *admin.Service
}

// newApp loads configuration and builds the component graph
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if engineConfigPath != "" {
		cfg.EngineConfigPath = engineConfigPath
	}
	if storeBackend != "" {
		cfg.Store.Backend = storeBackend
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Engine tuning constants
	engineCfg, err := engineconfig.Load(cfg.EngineConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}
	configHash, err := engineconfig.Hash(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("hash engine config: %w", err)
	}

	// 4. Catalog collaborator
	cat, err := catalog.Load(ctx, cfg.Catalog.ProductsSource, cfg.Catalog.LocationsSource,
		httputil.New(log), log.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	// 5. History store
	store, err := history.Open(ctx, cfg, log.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	// 6. Redis (optional)
	rdb, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, forecast cache disabled")
		rdb = redis.Disabled()
	}

	// 7. Services
	syn := synth.New(engineCfg.Synth, nil, log.Zerolog())
	maint := maintenance.New(store, cat, syn, engineCfg.Retention, log.Zerolog())
	engine := forecast.NewEngine(engineCfg.Forecast, store, log.Zerolog())
	cached := forecast.NewCachedEngine(engine, redis.NewCache(rdb, redis.KeyPrefix), configHash, log.Zerolog())
	maint.AddListener(cached)

	log.WithFields(map[string]interface{}{
		"backend":     store.Backend(),
		"products":    len(cat.Products()),
		"locations":   len(cat.Locations()),
		"redis":       rdb.Enabled(),
		"config_hash": configHash[:12],
	}).Debug("Application initialized")

	return &app{
		cfg:         cfg,
		engineCfg:   engineCfg,
		log:         log,
		store:       store,
		catalog:     cat,
		redis:       rdb,
		maintenance: maint,
		engine:      engine,
		cached:      cached,
		admin:       admin.NewService(store, cat, maint, log.Zerolog()),
	}, nil
}

// Close releases the store and Redis connections
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close history store")
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}
