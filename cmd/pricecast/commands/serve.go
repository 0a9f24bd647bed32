package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/pricecast/internal/api"
	"github.com/wonny/pricecast/internal/api/handlers"
	"github.com/wonny/pricecast/internal/catalog"
	"github.com/wonny/pricecast/internal/realtime"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 서버와 실시간 이력 피드를 시작합니다.

이 명령어는:
- 시작 시 이력 유지보수(백필/일일 배치/압축) 1회 실행
- HTTP API 서버 시작
- cron 스케줄러 시작 (MAINTENANCE_SCHEDULE, FORECAST_WARM_SCHEDULE)
- CATALOG_WATCH=true 이면 카탈로그 파일 변경 감시

Endpoints:
  GET  /health
  GET  /api/forecast/{product_id}?city_id=&district_id=
  GET  /api/forecast/location/{city_id}/{district_id}
  POST /api/maintenance
  GET  /api/history
  POST /api/history
  POST /api/history/regenerate?days=
  GET  /ws/history

Example:
  go run ./cmd/pricecast serve
  go run ./cmd/pricecast serve --port 8080`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== pricecast API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}
	log := a.log

	// 1. Realtime feed
	hub := realtime.NewHub(log.Zerolog())
	defer hub.Close()
	a.maintenance.AddListener(hub)

	// 2. Startup maintenance
	report, err := a.maintenance.Ensure(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("startup maintenance: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"run_id":      report.RunID,
		"backfilled":  report.Backfilled,
		"daily_added": report.DailyAdded,
		"compacted":   report.Compacted,
	}).Info("Startup maintenance complete")

	// 3. Scheduler
	sched, err := newScheduler(a)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// 4. Catalog watcher
	if a.cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(a.catalog, func() {
			a.cached.Invalidate(ctx)
		}, log.Zerolog())
		if err != nil {
			return fmt.Errorf("watch catalog: %w", err)
		}
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	// 5. Router + server
	router := api.NewRouter(api.Handlers{
		Health:      handlers.NewHealthHandler(a.store),
		Forecast:    handlers.NewForecastHandler(a.cached, a.catalog, log),
		History:     handlers.NewHistoryHandler(a.admin, log),
		Maintenance: handlers.NewMaintenanceHandler(a.maintenance, log),
		HistoryWS:   hub.ServeWS,
	}, api.NewWriteLimiter(a.redis, a.cfg.RateLimit.PerMinute), log)

	server := api.New(a.cfg, log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s (backend: %s)\n", a.cfg.Port, a.store.Backend())
	fmt.Println("\nPress Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		// hijacked websocket connections are not closed by http.Server.Shutdown
		hub.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
