package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/pricecast/internal/api/handlers"
	"github.com/wonny/pricecast/pkg/logger"
)

// Handlers groups everything the router serves
type Handlers struct {
	Health      *handlers.HealthHandler
	Forecast    *handlers.ForecastHandler
	History     *handlers.HistoryHandler
	Maintenance *handlers.MaintenanceHandler
	HistoryWS   http.HandlerFunc
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, limiter WriteLimiter, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", h.Health.Health).Methods("GET")

	// Realtime history feed
	if h.HistoryWS != nil {
		r.HandleFunc("/ws/history", h.HistoryWS).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(rateLimitMiddleware(limiter, log))

	// Forecast endpoints
	api.HandleFunc("/forecast/location/{city_id}/{district_id}", h.Forecast.GetLocationForecasts).Methods("GET")
	api.HandleFunc("/forecast/{product_id}", h.Forecast.GetForecast).Methods("GET")

	// Maintenance
	api.HandleFunc("/maintenance", h.Maintenance.RunMaintenance).Methods("POST")

	// History (operator)
	api.HandleFunc("/history", h.History.ListHistory).Methods("GET")
	api.HandleFunc("/history", h.History.AddEntry).Methods("POST")
	api.HandleFunc("/history/regenerate", h.History.Regenerate).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
