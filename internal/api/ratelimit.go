package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/pricecast/pkg/logger"
	"github.com/wonny/pricecast/pkg/redis"
)

// WriteLimiter decides whether a client may issue another mutating request
type WriteLimiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// NewWriteLimiter returns a Redis sliding-window limiter when Redis is enabled,
// otherwise a per-process token bucket per client.
func NewWriteLimiter(client *redis.Client, perMinute int) WriteLimiter {
	if client != nil && client.Enabled() {
		return &redisWriteLimiter{
			limiter:   redis.NewRateLimiter(client, redis.KeyPrefix),
			perMinute: perMinute,
		}
	}
	return newLocalWriteLimiter(perMinute)
}

type redisWriteLimiter struct {
	limiter   *redis.RateLimiter
	perMinute int
}

func (l *redisWriteLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	allowed, _, err := l.limiter.Allow(ctx, redis.WriteRateLimit(clientKey, l.perMinute))
	return allowed, err
}

// localWriteLimiter 단일 프로세스용 토큰 버킷
type localWriteLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute int
}

func newLocalWriteLimiter(perMinute int) *localWriteLimiter {
	return &localWriteLimiter{
		limiters:  make(map[string]*rate.Limiter),
		perMinute: perMinute,
	}
}

func (l *localWriteLimiter) Allow(_ context.Context, clientKey string) (bool, error) {
	l.mu.Lock()
	lim, ok := l.limiters[clientKey]
	if !ok {
		limit := rate.Inf
		if l.perMinute > 0 {
			limit = rate.Every(time.Minute / time.Duration(l.perMinute))
		}
		lim = rate.NewLimiter(limit, l.perMinute)
		l.limiters[clientKey] = lim
	}
	l.mu.Unlock()

	return lim.Allow(), nil
}

// rateLimitMiddleware throttles mutating requests per client address.
// Limiter failures let the request through.
func rateLimitMiddleware(limiter WriteLimiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), clientKey(r))
			if err != nil {
				log.WithError(err).Warn("Rate limiter unavailable")
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
