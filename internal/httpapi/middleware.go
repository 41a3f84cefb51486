package httpapi

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// rateLimiter is a per-client fixed-window request counter (rate requests
// per interval, reset when the window expires), adapted from the teacher's
// internal/middleware.RateLimiter.
type rateLimiter struct {
	mu       sync.Mutex
	tokens   map[string]*bucket
	rate     int
	interval time.Duration
	logger   *zap.Logger
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(ratePerMinute int, logger *zap.Logger) *rateLimiter {
	return &rateLimiter{
		tokens:   make(map[string]*bucket),
		rate:     ratePerMinute,
		interval: time.Minute,
		logger:   logger,
	}
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			rl.logger.Warn("rate limit exceeded", zap.String("remote_addr", r.RemoteAddr))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.tokens[key]
	if !ok || now.Sub(b.lastReset) >= rl.interval {
		rl.tokens[key] = &bucket{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// loggingMiddleware logs method, path, and duration for every request,
// adapted from the teacher's internal/middleware.LoggingMiddleware.
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
