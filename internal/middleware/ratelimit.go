package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/devdate/internal/metrics"
)

// RateLimiter is a per-client token bucket keyed by remote IP.
//
// TOKEN BUCKET:
// Each client owns a bucket of burst tokens that refills at rate tokens per
// second. A request takes one token; with none left it gets 429 and a
// Retry-After header. golang.org/x/time/rate implements the bucket.
//
// WHY sync.Map?
// Keys are written once (first request from an IP) and read on every request
// after that, which is the access pattern sync.Map is built for. Idle
// buckets are swept by StartCleanup.
type RateLimiter struct {
	logger   *slog.Logger
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows requestsPerMinute per client with a burst of a
// sixth of that (at least 5).
func NewRateLimiter(requestsPerMinute int, logger *slog.Logger) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}
	burst := max(requestsPerMinute/6, 5)

	return &RateLimiter{
		logger: logger.With(slog.String("component", "rate_limiter")),
		rate:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:  burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return l.(*rate.Limiter)
}

// Allow reports whether one more request from key fits in its bucket.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.Allow(key) {
			metrics.RateLimitedTotal.Inc()
			rl.logger.Warn("rate limit exceeded",
				slog.String("client", key),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","message":"Too many requests. Please try again later."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartCleanup drops all buckets every interval until ctx is done. Idle
// clients simply get a fresh bucket on their next request.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.limiters.Clear()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// clientKey is the remote IP without port. chi's RealIP middleware, when
// installed first, has already replaced RemoteAddr with the forwarded address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
