// internal/api/middleware.go
package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// requestLogger logs one line per request with chi's request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("Request completed",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"remote_ip", clientIP(r),
			)
		})
	}
}

// ipRateLimiter allows each client IP max requests per window, refilled continuously.
type ipRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*visitor
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	message   string
	now       func() time.Time
	logger    *slog.Logger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(logger *slog.Logger, max int, window time.Duration, message string) *ipRateLimiter {
	return &ipRateLimiter{
		limiters:  make(map[string]*visitor),
		limit:     rate.Every(window / time.Duration(max)),
		burst:     max,
		window:    window,
		lastSweep: time.Now(),
		message:   message,
		now:       time.Now,
		logger:    logger,
	}
}

// reserve returns how long the client must wait before its next request is allowed.
func (l *ipRateLimiter) reserve(ip string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.window {
		for key, v := range l.limiters {
			if now.Sub(v.lastSeen) > l.window {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now

	res := v.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay
	}
	return 0
}

func (l *ipRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wait := l.reserve(clientIP(r)); wait > 0 {
			setRetryAfter(w, wait)
			respondWithMessage(w, l.logger, http.StatusTooManyRequests, "too_many_requests", l.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port that RemoteAddr carries when no proxy header was present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
