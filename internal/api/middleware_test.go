// internal/api/middleware_test.go
package api

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(slog.New(slog.NewTextHandler(io.Discard, nil)), 3, 15*time.Minute, "slow down")
	l.now = func() time.Time { return now }
	l.lastSweep = now

	for i := 0; i < 3; i++ {
		assert.Zero(t, l.reserve("10.0.0.1"), "request %d", i)
	}
	wait := l.reserve("10.0.0.1")
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 5*time.Minute)

	// Budgets are per client.
	assert.Zero(t, l.reserve("10.0.0.2"))

	// One token refills every window/max.
	now = now.Add(5 * time.Minute)
	assert.Zero(t, l.reserve("10.0.0.1"))

	// Idle clients are forgotten after a full window.
	now = now.Add(16 * time.Minute)
	l.reserve("10.0.0.3")
	l.mu.Lock()
	_, kept := l.limiters["10.0.0.2"]
	l.mu.Unlock()
	assert.False(t, kept)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", clientIP(r))

	r.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
