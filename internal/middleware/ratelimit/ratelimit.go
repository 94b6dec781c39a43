// Package ratelimit throttles state-changing requests per client IP.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window    = time.Minute
	idleAfter = 10 * time.Minute
)

// Config selects the per-client budget. Methods lists the request methods
// that count against it; empty counts every method.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	Methods           []string
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost},
	}
}

// counter is one client's fixed window.
type counter struct {
	start time.Time
	seen  time.Time
	n     int
}

// Limiter counts requests per client in fixed one-minute windows.
type Limiter struct {
	limit   int
	every   time.Duration
	counted map[string]bool
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*counter

	rejected int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter returns a limiter that prunes idle clients in the background
// until Stop.
func NewLimiter(cfg Config) *Limiter {
	rl := newLimiter(cfg)
	go rl.prune()
	return rl
}

func newLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		limit:   cfg.RequestsPerMinute,
		every:   cfg.CleanupInterval,
		now:     time.Now,
		clients: make(map[string]*counter),
		stop:    make(chan struct{}),
	}
	if len(cfg.Methods) > 0 {
		rl.counted = make(map[string]bool, len(cfg.Methods))
		for _, m := range cfg.Methods {
			rl.counted[m] = true
		}
	}
	return rl
}

// Allow records one request from ip and reports whether it is within the
// budget of the current window.
func (rl *Limiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c := rl.clients[ip]
	if c == nil || now.Sub(c.start) >= window {
		rl.clients[ip] = &counter{start: now, seen: now, n: 1}
		return true
	}
	c.n++
	c.seen = now
	if c.n <= rl.limit {
		return true
	}
	atomic.AddInt64(&rl.rejected, 1)
	return false
}

// retryAfter is the whole seconds left in ip's window, at least 1.
func (rl *Limiter) retryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c := rl.clients[ip]
	if c == nil {
		return 0
	}
	left := window - rl.now().Sub(c.start)
	return max(int(left/time.Second), 1)
}

func (rl *Limiter) prune() {
	ticker := time.NewTicker(rl.every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanupStaleEntries()
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleAfter)
	n := 0
	for ip, c := range rl.clients {
		if c.seen.Before(cutoff) {
			delete(rl.clients, ip)
			n++
		}
	}
	return n
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics reports rejected requests since start and tracked clients.
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.rejected),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware rejects over-budget requests with 429 and Retry-After. onLimit
// writes the body; nil falls back to a plain-text error.
func (rl *Limiter) Middleware(clientIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.counted != nil && !rl.counted[r.Method] {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			if rl.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(ip)))
			if onLimit == nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
