// Package ratelimit keeps one token bucket per key.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vadim/neo-dm/internal/httpx/response"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Pool hands out per-key limiters and forgets keys idle for longer than idleTTL
type Pool struct {
	mu      sync.Mutex
	m       map[string]*entry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewPool creates a limiter pool. Non-positive values fall back to 5 rps, burst 10.
func NewPool(rps float64, burst int) *Pool {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &Pool{
		m:       make(map[string]*entry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (p *Pool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	l := rate.NewLimiter(p.rps, p.burst)
	p.m[key] = &entry{limiter: l, lastSeen: now}
	return l
}

// Allow reports whether key may perform one more request now
func (p *Pool) Allow(key string) bool {
	return p.get(key).AllowN(p.now(), 1)
}

// Cleanup drops limiters idle for longer than the idle TTL
func (p *Pool) Cleanup() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-p.idleTTL)
	removed := 0
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
			removed++
		}
	}
	return removed
}

// Middleware limits requests per key; requests with an empty key pass through
func (p *Pool) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := keyFn(r); key != "" && !p.Allow(key) {
				response.TooManyRequests(w, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
