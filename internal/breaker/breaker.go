// Package breaker adds a per-venue connection circuit breaker on top of
// the per-session retry ledger. It does not replace the ledger's linear
// backoff (spec.md §4.7/§4.8); it throttles dial attempts at the venue
// level when a venue is persistently unreachable, so a storm of chunked
// sessions for one dead venue doesn't all redial at once.
package breaker

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// dialRateLimit caps how often any one venue may attempt a new dial,
// independent of the circuit breaker's open/closed state: without it, a
// venue with many chunked sessions (e.g. 30+ Huobi chunks) all re-entering
// Connecting in the same tick would dial all at once.
const dialRateLimit = 4 // dials per second, per venue

// Registry holds one gobreaker.CircuitBreaker and one rate.Limiter per
// venue, both created lazily.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	limiters map[string]*rate.Limiter
}

// NewRegistry creates an empty per-venue breaker registry.
func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (r *Registry) forVenue(venue string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[venue]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        venue,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	r.breakers[venue] = cb
	return cb
}

func (r *Registry) limiterForVenue(venue string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[venue]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(dialRateLimit), dialRateLimit)
	r.limiters[venue] = l
	return l
}

// AllowConnect reports whether a new Connecting attempt for venue may
// proceed: the circuit breaker must be closed (or half-open) and the
// venue's dial rate limiter must have a token available.
func (r *Registry) AllowConnect(venue string) bool {
	cb := r.forVenue(venue)
	if cb.State() == gobreaker.StateOpen {
		return false
	}
	return r.limiterForVenue(venue).Allow()
}

// RecordResult feeds a connection attempt's outcome back into the venue's
// breaker.
func (r *Registry) RecordResult(venue string, success bool) {
	cb := r.forVenue(venue)
	_, _ = cb.Execute(func() (interface{}, error) {
		if success {
			return nil, nil
		}
		return nil, errConnectFailed
	})
}

type connectError struct{}

func (connectError) Error() string { return "breaker: connect failed" }

var errConnectFailed = connectError{}
