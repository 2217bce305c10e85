// Package supervisor implements the Liveness Supervisor: a single
// background goroutine that periodically scans the Retry Ledger and
// requests a reconnect for any session that has gone silent (spec.md
// §4.9). It is the one component that runs concurrently with the
// per-session goroutines rather than cooperatively inside them.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketfeed/internal/ledger"
	"github.com/sawpanic/marketfeed/internal/metrics"
)

// HealthCheckInterval is how often the supervisor scans the ledger.
const HealthCheckInterval = 30 * time.Second

// NoDataTimeout is the silence threshold that triggers a reconnect.
const NoDataTimeout = 60 * time.Second

// Reconnector is implemented by the Engine: it knows how to map a session
// key back to the live Session and ask it to reconnect.
type Reconnector interface {
	RequestReconnect(key string)
	VenueForKey(key string) string
}

// Supervisor periodically scans led and asks r to reconnect stalled
// sessions.
type Supervisor struct {
	ledger  *ledger.Ledger
	engine  Reconnector
	metrics *metrics.Registry
}

// New creates a Supervisor over led, driving reconnects through engine.
func New(led *ledger.Ledger, engine Reconnector, reg *metrics.Registry) *Supervisor {
	return &Supervisor{ledger: led, engine: engine, metrics: reg}
}

// Run blocks, scanning every HealthCheckInterval until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan()
		}
	}
}

func (s *Supervisor) scan() {
	now := time.Now()
	for _, key := range s.ledger.Keys() {
		entry := s.ledger.Get(key)
		if entry == nil {
			continue
		}

		last := entry.LastMessageAt()
		if last.IsZero() {
			// Never received a message: not auto-reconnected by the
			// supervisor (spec.md §4.9, §9).
			continue
		}

		if now.Sub(last) > NoDataTimeout {
			venue := s.engine.VenueForKey(key)
			log.Warn().Str("venue", venue).Str("key", key).
				Dur("silence", now.Sub(last)).
				Msg("[WARNING] session stalled, requesting reconnect")

			s.engine.RequestReconnect(key)
			// Setting last-message time to now prevents the next scan
			// from re-firing for the same stall event (spec.md §4.9).
			entry.MarkScanned(now)

			if s.metrics != nil {
				s.metrics.StallDetected.WithLabelValues(venue).Inc()
				s.metrics.Reconnects.WithLabelValues(venue, "stall").Inc()
			}
		}
	}
}
