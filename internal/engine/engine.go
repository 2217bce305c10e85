// Package engine runs every Session on its own goroutine: it owns the set
// of live sessions, dispatches supervisor-requested reconnects to the right
// one, and builds the Retry Ledger (spec.md §4.10). The Sinks are created
// and closed by the Orchestrator.
package engine

import (
	"context"
	"strconv"
	"sync"

	"github.com/sawpanic/marketfeed/internal/breaker"
	"github.com/sawpanic/marketfeed/internal/ledger"
	"github.com/sawpanic/marketfeed/internal/metrics"
	"github.com/sawpanic/marketfeed/internal/session"
	"github.com/sawpanic/marketfeed/internal/venue"
)

// Engine owns the full set of sessions for every venue/chunk the
// Orchestrator planned, plus the shared ledger, breaker registry, and
// sinks they write through.
type Engine struct {
	Ledger  *ledger.Ledger
	Breaker *breaker.Registry
	Sinks   session.Sinks
	Metrics *metrics.Registry

	mu       sync.RWMutex
	sessions map[string]*session.Session
	venues   map[string]string // session key -> venue name

	wg sync.WaitGroup
}

// New creates an empty Engine. The Sinks are created by the Orchestrator and
// handed in so every session shares the same instances; the Ledger is built
// later by StartAll.
func New(sinks session.Sinks, reg *metrics.Registry) *Engine {
	return &Engine{
		Sinks:    sinks,
		Breaker:  breaker.NewRegistry(),
		Metrics:  reg,
		sessions: make(map[string]*session.Session),
		venues:   make(map[string]string),
	}
}

// Plan is one session the Orchestrator wants started: a venue spec, a
// chunk index, and the chunk's symbol tokens.
type Plan struct {
	Spec       venue.Spec
	ChunkIndex int
	Chunk      []string
}

// StartAll builds the Retry Ledger sized to len(plans) and launches one
// goroutine per planned session. It must be called exactly once: each call
// replaces the Ledger.
func (e *Engine) StartAll(ctx context.Context, plans []Plan) {
	keys := make([]string, 0, len(plans))
	for _, p := range plans {
		keys = append(keys, SessionKey(p.Spec.Name, p.ChunkIndex))
	}
	e.Ledger = ledger.New(keys)

	for _, p := range plans {
		e.startSession(ctx, p)
	}
}

func (e *Engine) startSession(ctx context.Context, p Plan) {
	key := SessionKey(p.Spec.Name, p.ChunkIndex)
	entry := e.Ledger.Get(key)

	sess := session.New(key, p.Spec, p.ChunkIndex, p.Chunk, entry, e.Breaker, e.Sinks, e.Metrics)

	e.mu.Lock()
	e.sessions[key] = sess
	e.venues[key] = p.Spec.Name
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		sess.Run(ctx)
	}()
}

// SessionKey is the stable (venue, chunk-index) identifier used by the
// ledger, the engine's session map, and log lines. It deliberately avoids
// the source material's stringly-typed per-protocol naming scheme
// (spec.md §9).
func SessionKey(venueName string, chunkIndex int) string {
	return venueName + "#" + strconv.Itoa(chunkIndex)
}

// RequestReconnect implements supervisor.Reconnector: it forwards the
// request to the named session if it still exists.
func (e *Engine) RequestReconnect(key string) {
	e.mu.RLock()
	sess, ok := e.sessions[key]
	e.mu.RUnlock()
	if !ok {
		return
	}
	sess.RequestReconnect()
}

// VenueForKey implements supervisor.Reconnector.
func (e *Engine) VenueForKey(key string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.venues[key]
}

// Sessions returns a snapshot of every active session (diagnostic/health
// use).
func (e *Engine) Sessions() map[string]*session.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*session.Session, len(e.sessions))
	for k, v := range e.sessions {
		out[k] = v
	}
	return out
}

// Wait blocks until every session goroutine has returned (i.e. their
// context was cancelled).
func (e *Engine) Wait() {
	e.wg.Wait()
}
