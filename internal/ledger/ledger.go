// Package ledger holds the retry bookkeeping shared between Session, the
// Liveness Supervisor, and the Engine. It replaces the source material's
// mutable global arrays (spec.md §9) with process-scoped state created
// once at startup and passed by reference.
//
// last_message_time is stored as a unix-nano int64 behind sync/atomic so
// neither the owning session's writes nor the supervisor's stale-reset
// writes can tear (spec.md §5).
package ledger

import (
	"sync/atomic"
	"time"
)

// Entry is one session's retry bookkeeping. RetryCount is only ever
// written by the session that owns it (single-writer); LastMessageNanos is
// written by both the owning session (on message arrival) and the
// supervisor (stale-reset), hence the atomic.
type Entry struct {
	Key              string
	RetryCount       int64
	LastMessageNanos atomic.Int64
}

// Ledger is a fixed-size, stable-key-indexed collection of Entry, sized at
// init to the total planned session count (spec.md §4.8).
type Ledger struct {
	entries map[string]*Entry
}

// New creates a ledger with one entry per key in keys.
func New(keys []string) *Ledger {
	l := &Ledger{entries: make(map[string]*Entry, len(keys))}
	for _, k := range keys {
		l.entries[k] = &Entry{Key: k}
	}
	return l
}

// Get returns the entry for key, or nil if key was not part of the planned
// session set.
func (l *Ledger) Get(key string) *Entry {
	return l.entries[key]
}

// Keys returns every session key tracked by the ledger.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	return keys
}

// RecordMessage resets retry count to zero and stamps the current time,
// called by the owning session on every inbound application message.
func (e *Entry) RecordMessage(now time.Time) {
	e.RetryCount = 0
	e.LastMessageNanos.Store(now.UnixNano())
}

// RecordConnectSuccess resets the retry count without touching the
// timestamp (a fresh connection has not yet received a message).
func (e *Entry) RecordConnectSuccess() {
	e.RetryCount = 0
}

// EnterBackoff increments the retry count and returns the count observed at
// entry, which determines the wait duration (min(count, 10) seconds per
// spec.md §4.7/§5).
func (e *Entry) EnterBackoff() int64 {
	count := e.RetryCount
	e.RetryCount = count + 1
	return count
}

// LastMessageAt returns the last-message timestamp, or the zero time if no
// message has ever arrived.
func (e *Entry) LastMessageAt() time.Time {
	nanos := e.LastMessageNanos.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// MarkScanned sets last-message time to now without touching retry count;
// used by the supervisor to avoid re-firing on the same stall (spec.md §4.9).
func (e *Entry) MarkScanned(now time.Time) {
	e.LastMessageNanos.Store(now.UnixNano())
}

// BackoffDuration is the linear-but-capped wait policy: wait = min(count,10)s.
func BackoffDuration(count int64) time.Duration {
	if count > 10 {
		count = 10
	}
	return time.Duration(count) * time.Second
}
