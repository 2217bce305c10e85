// Package session implements one Session: a durable handle for exactly one
// (venue, chunk-index) pair that at any time owns at most one live
// WebSocket connection, cycling through Idle -> Connecting -> Subscribing
// -> Live -> Backoff -> Connecting (spec.md §4.7).
package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketfeed/internal/breaker"
	"github.com/sawpanic/marketfeed/internal/gzipinflate"
	"github.com/sawpanic/marketfeed/internal/ledger"
	"github.com/sawpanic/marketfeed/internal/metrics"
	"github.com/sawpanic/marketfeed/internal/sink"
	"github.com/sawpanic/marketfeed/internal/venue"
)

// State names the Session's current position in the state machine.
type State string

const (
	StateIdle        State = "idle"
	StateConnecting  State = "connecting"
	StateSubscribing State = "subscribing"
	StateLive        State = "live"
	StateBackoff     State = "backoff"
)

// Sinks bundles the two Output Sink instances a Session writes records to.
type Sinks struct {
	Ticker *sink.Sink
	Trade  *sink.Sink
}

// Session drives one (venue, chunk-index) connection's lifecycle.
type Session struct {
	Key        string
	Spec       venue.Spec
	ChunkIndex int
	Chunk      []string

	ledger  *ledger.Entry
	breaker *breaker.Registry
	sinks   Sinks
	metrics *metrics.Registry
	dialer  *websocket.Dialer

	conn               *websocket.Conn
	reconnectRequested chan struct{}

	// state drives the Run loop's switch and is only ever read/written by
	// the goroutine executing Run (single-writer). atomicState mirrors it
	// on every transition so State() can be called safely from other
	// goroutines (e.g. the httpapi health handler) without racing on it.
	state       State
	atomicState atomic.Value

	// connID correlates every log line for one connection attempt; it is
	// regenerated each time the session re-enters Connecting so repeated
	// reconnects of the same session key don't share a single id.
	connID string
}

// New creates a Session for one (venue-spec, chunk) pair.
func New(key string, spec venue.Spec, chunkIndex int, chunk []string, led *ledger.Entry, br *breaker.Registry, sinks Sinks, reg *metrics.Registry) *Session {
	s := &Session{
		Key:                key,
		Spec:               spec,
		ChunkIndex:         chunkIndex,
		Chunk:              chunk,
		ledger:             led,
		breaker:            br,
		sinks:              sinks,
		metrics:            reg,
		dialer:             websocket.DefaultDialer,
		reconnectRequested: make(chan struct{}, 1),
		state:              StateIdle,
	}
	s.atomicState.Store(StateIdle)
	return s
}

// State returns the session's current state. Safe to call concurrently
// with Run (e.g. from the httpapi health handler).
func (s *Session) State() State { return s.atomicState.Load().(State) }

// RequestReconnect asks the session to abandon its current connection (if
// any) and re-enter Connecting. Safe to call from the supervisor goroutine
// concurrently with the session's own Run loop (spec.md §5).
func (s *Session) RequestReconnect() {
	select {
	case s.reconnectRequested <- struct{}{}:
	default:
	}
}

// Run drives the state machine until ctx is cancelled; it returns only once
// ctx is done.
func (s *Session) Run(ctx context.Context) {
	s.setState(StateIdle)
	for {
		if ctx.Err() != nil {
			if s.conn != nil {
				s.conn.Close()
			}
			return
		}

		switch s.state {
		case StateIdle:
			s.setState(StateConnecting)

		case StateConnecting:
			s.runConnecting(ctx)

		case StateSubscribing:
			s.runSubscribing(ctx)

		case StateLive:
			s.runLive(ctx)

		case StateBackoff:
			s.runBackoff(ctx)
		}
	}
}

func (s *Session) setState(st State) {
	if s.metrics != nil {
		if s.state != "" {
			s.metrics.SessionState.WithLabelValues(s.Spec.Name, chunkLabel(s.ChunkIndex), string(s.state)).Set(0)
		}
		s.metrics.SessionState.WithLabelValues(s.Spec.Name, chunkLabel(s.ChunkIndex), string(st)).Set(1)
	}
	s.state = st
	s.atomicState.Store(st)
}

func chunkLabel(idx int) string { return fmt.Sprintf("%d", idx) }

func (s *Session) runConnecting(ctx context.Context) {
	s.connID = uuid.NewString()

	if s.breaker != nil && !s.breaker.AllowConnect(s.Spec.Name) {
		s.setState(StateBackoff)
		return
	}

	conn, _, err := s.dialer.DialContext(ctx, s.Spec.WSURL, nil)
	if err != nil {
		if s.breaker != nil {
			s.breaker.RecordResult(s.Spec.Name, false)
		}
		log.Warn().Err(err).Str("venue", s.Spec.Name).Str("key", s.Key).Str("conn_id", s.connID).
			Msg("[WARNING] connection failed")
		s.setState(StateBackoff)
		return
	}

	if s.breaker != nil {
		s.breaker.RecordResult(s.Spec.Name, true)
	}
	s.conn = conn
	s.setState(StateSubscribing)
}

func (s *Session) runSubscribing(ctx context.Context) {
	if s.Spec.PreSubscribeDelayMS > 0 {
		select {
		case <-time.After(time.Duration(s.Spec.PreSubscribeDelayMS) * time.Millisecond):
		case <-ctx.Done():
			return
		}
	}

	frames, err := s.Spec.Builder(s.Chunk)
	if err != nil {
		log.Error().Err(err).Str("venue", s.Spec.Name).Str("key", s.Key).Str("conn_id", s.connID).
			Msg("[ERROR] build subscription frames")
		s.closeConn()
		s.setState(StateBackoff)
		return
	}

	for _, f := range frames {
		if err := s.conn.WriteMessage(websocket.TextMessage, f); err != nil {
			log.Error().Err(err).Str("venue", s.Spec.Name).Str("key", s.Key).Str("conn_id", s.connID).
				Msg("[ERROR] send subscription frame")
			s.closeConn()
			s.setState(StateBackoff)
			return
		}
	}

	s.ledger.RecordConnectSuccess()
	if s.metrics != nil {
		s.metrics.RetryCount.WithLabelValues(s.Spec.Name, chunkLabel(s.ChunkIndex)).Set(0)
	}
	s.setState(StateLive)
}

type rawMessage struct {
	data []byte
}

func (s *Session) runLive(ctx context.Context) {
	msgCh := make(chan rawMessage, 32)
	go func() {
		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				close(msgCh)
				return
			}
			msgCh <- rawMessage{data: data}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.reconnectRequested:
			s.closeConn()
			s.setState(StateBackoff)
			return
		case m, ok := <-msgCh:
			if !ok {
				log.Warn().Str("venue", s.Spec.Name).Str("key", s.Key).Str("conn_id", s.connID).
					Msg("[WARNING] connection closed")
				s.closeConn()
				s.setState(StateBackoff)
				return
			}
			s.handleFrame(m.data)
		}
	}
}

func (s *Session) handleFrame(raw []byte) {
	payload := raw
	if s.Spec.NeedsGzip {
		inflated, err := gzipinflate.Inflate(raw)
		if err != nil {
			log.Debug().Err(err).Str("venue", s.Spec.Name).Msg("gzip inflate failed, dropping frame")
			return
		}
		payload = inflated
	}

	result, err := s.Spec.Parser(venue.CanonicalMapper, payload)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ParseErrors.WithLabelValues(s.Spec.Name).Inc()
		}
		log.Debug().Err(err).Str("venue", s.Spec.Name).Msg("parse error, dropping frame")
		return
	}

	now := time.Now()

	if result.Pong != nil {
		if err := s.conn.WriteMessage(websocket.TextMessage, result.Pong); err != nil {
			log.Error().Err(err).Str("venue", s.Spec.Name).Msg("[ERROR] send pong")
		}
		s.ledger.RecordMessage(now)
		return
	}

	if result.Ticker != nil {
		s.sinks.Ticker.Append(*result.Ticker)
		if s.metrics != nil {
			s.metrics.FramesParsed.WithLabelValues(s.Spec.Name, "ticker").Inc()
		}
		s.ledger.RecordMessage(now)
		return
	}

	if result.Trade != nil {
		s.sinks.Trade.Append(*result.Trade)
		if s.metrics != nil {
			s.metrics.FramesParsed.WithLabelValues(s.Spec.Name, "trade").Inc()
		}
		s.ledger.RecordMessage(now)
		return
	}

	// Recognized-but-empty frame (heartbeat, status ack): still counts as
	// liveness since the venue is responsive.
	s.ledger.RecordMessage(now)
}

func (s *Session) runBackoff(ctx context.Context) {
	count := s.ledger.EnterBackoff()
	wait := ledger.BackoffDuration(count)
	if s.metrics != nil {
		s.metrics.RetryCount.WithLabelValues(s.Spec.Name, chunkLabel(s.ChunkIndex)).Set(float64(count))
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return
	}
	s.setState(StateConnecting)
}

func (s *Session) closeConn() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
