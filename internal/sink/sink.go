// Package sink implements the Output Sink: a rolling, time-windowed JSON
// buffer plus an append-only BSON binary-document file, one instance per
// record kind (spec.md §4.6). Every session goroutine calls Append on the
// shared Sink; the buffer and JSON mirror are serialised behind the Sink's
// mutex.
package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rs/zerolog/log"
	"github.com/sawpanic/marketfeed/internal/metrics"
	"github.com/sawpanic/marketfeed/internal/model"
)

// Retention is the trailing duration for which records are kept in the
// rolling JSON buffer (spec.md §3, §6): 10 minutes.
const Retention = 10 * time.Minute

// Sink owns one rolling buffer, its mirrored JSON file, and the
// append-only BSON directory for one record kind.
type Sink struct {
	kind     model.Kind
	jsonPath string
	bsonDir  string
	metrics  *metrics.Registry

	mu     sync.Mutex
	buffer []bufferedRecord
}

type bufferedRecord struct {
	record model.Record
	line   json.RawMessage
	at     time.Time
}

// New creates a Sink for kind, loading the rolling buffer from jsonPath if
// it already exists (discarding anything older than Retention).
func New(kind model.Kind, jsonPath, bsonDir string, reg *metrics.Registry) (*Sink, error) {
	s := &Sink{kind: kind, jsonPath: jsonPath, bsonDir: bsonDir, metrics: reg}
	if err := s.loadExisting(); err != nil {
		return nil, fmt.Errorf("sink %s: load existing: %w", kind, err)
	}
	return s, nil
}

func (s *Sink) loadExisting() error {
	f, err := os.Open(s.jsonPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	cutoff := time.Now().Add(-Retention)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ts, ok := extractTimestamp(line)
		if !ok || ts.Before(cutoff) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		s.buffer = append(s.buffer, bufferedRecord{line: cp, at: ts})
	}
	return scanner.Err()
}

func extractTimestamp(line []byte) (time.Time, bool) {
	var envelope struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return time.Time{}, false
	}
	ts := model.ParsedAt(envelope.Timestamp)
	if ts.IsZero() {
		return time.Time{}, false
	}
	return ts, true
}

// Append adds rec to the buffer, trims anything now older than Retention,
// rewrites the JSON mirror file, and appends the BSON document. Per the
// resolved Open Question in spec.md §9 (ticker vs trade retention), this
// implementation applies the "older than retention" discard check to both
// record kinds for consistency, rather than only to trades.
func (s *Sink) Append(rec model.Record) {
	now := time.Now()
	recordedAt := rec.RecordTimestamp()
	if !recordedAt.IsZero() && now.Sub(recordedAt) > Retention {
		s.metrics.RetentionEvicted.WithLabelValues(string(s.kind)).Inc()
		return
	}

	line, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Str("kind", string(s.kind)).Msg("[ERROR] marshal record for json sink")
		s.metrics.WriteFailures.WithLabelValues(string(s.kind), "json").Inc()
		return
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, bufferedRecord{record: rec, line: line, at: recordedAt})
	s.trimLocked(now)
	err = s.rewriteLocked()
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("path", s.jsonPath).Msg("[ERROR] rewrite json sink file")
		s.metrics.WriteFailures.WithLabelValues(string(s.kind), "json").Inc()
	} else {
		s.metrics.RecordsWritten.WithLabelValues(string(s.kind), rec.ExchangeName()).Inc()
	}

	s.appendBSON(rec, now)
}

// trimLocked removes entries older than Retention relative to now. Caller
// must hold s.mu. Append happens-before trim for the record just appended
// (spec.md §5).
func (s *Sink) trimLocked(now time.Time) {
	cutoff := now.Add(-Retention)
	kept := s.buffer[:0]
	evicted := 0
	for _, b := range s.buffer {
		if b.at.IsZero() || !b.at.Before(cutoff) {
			kept = append(kept, b)
		} else {
			evicted++
		}
	}
	s.buffer = kept
	if evicted > 0 {
		s.metrics.RetentionEvicted.WithLabelValues(string(s.kind)).Add(float64(evicted))
	}
}

// rewriteLocked rewrites jsonPath in full so it mirrors the in-memory
// buffer exactly. Crash safety is not required (the sink is best-effort,
// spec.md §4.6 rule 2); a temp-file-then-rename gives "consistent set of
// lines" behavior for any reader without needing fsync discipline.
func (s *Sink) rewriteLocked() error {
	dir := filepath.Dir(s.jsonPath)
	tmp, err := os.CreateTemp(dir, ".marketfeed-sink-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	for _, b := range s.buffer {
		if _, err := w.Write(b.line); err != nil {
			tmp.Close()
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.jsonPath)
}

// appendBSON marshals rec to BSON and appends it to
// {bsonDir}/{exchange}_{kind}_{YYYYMMDD}.bson. A missing directory is a
// fatal I/O error for this record only: it is logged and dropped, other
// sessions/records are unaffected (spec.md §4.6 rule 4, §7).
func (s *Sink) appendBSON(rec model.Record, now time.Time) {
	doc, err := bson.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Str("kind", string(s.kind)).Msg("[ERROR] marshal record for bson sink")
		s.metrics.WriteFailures.WithLabelValues(string(s.kind), "bson").Inc()
		return
	}

	path := filepath.Join(s.bsonDir, fmt.Sprintf("%s_%s_%s.bson",
		rec.ExchangeName(), s.kind, now.UTC().Format("20060102")))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("[ERROR] open bson output file")
		s.metrics.WriteFailures.WithLabelValues(string(s.kind), "bson").Inc()
		return
	}
	defer f.Close()

	if _, err := f.Write(doc); err != nil {
		log.Error().Err(err).Str("path", path).Msg("[ERROR] write bson output file")
		s.metrics.WriteFailures.WithLabelValues(string(s.kind), "bson").Inc()
	}
}

// Len returns the current in-memory buffer length (test/diagnostic use).
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Close is a no-op placeholder for symmetry with the Orchestrator's
// shutdown path: the sink has no held file descriptors between appends.
func (s *Sink) Close() error { return nil }
