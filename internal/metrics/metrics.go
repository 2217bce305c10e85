// Package metrics holds the Prometheus registry the engine and output sink
// report through, grounded in the same MetricsRegistry-with-constructor
// shape the teacher uses for its pipeline metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every metric marketfeed exposes on the observability HTTP
// surface.
type Registry struct {
	RecordsWritten   *prometheus.CounterVec
	RetentionEvicted *prometheus.CounterVec
	WriteFailures    *prometheus.CounterVec

	SessionState   *prometheus.GaugeVec
	Reconnects     *prometheus.CounterVec
	RetryCount     *prometheus.GaugeVec
	StallDetected  *prometheus.CounterVec

	FramesParsed *prometheus.CounterVec
	ParseErrors  *prometheus.CounterVec
}

// New creates and registers every metric against reg.
func New(reg *prometheus.Registry) *Registry {
	m := &Registry{
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketfeed_records_written_total",
			Help: "Total records appended to the output sink, by kind and exchange.",
		}, []string{"kind", "exchange"}),

		RetentionEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketfeed_retention_evicted_total",
			Help: "Total records trimmed from the rolling buffer by retention, by kind.",
		}, []string{"kind"}),

		WriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketfeed_write_failures_total",
			Help: "Total output I/O failures, by kind and target (json|bson).",
		}, []string{"kind", "target"}),

		SessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "marketfeed_session_state",
			Help: "Current session state (1 = active) by venue, chunk, and state name.",
		}, []string{"venue", "chunk", "state"}),

		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketfeed_reconnects_total",
			Help: "Total supervisor-requested reconnects, by venue and reason (stall).",
		}, []string{"venue", "reason"}),

		RetryCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "marketfeed_retry_count",
			Help: "Current retry count for a session key.",
		}, []string{"venue", "chunk"}),

		StallDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketfeed_stall_detected_total",
			Help: "Total stall detections by the liveness supervisor, by venue.",
		}, []string{"venue"}),

		FramesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketfeed_frames_parsed_total",
			Help: "Total frames successfully parsed into a record, by venue and kind.",
		}, []string{"venue", "kind"}),

		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketfeed_parse_errors_total",
			Help: "Total frame parse failures, by venue.",
		}, []string{"venue"}),
	}

	reg.MustRegister(
		m.RecordsWritten, m.RetentionEvicted, m.WriteFailures,
		m.SessionState, m.Reconnects, m.RetryCount, m.StallDetected,
		m.FramesParsed, m.ParseErrors,
	)
	return m
}
