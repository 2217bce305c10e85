// Package orchestrator computes the session set from the Symbol Catalog
// and starts/cleans up the Engine and Liveness Supervisor (spec.md §4.11).
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketfeed/internal/catalog"
	"github.com/sawpanic/marketfeed/internal/config"
	"github.com/sawpanic/marketfeed/internal/engine"
	"github.com/sawpanic/marketfeed/internal/httpapi"
	"github.com/sawpanic/marketfeed/internal/metrics"
	"github.com/sawpanic/marketfeed/internal/model"
	"github.com/sawpanic/marketfeed/internal/session"
	"github.com/sawpanic/marketfeed/internal/sink"
	"github.com/sawpanic/marketfeed/internal/supervisor"
	"github.com/sawpanic/marketfeed/internal/venue"
)

// Orchestrator wires the Symbol Catalog, Output Sink, Engine, Supervisor,
// and observability surface together and owns the process shutdown path.
type Orchestrator struct {
	cfg *config.Config

	tickerSink *sink.Sink
	tradeSink  *sink.Sink
	engine     *engine.Engine
	supervisor *supervisor.Supervisor
	httpServer *httpapi.Server
}

// New builds every component but does not start goroutines yet.
func New(cfg *config.Config) (*Orchestrator, error) {
	reg := prometheus.NewRegistry()
	metricsReg := metrics.New(reg)

	tickerSink, err := sink.New(model.KindTicker, cfg.Output.TickerJSONPath, cfg.Output.BSONDir, metricsReg)
	if err != nil {
		return nil, fmt.Errorf("init ticker sink: %w", err)
	}
	tradeSink, err := sink.New(model.KindTrade, cfg.Output.TradeJSONPath, cfg.Output.BSONDir, metricsReg)
	if err != nil {
		return nil, fmt.Errorf("init trade sink: %w", err)
	}

	eng := engine.New(session.Sinks{Ticker: tickerSink, Trade: tradeSink}, metricsReg)
	httpServer := httpapi.New(cfg.HTTP.Addr, reg, eng)

	return &Orchestrator{
		cfg:        cfg,
		tickerSink: tickerSink,
		tradeSink:  tradeSink,
		engine:     eng,
		httpServer: httpServer,
	}, nil
}

// Run loads every venue's catalog, plans one session per chunk, starts the
// engine and supervisor, and starts the observability HTTP server. Venues
// whose catalog fails to load are skipped; other venues are unaffected
// (spec.md §4.1, §7, Testable Property 7).
func (o *Orchestrator) Run(ctx context.Context) {
	var plans []engine.Plan

	for _, spec := range venue.Defaults {
		vc, ok := o.cfg.Venues[spec.Name]
		if !ok {
			log.Warn().Str("venue", spec.Name).Msg("[WARNING] no catalog configuration, skipping venue")
			continue
		}

		cat, err := LoadCatalog(o.cfg.CatalogDir, spec, vc)
		if err != nil {
			log.Error().Err(err).Str("venue", spec.Name).Msg("[ERROR] catalog load failed, skipping venue")
			continue
		}

		for idx, chunk := range cat.Chunks() {
			plans = append(plans, engine.Plan{Spec: spec, ChunkIndex: idx, Chunk: chunk})
		}
		log.Info().Str("venue", spec.Name).Int("chunks", cat.Len()).Msg("[INFO] catalog loaded")
	}

	o.engine.StartAll(ctx, plans)
	o.supervisor = supervisor.New(o.engine.Ledger, o.engine, o.engine.Metrics)

	go o.supervisor.Run(ctx)
	o.httpServer.Start()

	log.Info().Int("sessions", len(plans)).Msg("[INFO] marketfeed engine started")
}

// LoadCatalog resolves vc's catalog file pattern(s) against baseDir
// (expanding any "{N}" chunk-file glob) and loads them for spec. Exported
// so the CLI's `catalog verify` subcommand can reuse the same resolution
// logic without connecting to any venue.
func LoadCatalog(baseDir string, spec venue.Spec, vc config.VenueConfig) (*catalog.Catalog, error) {
	var paths []string
	for _, pattern := range vc.CatalogFiles {
		if strings.Contains(pattern, "{N}") {
			matches, err := filepath.Glob(filepath.Join(baseDir, strings.ReplaceAll(pattern, "{N}", "*")))
			if err != nil {
				return nil, err
			}
			paths = append(paths, matches...)
		} else {
			paths = append(paths, filepath.Join(baseDir, pattern))
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files resolved for venue %s", spec.Name)
	}

	if len(paths) == 1 && !strings.Contains(vc.CatalogFiles[0], "{N}") {
		return catalog.Load(spec.Name, paths[0], spec.ChunkSize)
	}
	return catalog.LoadMulti(spec.Name, paths)
}

// Shutdown flushes buffers, closes files, and stops the observability
// server. It does not forcibly kill session goroutines; callers cancel the
// context passed to Run and then call Shutdown to wait/cleanup.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	if err := o.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("[ERROR] shutdown http server")
	}
	o.engine.Wait()
	_ = o.tickerSink.Close()
	_ = o.tradeSink.Close()
	log.Info().Msg("[INFO] marketfeed shutdown complete")
}
