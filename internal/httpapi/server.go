// Package httpapi exposes the observability HTTP surface: /healthz and
// /metrics. Grounded in the teacher's internal/interfaces/http server,
// routed through gorilla/mux.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketfeed/internal/engine"
	"github.com/sawpanic/marketfeed/internal/session"
)

// Server hosts the observability endpoints.
type Server struct {
	httpServer *http.Server
	registry   *prometheus.Registry
	engine     *engine.Engine
}

// New builds a Server bound to addr.
func New(addr string, reg *prometheus.Registry, eng *engine.Engine) *Server {
	s := &Server{registry: reg, engine: eng}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

// healthResponse reports, per venue, whether at least one session is not
// in Backoff.
type healthResponse struct {
	Healthy bool            `json:"healthy"`
	Venues  map[string]bool `json:"venues"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Healthy: true, Venues: map[string]bool{}}

	for _, sess := range s.engine.Sessions() {
		healthy := sess.State() != session.StateBackoff
		if existing, ok := resp.Venues[sess.Spec.Name]; !ok || healthy {
			resp.Venues[sess.Spec.Name] = healthy || existing
		}
	}
	for _, healthy := range resp.Venues {
		if !healthy {
			resp.Healthy = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !resp.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("[ERROR] encode health response")
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("[ERROR] observability http server")
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
