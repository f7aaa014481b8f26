package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/daramaccoille/crashalert/internal/market"
	"github.com/daramaccoille/crashalert/internal/metrics"
	"github.com/daramaccoille/crashalert/internal/notify"
)

// Triggerer runs one on-demand aggregation cycle.
type Triggerer interface {
	Trigger(ctx context.Context) (*market.Snapshot, notify.Outcome, error)
}

// Server exposes the manual trigger, liveness, and metrics endpoints.
type Server struct {
	addr      string
	triggerer Triggerer
	meters    *metrics.Metrics
	logger    zerolog.Logger

	http *http.Server
}

// New builds the HTTP server and its route table.
func New(addr string, triggerer Triggerer, meters *metrics.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		addr:      addr,
		triggerer: triggerer,
		meters:    meters,
		logger:    logger.With().Str("component", "server").Logger(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/trigger-update", s.handleTrigger).Methods(http.MethodGet, http.MethodPost)
	if meters != nil {
		router.Handle("/metrics", promhttp.HandlerFor(meters.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(listener)
	}()
	s.logger.Info().Str("addr", s.addr).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "crashalert worker is running")
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// snapshotPayload is the trigger-response view of a snapshot.
type snapshotPayload struct {
	ID                 string             `json:"id"`
	CreatedAt          time.Time          `json:"createdAt"`
	Values             map[string]float64 `json:"values"`
	RiskLevels         map[string]int     `json:"riskLevels"`
	AggregateRiskScore int                `json:"aggregateRiskScore"`
	Mode               string             `json:"marketMode"`
	Sentiment          string             `json:"sentiment,omitempty"`
	BenchmarkPrice     float64            `json:"benchmarkPrice"`
	FallbackSources    []string           `json:"fallbackSources,omitempty"`
}

type triggerResponse struct {
	Success     bool            `json:"success"`
	Data        snapshotPayload `json:"data"`
	EmailResult notify.Outcome  `json:"emailResult"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	s.logger.Info().Str("remote", r.RemoteAddr).Msg("manual cycle triggered")

	snap, outcome, err := s.triggerer.Trigger(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("manual cycle failed")
		http.Error(w, fmt.Sprintf("cycle failed: %v", err), http.StatusInternalServerError)
		return
	}

	values := make(map[string]float64, len(snap.Values))
	for name, v := range snap.Values {
		values[string(name)] = v
	}
	levels := make(map[string]int, len(snap.RiskLevels))
	for name, l := range snap.RiskLevels {
		levels[string(name)] = l
	}

	resp := triggerResponse{
		Success: true,
		Data: snapshotPayload{
			ID:                 snap.ID.String(),
			CreatedAt:          snap.CreatedAt,
			Values:             values,
			RiskLevels:         levels,
			AggregateRiskScore: snap.AggregateRiskScore,
			Mode:               string(snap.Mode),
			Sentiment:          snap.Sentiment,
			BenchmarkPrice:     snap.BenchmarkPrice,
			FallbackSources:    snap.FallbackSources,
		},
		EmailResult: outcome,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error().Err(err).Msg("write trigger response")
	}
}
