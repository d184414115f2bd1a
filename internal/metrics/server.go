// internal/metrics/server.go
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/lending"
)

// SnapshotSource returns the last polled account state; *monitor.Service
// implements it.
type SnapshotSource interface {
	Latest() *lending.Snapshot
}

// Server exposes /metrics, /healthz and /api/position.
type Server struct {
	collector *Collector
	source    SnapshotSource
	maxAge    time.Duration
	logger    *zap.Logger
	http      *http.Server
}

// PositionView is the JSON body of /api/position
type PositionView struct {
	Owner            string `json:"owner"`
	Collateral       string `json:"collateral_sui"`
	Debt             string `json:"debt_susd"`
	Price            string `json:"price_usd"`
	PriceStale       bool   `json:"price_stale"`
	LTV              string `json:"ltv_percent"`
	Health           string `json:"health_factor"`
	Status           string `json:"status"`
	LiquidationPrice string `json:"liquidation_price_usd"`
	UpdatedAt        string `json:"updated_at"`
}

// NewServer creates a server on addr; maxAge bounds snapshot freshness for
// /healthz, zero disables the check.
func NewServer(addr string, collector *Collector, source SnapshotSource, maxAge time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		collector: collector,
		source:    source,
		maxAge:    maxAge,
		logger:    logger.Named("http"),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/metrics", s.collector.Handler())
	r.Get("/healthz", s.health)
	r.Get("/api/position", s.position)
	return r
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Metrics server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest()
	switch {
	case snap == nil:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "waiting for first snapshot"})
	case s.maxAge > 0 && time.Since(snap.UpdatedAt) > s.maxAge:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "stale",
			"age":    time.Since(snap.UpdatedAt).Round(time.Second).String(),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) position(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest()
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no position loaded"})
		return
	}
	writeJSON(w, http.StatusOK, NewPositionView(snap))
}

func (s *Server) latest() *lending.Snapshot {
	if s.source == nil {
		return nil
	}
	return s.source.Latest()
}

// NewPositionView renders amounts as exact decimal strings
func NewPositionView(snap *lending.Snapshot) PositionView {
	m := snap.Metrics
	return PositionView{
		Owner:            snap.Owner,
		Collateral:       snap.Position.Collateral.String(),
		Debt:             snap.Position.Debt.String(),
		Price:            snap.Price.Value.String(),
		PriceStale:       snap.Price.Stale,
		LTV:              m.LTV.StringFixed(2),
		Health:           m.Health.String(),
		Status:           string(m.Status),
		LiquidationPrice: m.LiquidationPrice.String(),
		UpdatedAt:        snap.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
