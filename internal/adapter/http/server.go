package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/forecast-parser/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ForecastReader serves the latest forecast of each type.
type ForecastReader interface {
	Get(forecastType string) (store.Snapshot, bool)
	List() []store.Snapshot
}

// Server exposes health, readiness, metrics and forecast query endpoints.
type Server struct {
	httpServer *http.Server
	forecasts  ForecastReader
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /forecasts routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, forecasts ForecastReader, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		forecasts: forecasts,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /forecasts", s.handleListForecasts)
	mux.HandleFunc("GET /forecasts/{type}", s.handleGetForecast)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type forecastSummary struct {
	ForecastType   string    `json:"forecast_type"`
	Source         string    `json:"estimation_source"`
	EstimationTime string    `json:"estimation_time"`
	UpdatedAt      time.Time `json:"updated_at"`
	Stations       int       `json:"stations"`
}

func (s *Server) handleListForecasts(w http.ResponseWriter, _ *http.Request) {
	snaps := s.forecasts.List()
	out := make([]forecastSummary, len(snaps))
	for i, snap := range snaps {
		out[i] = forecastSummary{
			ForecastType:   snap.ForecastType,
			Source:         snap.Source,
			EstimationTime: snap.EstimationTime,
			UpdatedAt:      snap.UpdatedAt,
			Stations:       len(snap.Records),
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetForecast(w http.ResponseWriter, r *http.Request) {
	forecastType := r.PathValue("type")
	snap, ok := s.forecasts.Get(forecastType)
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error": "no forecast of type " + forecastType,
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}
