// Package http exposes the engine's operational and forecast endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecotrack/climate-engine/internal/domain"
	"github.com/ecotrack/climate-engine/internal/forecast"
	"github.com/ecotrack/climate-engine/internal/modelstore"
	"github.com/ecotrack/climate-engine/internal/store"
)

// maxForecastSteps caps a single forecast request.
const maxForecastSteps = 60

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and forecast HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	aggregates store.AggregateStore
	forecaster *forecast.Forecaster
	models     modelstore.Store
}

// NewServer creates an HTTP server with operational routes plus the
// forecast API.
func NewServer(addr string, ready ReadinessChecker, aggregates store.AggregateStore, forecaster *forecast.Forecaster, models modelstore.Store, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:     logger,
		aggregates: aggregates,
		forecaster: forecaster,
		models:     models,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/regions/{id}/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/v1/models/{granularity}", s.handleModelMetrics)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleForecast serves GET /api/v1/regions/{id}/forecast?steps=N with a
// monthly temperature forecast built from the region's aggregate history.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	regionID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid region id")
		return
	}

	steps := 12
	if v := r.URL.Query().Get("steps"); v != "" {
		steps, err = strconv.Atoi(v)
		if err != nil || steps < 1 || steps > maxForecastSteps {
			writeError(w, http.StatusBadRequest, "steps must be an integer between 1 and 60")
			return
		}
	}

	history, err := s.aggregates.MonthlyHistory(r.Context(), regionID)
	if err != nil {
		s.logger.Error("monthly history lookup failed", "region", regionID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	points, err := s.forecaster.ForecastMonthly(domain.ObservedOnly(history), steps)
	if err != nil {
		s.writeForecastError(w, regionID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"region_id": regionID,
		"points":    points,
	})
}

// handleModelMetrics serves GET /api/v1/models/{granularity} with the
// persisted training report of the current model.
func (s *Server) handleModelMetrics(w http.ResponseWriter, r *http.Request) {
	g := domain.Granularity(r.PathValue("granularity"))
	if !g.Valid() {
		writeError(w, http.StatusBadRequest, "granularity must be fine or monthly")
		return
	}

	bundle, err := s.models.Load(g)
	if err != nil {
		s.logger.Error("model load failed", "granularity", g, "error", err)
		writeError(w, http.StatusInternalServerError, "model store failure")
		return
	}
	if bundle == nil {
		writeError(w, http.StatusNotFound, "model not trained")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":       bundle.Metrics,
		"accuracy_band": bundle.Metrics.AccuracyBand(),
	})
}

func (s *Server) writeForecastError(w http.ResponseWriter, regionID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrModelNotTrained):
		writeError(w, http.StatusConflict, "model not trained")
	case errors.Is(err, domain.ErrInsufficientHistory), errors.Is(err, domain.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrFeatureMismatch):
		writeError(w, http.StatusConflict, "model incompatible with current features, retrain required")
	default:
		s.logger.Error("forecast failed", "region", regionID, "error", err)
		writeError(w, http.StatusInternalServerError, "forecast failure")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
