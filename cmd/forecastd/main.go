// Command forecastd is the long-running forecasting service. It serves the
// forecast HTTP API, exposes health and metrics endpoints, and runs the
// aggregation and prediction jobs on their cron schedules.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/ecotrack/climate-engine/internal/adapter/http"
	kafkaadapter "github.com/ecotrack/climate-engine/internal/adapter/kafka"
	"github.com/ecotrack/climate-engine/internal/config"
	"github.com/ecotrack/climate-engine/internal/forecast"
	"github.com/ecotrack/climate-engine/internal/jobs"
	"github.com/ecotrack/climate-engine/internal/modelstore"
	"github.com/ecotrack/climate-engine/internal/observability"
	"github.com/ecotrack/climate-engine/internal/scheduler"
	"github.com/ecotrack/climate-engine/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	models, err := modelstore.NewFSStore(cfg.ModelDir)
	if err != nil {
		logger.Error("failed to open model store", "dir", cfg.ModelDir, "error", err)
		os.Exit(1)
	}

	engine := forecast.NewEngine(models, logger, metrics)

	var publisher jobs.ForecastPublisher
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer kp.Close() //nolint:errcheck // best-effort close on shutdown
		publisher = kp
		logger.Info("forecast publishing enabled", "topic", cfg.KafkaForecastTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("forecast publishing disabled")
	}

	aggregation := jobs.NewAggregationJob(db, logger, metrics)
	prediction := jobs.NewPredictionJob(db, engine, aggregation, publisher, logger, metrics)

	sched, err := scheduler.New(ctx, cfg, aggregation, prediction, logger)
	if err != nil {
		logger.Error("failed to build scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()

	srv := httpadapter.NewServer(cfg.HTTPAddr, readiness{db}, db, engine.Forecaster, models, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Let running jobs drain within the shutdown budget.
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled jobs did not finish before shutdown deadline")
	}

	logger.Info("shutdown complete")
}

// readiness ties /readyz to database connectivity.
type readiness struct {
	db *store.PostgresStore
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	return r.db.Ping(ctx)
}
