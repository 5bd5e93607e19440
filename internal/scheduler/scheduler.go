// Package scheduler runs the aggregation and prediction jobs on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/ecotrack/climate-engine/internal/config"
	"github.com/ecotrack/climate-engine/internal/jobs"
	"github.com/ecotrack/climate-engine/internal/modelstore"
)

// Scheduler owns the cron runner and the job wiring.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New schedules the aggregation and prediction jobs per the configured
// cron specs. Jobs run against ctx, so canceling it stops in-flight work.
func New(ctx context.Context, cfg *config.Config, aggregation *jobs.AggregationJob, prediction *jobs.PredictionJob, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.AggregationSpec, func() {
		result, err := aggregation.Run(ctx, jobs.AggregationOptions{MonthsBack: cfg.MonthsBack})
		if err != nil {
			logger.Error("scheduled aggregation failed", "error", err)
			return
		}
		logger.Info("scheduled aggregation finished",
			"created", result.Created, "updated", result.Updated,
			"skipped", result.Skipped, "failed", result.Failed)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule aggregation job: %w", err)
	}

	_, err = c.AddFunc(cfg.PredictionSpec, func() {
		result, err := prediction.Run(ctx, jobs.PredictionOptions{
			Horizon:    cfg.ForecastHorizon,
			TrainFirst: true,
			ModelType:  modelstore.ModelForest,
		})
		if err != nil {
			logger.Error("scheduled prediction failed", "error", err)
			return
		}
		logger.Info("scheduled prediction finished",
			"regions", result.RegionsForecast, "skipped", result.RegionsSkipped,
			"points", result.PointsStored, "published", result.Published,
			"failed", result.Failed)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule prediction job: %w", err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts scheduling and returns a context that is done once running
// jobs complete.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
