// Package jobs implements the scheduled maintenance work of the engine:
// rolling observations up into monthly aggregates and refreshing the
// monthly model and its stored predictions. Jobs isolate per-region
// failures so one bad region never aborts a whole run.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/ecotrack/climate-engine/internal/aggregate"
	"github.com/ecotrack/climate-engine/internal/domain"
	"github.com/ecotrack/climate-engine/internal/observability"
	"github.com/ecotrack/climate-engine/internal/store"
)

// AggregationOptions controls one aggregation run.
type AggregationOptions struct {
	// MonthsBack is how many past months to cover, counting back from the
	// month before the current one.
	MonthsBack int
	// Force recomputes months that already have an aggregate.
	Force bool
	// Regions restricts the run; empty means every region with data.
	Regions []int64
}

// AggregationResult tallies one aggregation run.
type AggregationResult struct {
	Created int
	Updated int
	Skipped int
	Failed  int
}

// AggregationJob rolls observations up into monthly aggregates.
type AggregationJob struct {
	store   store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAggregationJob wires an AggregationJob to its store.
func NewAggregationJob(s store.Store, logger *slog.Logger, metrics *observability.Metrics) *AggregationJob {
	return &AggregationJob{store: s, logger: logger, metrics: metrics}
}

// Run aggregates the configured window of past months for every selected
// region. Months that already have an aggregate are skipped unless Force
// is set; months with no observations are ignored. A region that fails is
// counted and logged, and the run continues.
func (j *AggregationJob) Run(ctx context.Context, opts AggregationOptions) (AggregationResult, error) {
	j.metrics.JobRunning.WithLabelValues("aggregation").Set(1)
	defer j.metrics.JobRunning.WithLabelValues("aggregation").Set(0)

	var result AggregationResult

	regions := opts.Regions
	if len(regions) == 0 {
		var err error
		regions, err = j.store.ListRegions(ctx)
		if err != nil {
			return result, err
		}
	}

	now := domain.Clock().Now().UTC()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	for _, region := range regions {
		for back := 1; back <= opts.MonthsBack; back++ {
			from := currentMonth.AddDate(0, -back, 0)
			to := from.AddDate(0, 1, 0)

			if err := j.runMonth(ctx, region, from, to, opts.Force, &result); err != nil {
				result.Failed++
				j.logger.Error("aggregation failed",
					"region", region, "year", from.Year(), "month", int(from.Month()), "error", err)
			}
		}
	}

	j.logger.Info("aggregation run complete",
		"regions", len(regions),
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

func (j *AggregationJob) runMonth(ctx context.Context, region int64, from, to time.Time, force bool, result *AggregationResult) error {
	exists, err := j.store.HasAggregate(ctx, region, from.Year(), int(from.Month()))
	if err != nil {
		return err
	}
	if exists && !force {
		result.Skipped++
		j.metrics.AggregatesSkipped.Inc()
		return nil
	}

	obs, err := j.store.ObservationsInRange(ctx, region, from, to)
	if err != nil {
		return err
	}
	if len(obs) == 0 {
		return nil
	}

	// One region and one month in, so at most one aggregate out.
	for _, agg := range aggregate.Rollup(obs) {
		if err := j.store.UpsertAggregate(ctx, agg); err != nil {
			return err
		}
		if exists {
			result.Updated++
			j.metrics.AggregatesUpdated.Inc()
		} else {
			result.Created++
			j.metrics.AggregatesCreated.Inc()
		}
	}
	return nil
}
