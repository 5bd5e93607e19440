package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ecotrack/climate-engine/internal/domain"
	"github.com/ecotrack/climate-engine/internal/forecast"
	"github.com/ecotrack/climate-engine/internal/modelstore"
	"github.com/ecotrack/climate-engine/internal/observability"
	"github.com/ecotrack/climate-engine/internal/store"
)

// ForecastPublisher pushes finished forecasts to downstream consumers.
type ForecastPublisher interface {
	PublishForecast(ctx context.Context, regionID int64, granularity domain.Granularity, points []domain.ForecastPoint) error
}

// PredictionOptions controls one prediction run.
type PredictionOptions struct {
	// Horizon is the number of future months forecast per region.
	Horizon int
	// TrainFirst retrains the monthly model on all regions' aggregate
	// history before forecasting.
	TrainFirst bool
	// AggregateFirst runs an aggregation pass before training and
	// forecasting, so the model sees the freshest rollups.
	AggregateFirst bool
	// Aggregation configures the AggregateFirst pass.
	Aggregation AggregationOptions
	// ModelType selects the model fitted when TrainFirst is set.
	ModelType modelstore.ModelType
	// Regions restricts the run; empty means every region with history.
	Regions []int64
}

// PredictionResult tallies one prediction run.
type PredictionResult struct {
	RegionsForecast int
	RegionsSkipped  int
	PointsStored    int
	Published       int
	Failed          int
}

// PredictionJob forecasts future months per region and stores the
// predictions next to the observed aggregates.
type PredictionJob struct {
	store      store.Store
	trainer    *forecast.Trainer
	forecaster *forecast.Forecaster
	publisher  ForecastPublisher // nil disables publishing
	aggregator *AggregationJob
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewPredictionJob wires a PredictionJob. publisher may be nil when
// forecast publishing is disabled.
func NewPredictionJob(
	s store.Store,
	engine *forecast.Engine,
	aggregator *AggregationJob,
	publisher ForecastPublisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *PredictionJob {
	return &PredictionJob{
		store:      s,
		trainer:    engine.Trainer,
		forecaster: engine.Forecaster,
		publisher:  publisher,
		aggregator: aggregator,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run optionally refreshes aggregates and the model, then forecasts every
// selected region over the horizon and upserts each point as that month's
// predicted temperature. Regions without enough history are skipped, not
// failed.
func (j *PredictionJob) Run(ctx context.Context, opts PredictionOptions) (PredictionResult, error) {
	j.metrics.JobRunning.WithLabelValues("prediction").Set(1)
	defer j.metrics.JobRunning.WithLabelValues("prediction").Set(0)

	var result PredictionResult

	if opts.AggregateFirst {
		if _, err := j.aggregator.Run(ctx, opts.Aggregation); err != nil {
			return result, err
		}
	}

	regions := opts.Regions
	if len(regions) == 0 {
		var err error
		regions, err = j.store.ListRegions(ctx)
		if err != nil {
			return result, err
		}
	}

	if opts.TrainFirst {
		if err := j.train(ctx, regions, opts.ModelType); err != nil {
			return result, err
		}
	}

	for _, region := range regions {
		if err := j.runRegion(ctx, region, opts.Horizon, &result); err != nil {
			result.Failed++
			j.logger.Error("prediction failed", "region", region, "error", err)
		}
	}

	j.logger.Info("prediction run complete",
		"regions", result.RegionsForecast,
		"skipped", result.RegionsSkipped,
		"points", result.PointsStored,
		"published", result.Published,
		"failed", result.Failed,
	)
	return result, nil
}

// train fits one monthly model on the pooled history of every region. The
// region id is itself a feature, so a single model serves them all.
func (j *PredictionJob) train(ctx context.Context, regions []int64, modelType modelstore.ModelType) error {
	histories := make([][]domain.MonthlyAggregate, 0, len(regions))
	for _, region := range regions {
		history, err := j.store.MonthlyHistory(ctx, region)
		if err != nil {
			return err
		}
		histories = append(histories, domain.ObservedOnly(history))
	}

	report, err := j.trainer.TrainMonthlyMulti(histories, modelType)
	if err != nil {
		return err
	}
	if report.AccuracyBand() == "low" {
		j.logger.Warn("monthly model quality is low", "test_r2", report.TestR2, "samples", report.SampleCount)
	}
	return nil
}

func (j *PredictionJob) runRegion(ctx context.Context, region int64, horizon int, result *PredictionResult) error {
	history, err := j.store.MonthlyHistory(ctx, region)
	if err != nil {
		return err
	}
	history = domain.ObservedOnly(history)

	points, err := j.forecaster.ForecastMonthly(history, horizon)
	if errors.Is(err, domain.ErrInsufficientHistory) {
		result.RegionsSkipped++
		j.logger.Debug("region skipped, not enough history", "region", region, "months", len(history))
		return nil
	}
	if err != nil {
		return err
	}

	for _, p := range points {
		if err := j.store.UpsertPrediction(ctx, region, p.Year, p.Month, p.Value, p.Confidence); err != nil {
			return err
		}
		result.PointsStored++
		j.metrics.PredictionsStored.Inc()
	}

	if j.publisher != nil {
		if err := j.publisher.PublishForecast(ctx, region, domain.GranularityMonthly, points); err != nil {
			return err
		}
		result.Published += len(points)
		j.metrics.ForecastsPublished.Add(float64(len(points)))
	}

	result.RegionsForecast++
	return nil
}
