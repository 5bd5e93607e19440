// Package forecast trains climate models and produces multi-step
// temperature forecasts from them. Trainer and Forecaster share a model
// store; beyond that they are independent, and either can be constructed
// without the other.
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/ecotrack/climate-engine/internal/domain"
	"github.com/ecotrack/climate-engine/internal/feature"
	"github.com/ecotrack/climate-engine/internal/modelstore"
	"github.com/ecotrack/climate-engine/internal/observability"
	"github.com/ecotrack/climate-engine/internal/regress"
)

// shuffleSeed fixes the fine-grained train/test shuffle so repeated runs on
// the same history fit the same model.
const shuffleSeed = 42

// Trainer derives features, fits a model, evaluates it on a held-out
// partition, and atomically replaces the persisted bundle.
type Trainer struct {
	store   modelstore.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTrainer wires a Trainer to its model store.
func NewTrainer(store modelstore.Store, logger *slog.Logger, metrics *observability.Metrics) *Trainer {
	return &Trainer{store: store, logger: logger, metrics: metrics}
}

// TrainMonthly fits a monthly temperature model on the supplied aggregates.
// The split is chronological: the most recent fifth of the feature rows is
// held out, so the test score reflects genuine extrapolation.
func (t *Trainer) TrainMonthly(aggs []domain.MonthlyAggregate, modelType modelstore.ModelType) (*domain.MetricsReport, error) {
	m, err := feature.DeriveMonthly(aggs)
	if err != nil {
		t.metrics.TrainingRuns.WithLabelValues(string(domain.GranularityMonthly), "error").Inc()
		return nil, err
	}
	return t.train(domain.GranularityMonthly, m, modelType)
}

// TrainMonthlyMulti fits one monthly model on several regions' histories.
// Features are derived per region so lags never cross region boundaries;
// the region id feature lets a single model serve every region. Series too
// short to derive are ignored, and ErrInsufficientData is returned only
// when no series yields rows.
func (t *Trainer) TrainMonthlyMulti(histories [][]domain.MonthlyAggregate, modelType modelstore.ModelType) (*domain.MetricsReport, error) {
	var merged *feature.Matrix
	for _, h := range histories {
		m, err := feature.DeriveMonthly(h)
		if errors.Is(err, domain.ErrInsufficientData) {
			continue
		}
		if err != nil {
			t.metrics.TrainingRuns.WithLabelValues(string(domain.GranularityMonthly), "error").Inc()
			return nil, err
		}
		if merged == nil {
			merged = m
			continue
		}
		merged.Rows = append(merged.Rows, m.Rows...)
		merged.Target = append(merged.Target, m.Target...)
	}
	if merged == nil {
		t.metrics.TrainingRuns.WithLabelValues(string(domain.GranularityMonthly), "error").Inc()
		return nil, fmt.Errorf("training monthly model: no region has enough history: %w", domain.ErrInsufficientData)
	}
	return t.train(domain.GranularityMonthly, merged, modelType)
}

// TrainFine fits a fine-grained temperature model on the supplied
// observations. Feature rows are shuffled with a fixed seed before the
// split; sub-daily rows are near-interchangeable, so a random partition
// gives a fairer test score than a chronological one.
func (t *Trainer) TrainFine(obs []domain.Observation, modelType modelstore.ModelType) (*domain.MetricsReport, error) {
	m, err := feature.DeriveFine(obs)
	if err != nil {
		t.metrics.TrainingRuns.WithLabelValues(string(domain.GranularityFine), "error").Inc()
		return nil, err
	}
	return t.train(domain.GranularityFine, m, modelType)
}

func (t *Trainer) train(g domain.Granularity, m *feature.Matrix, modelType modelstore.ModelType) (*domain.MetricsReport, error) {
	start := domain.Clock().Now()

	n := len(m.Rows)
	if n < g.MinTrainingSamples() {
		t.metrics.TrainingRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("training %s model: %d feature rows, need at least %d: %w",
			g, n, g.MinTrainingSamples(), domain.ErrInsufficientData)
	}

	trainIdx, testIdx := splitIndexes(n, g)
	trainRows, trainY := gather(m, trainIdx)
	testRows, testY := gather(m, testIdx)

	// The scaler sees only the training partition.
	scaler := regress.FitScaler(trainRows)
	scaledTrain := scaler.TransformAll(trainRows)
	scaledTest := scaler.TransformAll(testRows)

	bundle := &modelstore.Bundle{
		SchemaVersion: modelstore.SchemaVersion,
		Granularity:   g,
		ModelType:     modelType,
		Scaler:        scaler,
		FeatureNames:  m.Names,
		TrainedAt:     domain.Clock().Now().UTC(),
	}

	var model regress.Model
	switch modelType {
	case modelstore.ModelForest:
		cfg := regress.MonthlyForestConfig()
		if g == domain.GranularityFine {
			cfg = regress.FineForestConfig()
		}
		forest, err := regress.FitForest(scaledTrain, trainY, cfg)
		if err != nil {
			t.metrics.TrainingRuns.WithLabelValues(string(g), "error").Inc()
			return nil, fmt.Errorf("training %s model: %w", g, err)
		}
		bundle.Forest = forest
		model = forest
	case modelstore.ModelLinear:
		linear, err := regress.FitLinear(scaledTrain, trainY, m.Names)
		if err != nil {
			t.metrics.TrainingRuns.WithLabelValues(string(g), "error").Inc()
			return nil, fmt.Errorf("training %s model: %w", g, err)
		}
		bundle.Linear = linear
		model = linear
	default:
		t.metrics.TrainingRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("training %s model: unknown model type %q", g, modelType)
	}

	report := domain.MetricsReport{
		Granularity:  g,
		ModelType:    string(modelType),
		SampleCount:  n,
		FeatureCount: len(m.Names),
		FeatureNames: m.Names,
		TrainedAt:    bundle.TrainedAt,
	}
	report.TrainMAE, report.TrainRMSE, report.TrainR2 = score(model, scaledTrain, trainY)
	report.TestMAE, report.TestRMSE, report.TestR2 = score(model, scaledTest, testY)
	bundle.Metrics = report

	if err := t.store.Save(g, bundle); err != nil {
		t.metrics.TrainingRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("training %s model: %w", g, err)
	}

	t.metrics.TrainingRuns.WithLabelValues(string(g), "success").Inc()
	t.metrics.TrainingDuration.WithLabelValues(string(g)).Observe(domain.Clock().Since(start).Seconds())
	t.metrics.ModelTestR2.WithLabelValues(string(g)).Set(report.TestR2)

	t.logger.Info("model trained",
		"granularity", g,
		"model_type", modelType,
		"samples", n,
		"train_rows", len(trainIdx),
		"test_rows", len(testIdx),
		"test_mae", report.TestMAE,
		"test_r2", report.TestR2,
		"accuracy", report.AccuracyBand(),
	)
	return &report, nil
}

// splitIndexes partitions row indexes into train and test sets. The test
// partition is ceil(n/5) rows: the most recent rows for monthly series, a
// seeded random sample for fine-grained series.
func splitIndexes(n int, g domain.Granularity) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if g == domain.GranularityFine {
		rng := rand.New(rand.NewSource(shuffleSeed))
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}
	testN := (n + 4) / 5
	return idx[:n-testN], idx[n-testN:]
}

func gather(m *feature.Matrix, idx []int) (rows [][]float64, target []float64) {
	rows = make([][]float64, len(idx))
	target = make([]float64, len(idx))
	for k, i := range idx {
		rows[k] = m.Rows[i]
		target[k] = m.Target[i]
	}
	return rows, target
}

func score(model regress.Model, rows [][]float64, actual []float64) (mae, rmse, r2 float64) {
	predicted := make([]float64, len(rows))
	for i, row := range rows {
		predicted[i] = model.Predict(row)
	}
	return regress.MAE(actual, predicted), regress.RMSE(actual, predicted), regress.R2(actual, predicted)
}
