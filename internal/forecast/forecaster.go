package forecast

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ecotrack/climate-engine/internal/domain"
	"github.com/ecotrack/climate-engine/internal/feature"
	"github.com/ecotrack/climate-engine/internal/modelstore"
	"github.com/ecotrack/climate-engine/internal/observability"
	"github.com/ecotrack/climate-engine/internal/regress"
)

// fineStep is the calendar distance between consecutive fine-grained
// forecast points.
const fineStep = time.Hour

// Forecaster produces iterative multi-step forecasts from a persisted model
// bundle. Each step predicts from the current feature row and then rolls
// only its calendar features forward; lagged values and rolling statistics
// stay frozen at their last observed state, so predictions are never fed
// back as inputs.
type Forecaster struct {
	store   modelstore.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewForecaster wires a Forecaster to its model store.
func NewForecaster(store modelstore.Store, logger *slog.Logger, metrics *observability.Metrics) *Forecaster {
	return &Forecaster{store: store, logger: logger, metrics: metrics}
}

// ForecastMonthly predicts average temperature for the `steps` months
// following the most recent aggregate. Confidence starts at 96 and decays
// 4 points per step down to a floor of 50; uncertainty bands widen at
// steps 4 and 7.
func (f *Forecaster) ForecastMonthly(aggs []domain.MonthlyAggregate, steps int) ([]domain.ForecastPoint, error) {
	g := domain.GranularityMonthly
	start := domain.Clock().Now()

	if err := f.checkSteps(g, steps); err != nil {
		return nil, err
	}
	if len(aggs) <= g.MaxLag() {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("monthly forecast: %d aggregates of history, need at least %d: %w",
			len(aggs), g.MaxLag()+1, domain.ErrInsufficientHistory)
	}

	bundle, err := f.loadBundle(g)
	if err != nil {
		return nil, err
	}

	m, err := feature.DeriveMonthly(aggs)
	if err != nil {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("monthly forecast: %w", err)
	}
	model, err := f.checkManifest(g, bundle, m.Names)
	if err != nil {
		return nil, err
	}

	idxMonth := m.Index("month")
	idxSin := m.Index("sin_month")
	idxCos := m.Index("cos_month")

	row := m.LastRow()
	year, month := m.LastYear, m.LastMonth

	points := make([]domain.ForecastPoint, 0, steps)
	for step := 1; step <= steps; step++ {
		// Predict before advancing: step k is predicted from the calendar
		// features of period k-1, and the row's month features are rolled
		// forward afterward for the next step.
		value := model.Predict(bundle.Scaler.Transform(row))
		band := monthlyBand(step)

		month++
		if month > 12 {
			month = 1
			year++
		}
		row[idxMonth] = float64(month)
		row[idxSin], row[idxCos] = feature.Cyclical(float64(month), 12)

		points = append(points, domain.ForecastPoint{
			Step:       step,
			Year:       year,
			Month:      month,
			Label:      domain.MonthLabel(year, month),
			Value:      value,
			Lower:      value - band,
			Upper:      value + band,
			Confidence: confidence(100-4*step, 50),
		})
	}

	f.observe(g, steps, start)
	return points, nil
}

// ForecastFine predicts temperature for the `steps` hours following the
// most recent observation. Confidence decays 2 points per step to a floor
// of 50, and the uncertainty band widens linearly with the step.
func (f *Forecaster) ForecastFine(obs []domain.Observation, steps int) ([]domain.ForecastPoint, error) {
	g := domain.GranularityFine
	start := domain.Clock().Now()

	if err := f.checkSteps(g, steps); err != nil {
		return nil, err
	}
	if len(obs) <= g.MaxLag() {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("fine-grained forecast: %d observations of history, need at least %d: %w",
			len(obs), g.MaxLag()+1, domain.ErrInsufficientHistory)
	}

	bundle, err := f.loadBundle(g)
	if err != nil {
		return nil, err
	}

	m, err := feature.DeriveFine(obs)
	if err != nil {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("fine-grained forecast: %w", err)
	}
	model, err := f.checkManifest(g, bundle, m.Names)
	if err != nil {
		return nil, err
	}

	idxSinH, idxCosH := m.Index("sin_hour"), m.Index("cos_hour")
	idxSinD, idxCosD := m.Index("sin_dow"), m.Index("cos_dow")
	idxSinY, idxCosY := m.Index("sin_doy"), m.Index("cos_doy")

	row := m.LastRow()
	ts := m.LastTime

	points := make([]domain.ForecastPoint, 0, steps)
	for step := 1; step <= steps; step++ {
		value := model.Predict(bundle.Scaler.Transform(row))
		band := 0.5 * float64(step)

		ts = ts.Add(fineStep)
		row[idxSinH], row[idxCosH] = feature.Cyclical(float64(ts.Hour()), 24)
		row[idxSinD], row[idxCosD] = feature.Cyclical(float64(ts.Weekday()), 7)
		row[idxSinY], row[idxCosY] = feature.Cyclical(float64(ts.YearDay()), 365)

		points = append(points, domain.ForecastPoint{
			Step:       step,
			Timestamp:  ts,
			Label:      ts.Format(time.RFC3339),
			Value:      value,
			Lower:      value - band,
			Upper:      value + band,
			Confidence: confidence(100-2*step, 50),
		})
	}

	f.observe(g, steps, start)
	return points, nil
}

func (f *Forecaster) checkSteps(g domain.Granularity, steps int) error {
	if steps < 1 {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return fmt.Errorf("forecast: steps must be positive, got %d", steps)
	}
	return nil
}

func (f *Forecaster) loadBundle(g domain.Granularity) (*modelstore.Bundle, error) {
	bundle, err := f.store.Load(g)
	if err != nil {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("%s forecast: %w", g, err)
	}
	if bundle == nil {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("%s forecast: %w", g, domain.ErrModelNotTrained)
	}
	return bundle, nil
}

// checkManifest rejects history whose derived feature names differ from
// the manifest the bundle was trained against.
func (f *Forecaster) checkManifest(g domain.Granularity, bundle *modelstore.Bundle, names []string) (regress.Model, error) {
	if !slices.Equal(bundle.FeatureNames, names) {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("%s forecast: model trained on %v, derived %v: %w",
			g, bundle.FeatureNames, names, domain.ErrFeatureMismatch)
	}
	m, err := bundle.Model()
	if err != nil {
		f.metrics.ForecastRuns.WithLabelValues(string(g), "error").Inc()
		return nil, fmt.Errorf("%s forecast: %w", g, err)
	}
	return m, nil
}

func (f *Forecaster) observe(g domain.Granularity, steps int, start time.Time) {
	f.metrics.ForecastRuns.WithLabelValues(string(g), "success").Inc()
	f.metrics.ForecastDuration.WithLabelValues(string(g)).Observe(domain.Clock().Since(start).Seconds())
	f.metrics.ForecastSteps.Observe(float64(steps))
	f.logger.Debug("forecast produced", "granularity", g, "steps", steps)
}

// monthlyBand returns the half-width of the monthly uncertainty interval.
func monthlyBand(step int) float64 {
	switch {
	case step <= 3:
		return 0.5
	case step <= 6:
		return 1.0
	default:
		return 1.5
	}
}

func confidence(value, floor int) float64 {
	if value < floor {
		value = floor
	}
	return float64(value)
}
