package forecast

import (
	"log/slog"

	"github.com/ecotrack/climate-engine/internal/modelstore"
	"github.com/ecotrack/climate-engine/internal/observability"
)

// Engine bundles a Trainer and Forecaster over one model store. All
// collaborators are passed in explicitly; there is no package-level
// instance and no hidden construction, so tests and callers control every
// dependency.
type Engine struct {
	Trainer    *Trainer
	Forecaster *Forecaster
}

// NewEngine builds an Engine over the given model store.
func NewEngine(store modelstore.Store, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		Trainer:    NewTrainer(store, logger, metrics),
		Forecaster: NewForecaster(store, logger, metrics),
	}
}
