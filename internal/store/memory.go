package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ecotrack/climate-engine/internal/domain"
)

type aggKey struct {
	region int64
	year   int
	month  int
}

// MemoryStore is a concurrency-safe in-memory Store used by tests and
// local tooling.
type MemoryStore struct {
	mu sync.RWMutex

	// key: region, value: readings in insertion order
	observations map[int64][]domain.Observation
	aggregates   map[aggKey]domain.MonthlyAggregate
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		observations: make(map[int64][]domain.Observation),
		aggregates:   make(map[aggKey]domain.MonthlyAggregate),
	}
}

// InsertObservations stores a batch of readings.
func (s *MemoryStore) InsertObservations(_ context.Context, obs []domain.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		s.observations[o.RegionID] = append(s.observations[o.RegionID], o)
	}
	return nil
}

// ObservationsInRange returns a region's readings with from <= ts < to.
func (s *MemoryStore) ObservationsInRange(_ context.Context, regionID int64, from, to time.Time) ([]domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Observation
	for _, o := range s.observations[regionID] {
		if !o.Timestamp.Before(from) && o.Timestamp.Before(to) {
			result = append(result, o)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// ListRegions returns every region with at least one reading, ascending.
func (s *MemoryStore) ListRegions(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regions := make([]int64, 0, len(s.observations))
	for r := range s.observations {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })
	return regions, nil
}

// MonthlyHistory returns a region's aggregates in chronological order.
func (s *MemoryStore) MonthlyHistory(_ context.Context, regionID int64) ([]domain.MonthlyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.MonthlyAggregate
	for k, agg := range s.aggregates {
		if k.region == regionID {
			result = append(result, agg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodKey() < result[j].PeriodKey()
	})
	return result, nil
}

// HasAggregate reports whether a (region, year, month) rollup exists.
func (s *MemoryStore) HasAggregate(_ context.Context, regionID int64, year, month int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.aggregates[aggKey{regionID, year, month}]
	return ok, nil
}

// UpsertAggregate inserts or replaces the observed fields of a rollup,
// keeping any existing prediction.
func (s *MemoryStore) UpsertAggregate(_ context.Context, agg domain.MonthlyAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := aggKey{agg.RegionID, agg.Year, agg.Month}
	if prev, ok := s.aggregates[k]; ok {
		agg.PredictedTemperature = prev.PredictedTemperature
		agg.PredictedRainfall = prev.PredictedRainfall
		agg.PredictionConfidence = prev.PredictionConfidence
	}
	s.aggregates[k] = agg
	return nil
}

// UpsertPrediction sets the predicted temperature and confidence on a
// (region, year, month) row, creating it if absent.
func (s *MemoryStore) UpsertPrediction(_ context.Context, regionID int64, year, month int, temperature, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := aggKey{regionID, year, month}
	agg, ok := s.aggregates[k]
	if !ok {
		agg = domain.MonthlyAggregate{RegionID: regionID, Year: year, Month: month}
	}
	agg.PredictedTemperature = &temperature
	agg.PredictionConfidence = &confidence
	s.aggregates[k] = agg
	return nil
}
