// Package aggregate rolls fine-grained observations up into monthly
// climate summaries.
package aggregate

import (
	"sort"

	"github.com/ecotrack/climate-engine/internal/domain"
)

// Rollup groups observations by (region, year, month) and reduces each
// group to one MonthlyAggregate: temperatures are averaged with their
// extremes kept, rainfall is summed, humidity and wind speed are averaged.
// Month boundaries follow UTC. The result is sorted by region then period,
// and months with no observations simply do not appear.
func Rollup(obs []domain.Observation) []domain.MonthlyAggregate {
	type key struct {
		region int64
		year   int
		month  int
	}

	groups := make(map[key]*domain.MonthlyAggregate)
	for _, o := range obs {
		ts := o.Timestamp.UTC()
		k := key{region: o.RegionID, year: ts.Year(), month: int(ts.Month())}

		agg, ok := groups[k]
		if !ok {
			agg = &domain.MonthlyAggregate{
				RegionID:       k.region,
				Year:           k.year,
				Month:          k.month,
				MaxTemperature: o.Temperature,
				MinTemperature: o.Temperature,
			}
			groups[k] = agg
		}

		// Running sums live in the Avg fields until the final divide.
		agg.AvgTemperature += o.Temperature
		agg.AvgHumidity += o.Humidity
		agg.AvgWindSpeed += o.WindSpeed
		agg.TotalRainfall += o.Rainfall
		if o.Temperature > agg.MaxTemperature {
			agg.MaxTemperature = o.Temperature
		}
		if o.Temperature < agg.MinTemperature {
			agg.MinTemperature = o.Temperature
		}
		agg.ObservationCount++
	}

	out := make([]domain.MonthlyAggregate, 0, len(groups))
	for _, agg := range groups {
		n := float64(agg.ObservationCount)
		agg.AvgTemperature /= n
		agg.AvgHumidity /= n
		agg.AvgWindSpeed /= n
		out = append(out, *agg)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RegionID != out[j].RegionID {
			return out[i].RegionID < out[j].RegionID
		}
		return out[i].PeriodKey() < out[j].PeriodKey()
	})
	return out
}
