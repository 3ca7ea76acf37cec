// Package stats groups availability records into per-year descriptive
// statistics and provides the small numeric helpers shared by the engine.
package stats

import (
	"encoding/json"
	"math"
	"sort"

	"avail-risk/internal/dataset"
)

// EntityYearStat summarises one entity's valid monthly samples for a year.
type EntityYearStat struct {
	EntityID     string  `json:"entity_id"`
	Year         int     `json:"year"`
	Mean         float64 `json:"mean"`
	SampleStdDev float64 `json:"sample_std"` // NaN below two samples
	Median       float64 `json:"median"`
	SampleCount  int     `json:"sample_count"`
	TurbineCount int     `json:"turbine_count"` // Largest count reported in the year
}

// MarshalJSON emits an undefined standard deviation as null.
func (s EntityYearStat) MarshalJSON() ([]byte, error) {
	type alias EntityYearStat
	out := struct {
		alias
		SampleStdDev *float64 `json:"sample_std"`
	}{alias: alias(s)}
	if !math.IsNaN(s.SampleStdDev) {
		v := s.SampleStdDev
		out.SampleStdDev = &v
	}
	return json.Marshal(out)
}

// AggregateStats groups an entity's records by year. Records with a missing
// or out-of-bound availability are ignored; a year without any valid sample is
// omitted rather than zero-filled. The result is ordered by year.
func AggregateStats(records []dataset.Record, bound dataset.Bound) []EntityYearStat {
	type group struct {
		entity   string
		values   []float64
		turbines int
	}
	groups := make(map[int]*group)

	for _, r := range records {
		v, ok := r.Value()
		if !ok || !bound.Contains(v) {
			continue
		}
		g, exists := groups[r.Year]
		if !exists {
			g = &group{entity: r.EntityID}
			groups[r.Year] = g
		}
		g.values = append(g.values, v)
		if r.TurbineCount > g.turbines {
			g.turbines = r.TurbineCount
		}
	}

	years := make([]int, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Ints(years)

	result := make([]EntityYearStat, 0, len(years))
	for _, y := range years {
		g := groups[y]
		result = append(result, EntityYearStat{
			EntityID:     g.entity,
			Year:         y,
			Mean:         Mean(g.values),
			SampleStdDev: SampleStdDev(g.values),
			Median:       Median(g.values),
			SampleCount:  len(g.values),
			TurbineCount: g.turbines,
		})
	}
	return result
}

// AnnualMeans extracts the mean of each year, in order.
func AnnualMeans(yearStats []EntityYearStat) []float64 {
	means := make([]float64, len(yearStats))
	for i, s := range yearStats {
		means[i] = s.Mean
	}
	return means
}

// PooledSample returns every valid monthly availability of the records, pooled
// across years, in record order.
func PooledSample(records []dataset.Record, bound dataset.Bound) []float64 {
	sample := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Value(); ok && bound.Contains(v) {
			sample = append(sample, v)
		}
	}
	return sample
}

// MonthlySeries lays the records out on a contiguous monthly grid from the
// first to the last observed period. Gaps and invalid values are NaN.
func MonthlySeries(records []dataset.Record, bound dataset.Bound) (startYear, startMonth int, series []float64) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	first, last := math.MaxInt, math.MinInt
	for _, r := range records {
		p := r.Year*12 + r.Month - 1
		first = min(first, p)
		last = max(last, p)
	}

	series = make([]float64, last-first+1)
	for i := range series {
		series[i] = math.NaN()
	}
	for _, r := range records {
		if v, ok := r.Value(); ok && bound.Contains(v) {
			series[r.Year*12+r.Month-1-first] = v
		}
	}
	return first / 12, first%12 + 1, series
}
