package stats

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
)

// ErrInsufficientHistory is returned when a series is too short for the
// requested analysis.
var ErrInsufficientHistory = errors.New("insufficient history")

// MovingAverage returns the trailing rolling mean over window values. The
// first window-1 entries, and any window containing NaN, are NaN.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}

// Decomposition is an additive split of a series into trend, seasonal and
// residual components. Entries that cannot be estimated are NaN.
type Decomposition struct {
	Period   int       `json:"period"`
	Observed []float64 `json:"observed"`
	Trend    []float64 `json:"trend"`
	Seasonal []float64 `json:"seasonal"`
	Residual []float64 `json:"residual"`
}

// Decompose performs an additive seasonal decomposition. The trend is a
// centred moving average over one period (a 2xP average for even periods),
// the seasonal component is the per-position mean of the detrended series,
// normalised to sum to zero over a period. At least two full periods are
// required.
func Decompose(series []float64, period int) (*Decomposition, error) {
	if period < 2 || len(series) < 2*period {
		return nil, ErrInsufficientHistory
	}

	n := len(series)
	trend := centredMovingAverage(series, period)

	positionSums := make([]float64, period)
	positionCounts := make([]int, period)
	for i := 0; i < n; i++ {
		d := series[i] - trend[i]
		if math.IsNaN(d) {
			continue
		}
		positionSums[i%period] += d
		positionCounts[i%period]++
	}

	figure := make([]float64, period)
	figureMean := 0.0
	known := 0
	for p := range figure {
		if positionCounts[p] == 0 {
			figure[p] = math.NaN()
			continue
		}
		figure[p] = positionSums[p] / float64(positionCounts[p])
		figureMean += figure[p]
		known++
	}
	if known > 0 {
		figureMean /= float64(known)
	}
	for p := range figure {
		figure[p] -= figureMean
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = figure[i%period]
		residual[i] = series[i] - trend[i] - seasonal[i]
	}

	return &Decomposition{
		Period:   period,
		Observed: slices.Clone(series),
		Trend:    trend,
		Seasonal: seasonal,
		Residual: residual,
	}, nil
}

// MarshalJSON emits unestimated entries as null.
func (d Decomposition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Period   int        `json:"period"`
		Observed []*float64 `json:"observed"`
		Trend    []*float64 `json:"trend"`
		Seasonal []*float64 `json:"seasonal"`
		Residual []*float64 `json:"residual"`
	}{d.Period, Nullable(d.Observed), Nullable(d.Trend), Nullable(d.Seasonal), Nullable(d.Residual)})
}

// Nullable maps NaN entries to nil so the slice can be JSON encoded.
func Nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = &values[i]
		}
	}
	return out
}

func centredMovingAverage(series []float64, period int) []float64 {
	n := len(series)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	weights := make([]float64, 0, period+1)
	if period%2 == 0 {
		weights = append(weights, 0.5)
		for i := 0; i < period-1; i++ {
			weights = append(weights, 1)
		}
		weights = append(weights, 0.5)
	} else {
		for i := 0; i < period; i++ {
			weights = append(weights, 1)
		}
	}
	half := len(weights) / 2

	for i := half; i < n-half; i++ {
		sum := 0.0
		for j, w := range weights {
			sum += w * series[i-half+j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}
