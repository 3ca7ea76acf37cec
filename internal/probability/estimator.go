// Package probability estimates the chance of availability falling below a
// contractual threshold at monthly and annual horizons.
package probability

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"avail-risk/internal/dataset"
	"avail-risk/internal/fitting"
	"avail-risk/internal/riskerr"
	"avail-risk/internal/simulation"
	"avail-risk/internal/stats"
)

const (
	DefaultTrials         = 10000
	DefaultMinAnnualYears = 3
)

// TagInsufficientHistory marks an annual empirical estimate built from fewer
// years than the configured minimum.
const TagInsufficientHistory = "low (insufficient annual history)"

// Horizon is the period a breach probability refers to.
type Horizon string

const (
	Monthly Horizon = "monthly"
	Annual  Horizon = "annual"
)

// ParseHorizon resolves a horizon name, case-insensitively.
func ParseHorizon(s string) (Horizon, error) {
	switch h := Horizon(strings.ToLower(strings.TrimSpace(s))); h {
	case Monthly, Annual:
		return h, nil
	}
	return "", riskerr.NewInput("horizon", "unknown horizon %q (want monthly or annual)", s)
}

// Method records how an estimate was obtained.
type Method string

const (
	Parametric Method = "parametric"
	Empirical  Method = "empirical"
)

// Estimate is a breach probability with its provenance.
type Estimate struct {
	Probability   float64 `json:"probability"`
	ConfidenceTag string  `json:"confidence_tag"`
	Threshold     float64 `json:"threshold"`
	Horizon       Horizon `json:"horizon"`
	Method        Method  `json:"method"`
	Trials        int     `json:"trials,omitempty"` // Annual parametric only
	Years         int     `json:"years,omitempty"`  // Annual empirical only
}

// Estimator computes breach probabilities. Annual parametric estimates are
// simulated on the worker pool; with a fixed seed and worker count they are
// reproducible bit for bit.
type Estimator struct {
	Bound          dataset.Bound
	Trials         int
	AnnualDraws    int
	MinAnnualYears int
	Pool           simulation.PoolOptions
}

func NewEstimator(bound dataset.Bound, pool simulation.PoolOptions) *Estimator {
	return &Estimator{
		Bound:          bound,
		Trials:         DefaultTrials,
		AnnualDraws:    simulation.DefaultAnnualDraws,
		MinAnnualYears: DefaultMinAnnualYears,
		Pool:           pool,
	}
}

// Estimate returns P(availability < threshold) for the horizon. annualMeans is
// the entity's historical annual means, used by the annual empirical method.
func (e *Estimator) Estimate(ctx context.Context, fd *fitting.FittedDistribution, annualMeans []float64, threshold float64, horizon Horizon) (Estimate, error) {
	if fd == nil {
		return Estimate{}, riskerr.NewInput("distribution", "no fitted distribution")
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return Estimate{}, riskerr.NewInput("threshold", "must be a finite number")
	}

	est := Estimate{Threshold: threshold, Horizon: horizon, ConfidenceTag: fd.ConfidenceTag}
	var err error
	switch {
	case horizon == Monthly && fd.IsEmpirical():
		est.Method = Empirical
		if len(fd.Sample) == 0 {
			return Estimate{}, riskerr.NewInput("sample", "empirical distribution has no samples")
		}
		est.Probability = stats.FractionBelow(fd.Sample, threshold)

	case horizon == Monthly:
		est.Method = Parametric
		est.Probability, err = e.monthlyParametric(fd, threshold)

	case horizon == Annual && fd.IsEmpirical():
		est.Method = Empirical
		est.Years = len(annualMeans)
		if len(annualMeans) == 0 {
			return Estimate{}, riskerr.NewInput("annual_means", "no historical annual means")
		}
		est.Probability = stats.FractionBelow(annualMeans, threshold)
		if len(annualMeans) < e.MinAnnualYears {
			est.ConfidenceTag = TagInsufficientHistory
		}

	case horizon == Annual:
		est.Method = Parametric
		est.Trials = e.Trials
		est.Probability, err = e.annualParametric(ctx, fd, threshold)

	default:
		return Estimate{}, riskerr.NewInput("horizon", "unknown horizon %q", horizon)
	}
	if err != nil {
		return Estimate{}, err
	}
	return est, nil
}

func (e *Estimator) monthlyParametric(fd *fitting.FittedDistribution, threshold float64) (float64, error) {
	dist, err := fd.Distribution(nil)
	if err != nil {
		return 0, riskerr.NewInput("distribution", "%v", err)
	}
	return dist.CDF(threshold), nil
}

func (e *Estimator) annualParametric(ctx context.Context, fd *fitting.FittedDistribution, threshold float64) (float64, error) {
	if e.Trials <= 0 {
		return 0, &riskerr.SimulationError{Field: "trial_count", Value: e.Trials}
	}
	draws := e.AnnualDraws
	if draws <= 0 {
		draws = simulation.DefaultAnnualDraws
	}
	if _, err := fd.Distribution(nil); err != nil {
		return 0, riskerr.NewInput("distribution", "%v", err)
	}

	type partial struct {
		draw  func() float64
		below int
	}
	partials, err := simulation.RunPartitioned(ctx, e.Trials, e.Pool,
		func(_ simulation.Partition, rng *rand.Rand) (partial, error) {
			dist, err := fd.Distribution(rng)
			if err != nil {
				return partial{}, err
			}
			return partial{draw: simulation.AnnualDraw(dist, draws, e.Bound)}, nil
		},
		func(_ *rand.Rand, _ int, acc *partial) error {
			if acc.draw() < threshold {
				acc.below++
			}
			return nil
		},
	)
	if err != nil {
		return 0, fmt.Errorf("annual breach simulation: %w", err)
	}

	below := 0
	for _, p := range partials {
		below += p.below
	}
	return float64(below) / float64(e.Trials), nil
}
