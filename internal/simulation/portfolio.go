// Package simulation runs the portfolio Monte Carlo: per-entity annual
// availability draws are priced with the fee formula and summed per trial.
package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"avail-risk/internal/dataset"
	"avail-risk/internal/finance"
	"avail-risk/internal/fitting"
	"avail-risk/internal/riskerr"
	"avail-risk/internal/stats"
)

// DefaultAnnualDraws is the number of monthly draws averaged into one
// simulated annual availability.
const DefaultAnnualDraws = 12

// bootstrapSalt separates the bootstrap streams from the trial streams of the
// same seed.
const bootstrapSalt = 0x9E3779B97F4A7C15

// EntityModel is everything the simulator needs about one entity.
type EntityModel struct {
	EntityID       string                      `json:"entity_id"`
	Distribution   *fitting.FittedDistribution `json:"distribution"`
	AnnualMeans    []float64                   `json:"annual_means"` // Resampled when the distribution is empirical
	EnergyExposure float64                     `json:"energy_exposure_mwh"`
}

// Params configure one portfolio run. Finance.EnergyExposure is replaced by
// each entity's own exposure.
type Params struct {
	Entities         []EntityModel
	Finance          finance.Params
	TargetPenalty    float64
	Trials           int
	BootstrapSamples int
	AnnualDraws      int // <= 0 selects DefaultAnnualDraws
	Pool             PoolOptions
}

// Spread is the raw percentile spread of the trial totals.
type Spread struct {
	P5  float64 `json:"p5"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
}

// Result is a completed portfolio run. ConfidenceInterval bounds the mean
// trial total; Spread describes the totals themselves.
type Result struct {
	RunID                 string         `json:"run_id"`
	Threshold             float64        `json:"threshold"`
	TrialCount            int            `json:"trial_count"`
	TrialTotals           []float64      `json:"trial_totals,omitempty"`
	ExceedanceProbability float64        `json:"exceedance_probability"`
	ConfidenceInterval    stats.Interval `json:"confidence_interval"`
	MeanTotal             float64        `json:"mean_total"`
	Spread                Spread         `json:"spread"`
	Seed                  uint64         `json:"seed"`
	Workers               int            `json:"workers"`
	Duration              time.Duration  `json:"duration_ns"`
}

// Simulator prices simulated availability with a fee calculator.
type Simulator struct {
	bound dataset.Bound
	calc  *finance.Calculator
}

func NewSimulator(bound dataset.Bound) *Simulator {
	return &Simulator{bound: bound, calc: finance.NewCalculator(bound)}
}

// Validate checks p before any sampling happens.
func (s *Simulator) Validate(p Params) error {
	if p.Trials <= 0 {
		return &riskerr.SimulationError{Field: "trial_count", Value: p.Trials}
	}
	if p.BootstrapSamples <= 0 {
		return &riskerr.SimulationError{Field: "bootstrap_sample_count", Value: p.BootstrapSamples}
	}
	if len(p.Entities) == 0 {
		return riskerr.NewInput("entities", "portfolio has no entities")
	}
	if math.IsNaN(p.TargetPenalty) {
		return riskerr.NewInput("target_penalty", "must be a number")
	}
	if err := s.calc.Validate(p.Finance); err != nil {
		return err
	}

	for _, e := range p.Entities {
		switch {
		case e.Distribution == nil:
			return riskerr.NewInput("distribution", "entity %q has no fitted distribution", e.EntityID)
		case e.Distribution.IsEmpirical() && len(e.AnnualMeans) == 0:
			return riskerr.NewInput("annual_means", "empirical entity %q has no annual history", e.EntityID)
		case !(e.EnergyExposure >= 0):
			return riskerr.NewInput("energy_exposure_mwh", "entity %q exposure must not be negative", e.EntityID)
		}
		if !e.Distribution.IsEmpirical() {
			if _, err := e.Distribution.Distribution(nil); err != nil {
				return riskerr.NewInput("distribution", "entity %q: %v", e.EntityID, err)
			}
		}
	}
	return nil
}

type portfolioPartial struct {
	samplers []func() float64
	totals   []float64
	exceeded int
}

// Run executes the simulation. It returns either a complete result or an
// error; a cancelled run returns ctx.Err() and no result.
func (s *Simulator) Run(ctx context.Context, p Params) (*Result, error) {
	if err := s.Validate(p); err != nil {
		return nil, err
	}
	draws := p.AnnualDraws
	if draws <= 0 {
		draws = DefaultAnnualDraws
	}

	start := time.Now()
	params := make([]finance.Params, len(p.Entities))
	for i, e := range p.Entities {
		params[i] = p.Finance.WithExposure(e.EnergyExposure)
	}

	partials, err := RunPartitioned(ctx, p.Trials, p.Pool,
		func(part Partition, rng *rand.Rand) (portfolioPartial, error) {
			acc := portfolioPartial{totals: make([]float64, 0, part.Len())}
			for _, e := range p.Entities {
				sampler, err := s.annualSampler(e, draws, rng)
				if err != nil {
					return acc, err
				}
				acc.samplers = append(acc.samplers, sampler)
			}
			return acc, nil
		},
		func(_ *rand.Rand, _ int, acc *portfolioPartial) error {
			total := 0.0
			for i, sample := range acc.samplers {
				penalty, err := s.calc.Penalty(sample(), params[i])
				if err != nil {
					return fmt.Errorf("entity %s: %w", p.Entities[i].EntityID, err)
				}
				total += penalty
			}
			acc.totals = append(acc.totals, total)
			if total > p.TargetPenalty {
				acc.exceeded++
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	totals := make([]float64, 0, p.Trials)
	exceeded := 0
	for _, part := range partials {
		totals = append(totals, part.totals...)
		exceeded += part.exceeded
	}

	bootPool := p.Pool
	bootPool.Seed ^= bootstrapSalt
	ci, err := BootstrapMeanCI(ctx, totals, p.BootstrapSamples, bootPool)
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(totals)
	slices.Sort(sorted)

	result := &Result{
		RunID:                 uuid.NewString(),
		Threshold:             p.TargetPenalty,
		TrialCount:            p.Trials,
		TrialTotals:           totals,
		ExceedanceProbability: float64(exceeded) / float64(p.Trials),
		ConfidenceInterval:    ci,
		MeanTotal:             stats.Mean(totals),
		Spread: Spread{
			P5:  stats.Percentile(sorted, 5),
			P50: stats.Percentile(sorted, 50),
			P95: stats.Percentile(sorted, 95),
		},
		Seed:     p.Pool.Seed,
		Workers:  len(partials),
		Duration: time.Since(start),
	}

	log.Debug().
		Str("run_id", result.RunID).
		Int("trials", p.Trials).
		Int("entities", len(p.Entities)).
		Int("workers", result.Workers).
		Dur("elapsed", result.Duration).
		Msg("Portfolio simulation finished")
	return result, nil
}

// annualSampler returns a generator of simulated annual availability for e,
// drawing from rng.
func (s *Simulator) annualSampler(e EntityModel, draws int, rng *rand.Rand) (func() float64, error) {
	if e.Distribution.IsEmpirical() {
		means := e.AnnualMeans
		return func() float64 {
			return s.bound.Clip(means[rng.IntN(len(means))])
		}, nil
	}

	dist, err := e.Distribution.Distribution(rng)
	if err != nil {
		return nil, err
	}
	return AnnualDraw(dist, draws, s.bound), nil
}

// AnnualDraw returns a generator of the mean of draws independent monthly
// values from dist, each clipped to bound.
func AnnualDraw(dist fitting.Distribution, draws int, bound dataset.Bound) func() float64 {
	return func() float64 {
		sum := 0.0
		for i := 0; i < draws; i++ {
			sum += bound.Clip(dist.Rand())
		}
		return sum / float64(draws)
	}
}

// BootstrapMeanCI resamples values with replacement `resamples` times on the
// worker pool and returns the 2.5th and 97.5th percentiles of the resample
// means.
func BootstrapMeanCI(ctx context.Context, values []float64, resamples int, opts PoolOptions) (stats.Interval, error) {
	if resamples <= 0 {
		return stats.Interval{}, &riskerr.SimulationError{Field: "bootstrap_sample_count", Value: resamples}
	}
	if len(values) == 0 {
		return stats.Interval{}, riskerr.NewInput("values", "nothing to resample")
	}

	n := len(values)
	partials, err := RunPartitioned(ctx, resamples, opts,
		func(part Partition, _ *rand.Rand) ([]float64, error) {
			return make([]float64, 0, part.Len()), nil
		},
		func(rng *rand.Rand, _ int, means *[]float64) error {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += values[rng.IntN(n)]
			}
			*means = append(*means, sum/float64(n))
			return nil
		},
	)
	if err != nil {
		return stats.Interval{}, err
	}

	means := slices.Concat(partials...)
	slices.Sort(means)
	return stats.Interval{
		Lower: stats.Percentile(means, 2.5),
		Upper: stats.Percentile(means, 97.5),
	}, nil
}
