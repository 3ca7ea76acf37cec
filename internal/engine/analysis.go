package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"avail-risk/internal/finance"
	"avail-risk/internal/fitting"
	"avail-risk/internal/probability"
	"avail-risk/internal/riskerr"
	"avail-risk/internal/simulation"
	"avail-risk/internal/stats"
)

// AggregateStats returns the per-year statistics of an entity.
func (e *Engine) AggregateStats(entityID string) (out []stats.EntityYearStat, err error) {
	defer e.observe("aggregate_stats", time.Now(), &err)

	return e.yearStats(entityID)
}

func (e *Engine) yearStats(entityID string) ([]stats.EntityYearStat, error) {
	recs, err := e.records(entityID)
	if err != nil {
		return nil, err
	}
	return stats.AggregateStats(recs, e.bound), nil
}

// FitDistribution fits a raw sample. Results are served from the fit cache
// and shared, so callers must not modify them.
func (e *Engine) FitDistribution(sample []float64) (fd *fitting.FittedDistribution, err error) {
	defer e.observe("fit_distribution", time.Now(), &err)
	return e.fit(sample)
}

// FitEntity fits the pooled monthly availability of an entity.
func (e *Engine) FitEntity(entityID string) (fd *fitting.FittedDistribution, err error) {
	defer e.observe("fit_entity", time.Now(), &err)
	return e.fitEntity(entityID)
}

func (e *Engine) fit(sample []float64) (*fitting.FittedDistribution, error) {
	fd, hit, err := e.cache.Fit(e.fitter, sample)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordFit(fd.Family.String(), string(fd.Outcome), hit)
	return fd, nil
}

func (e *Engine) fitEntity(entityID string) (*fitting.FittedDistribution, error) {
	recs, err := e.records(entityID)
	if err != nil {
		return nil, err
	}
	shared, err := e.fit(stats.PooledSample(recs, e.bound))
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", entityID, err)
	}
	fd := *shared
	fd.EntityID = entityID
	return &fd, nil
}

// EstimateProbability returns the probability of the entity's availability
// falling below threshold over the horizon.
func (e *Engine) EstimateProbability(ctx context.Context, entityID string, threshold float64, horizon probability.Horizon) (est probability.Estimate, err error) {
	defer e.observe("estimate_probability", time.Now(), &err)

	fd, err := e.fitEntity(entityID)
	if err != nil {
		return probability.Estimate{}, err
	}
	yearStats, err := e.yearStats(entityID)
	if err != nil {
		return probability.Estimate{}, err
	}
	return e.estimator.Estimate(ctx, fd, stats.AnnualMeans(yearStats), threshold, horizon)
}

// ComputeFinancialImpact evaluates the contract for the entity's mean
// availability in year. exposure overrides p.EnergyExposure; when nil the
// exposure is derived from the turbine count of that year and the configured
// energy per turbine per day.
func (e *Engine) ComputeFinancialImpact(entityID string, year int, p finance.Params, exposure *float64) (out finance.Outcome, err error) {
	defer e.observe("compute_financial_impact", time.Now(), &err)

	yearStats, err := e.yearStats(entityID)
	if err != nil {
		return finance.Outcome{}, err
	}
	for _, ys := range yearStats {
		if ys.Year != year {
			continue
		}
		if exposure != nil {
			p.EnergyExposure = *exposure
		} else {
			p.EnergyExposure = finance.AnnualExposure(ys.TurbineCount, e.cfg.EnergyPerTurbinePerDay)
		}
		return e.calc.Compute(entityID, year, ys.Mean, p)
	}
	return finance.Outcome{}, riskerr.NewInput("year", "no valid availability for %s in %d", entityID, year)
}

// Trend is an entity's annual mean availability with its moving average.
type Trend struct {
	EntityID      string    `json:"entity_id"`
	Window        int       `json:"window"`
	Years         []int     `json:"years"`
	Means         []float64 `json:"means"`
	MovingAverage []float64 `json:"moving_average"` // NaN until the window fills
}

// MarshalJSON emits unfilled moving-average entries as null.
func (t Trend) MarshalJSON() ([]byte, error) {
	type alias Trend
	return json.Marshal(struct {
		alias
		MovingAverage []*float64 `json:"moving_average"`
	}{alias(t), stats.Nullable(t.MovingAverage)})
}

// AnnualTrend returns the annual means of an entity and their trailing moving
// average over the configured window.
func (e *Engine) AnnualTrend(entityID string) (t *Trend, err error) {
	defer e.observe("annual_trend", time.Now(), &err)

	yearStats, err := e.yearStats(entityID)
	if err != nil {
		return nil, err
	}
	t = &Trend{EntityID: entityID, Window: e.cfg.MovingAverageWindow}
	for _, ys := range yearStats {
		t.Years = append(t.Years, ys.Year)
	}
	t.Means = stats.AnnualMeans(yearStats)
	t.MovingAverage = stats.MovingAverage(t.Means, t.Window)
	return t, nil
}

// SeasonalDecomposition is the decomposition of an entity's monthly series.
type SeasonalDecomposition struct {
	EntityID      string               `json:"entity_id"`
	StartYear     int                  `json:"start_year"`
	StartMonth    int                  `json:"start_month"`
	Decomposition *stats.Decomposition `json:"decomposition"`
}

// Decompose splits an entity's monthly availability into trend, seasonal and
// residual components. Two full years of history are required.
func (e *Engine) Decompose(entityID string) (d *SeasonalDecomposition, err error) {
	defer e.observe("decompose", time.Now(), &err)

	recs, err := e.records(entityID)
	if err != nil {
		return nil, err
	}
	startYear, startMonth, series := stats.MonthlySeries(recs, e.bound)
	dec, err := stats.Decompose(series, SeasonalPeriod)
	if errors.Is(err, stats.ErrInsufficientHistory) {
		return nil, riskerr.NewInput("entity_id", "%s has %d months of history, at least %d are required", entityID, len(series), 2*SeasonalPeriod)
	}
	if err != nil {
		return nil, err
	}
	return &SeasonalDecomposition{
		EntityID:      entityID,
		StartYear:     startYear,
		StartMonth:    startMonth,
		Decomposition: dec,
	}, nil
}

// MeanInterval is a bootstrap confidence interval for mean availability.
type MeanInterval struct {
	EntityID string         `json:"entity_id"`
	Mean     float64        `json:"mean"`
	Interval stats.Interval `json:"confidence_interval"`
	Samples  int            `json:"samples"`
	Resample int            `json:"bootstrap_sample_count"`
}

// MeanConfidenceInterval bootstraps a 95% interval for the mean of the
// entity's valid monthly availability.
func (e *Engine) MeanConfidenceInterval(ctx context.Context, entityID string) (mi *MeanInterval, err error) {
	defer e.observe("mean_confidence_interval", time.Now(), &err)

	recs, err := e.records(entityID)
	if err != nil {
		return nil, err
	}
	sample := stats.PooledSample(recs, e.bound)
	if len(sample) == 0 {
		return nil, riskerr.NewInput("entity_id", "%s has no valid availability", entityID)
	}
	ci, err := simulation.BootstrapMeanCI(ctx, sample, e.cfg.BootstrapSamples, e.pool)
	if err != nil {
		return nil, err
	}
	return &MeanInterval{
		EntityID: entityID,
		Mean:     stats.Mean(sample),
		Interval: ci,
		Samples:  len(sample),
		Resample: e.cfg.BootstrapSamples,
	}, nil
}
