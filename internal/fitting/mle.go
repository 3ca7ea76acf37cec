package fitting

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"avail-risk/internal/riskerr"
)

// unitEdge keeps rescaled Beta samples off the boundaries where the density
// can be infinite.
const unitEdge = 1e-6

func identitySupport(_ Family, sample []float64, _ float64) ([]float64, int, error) {
	return sample, 0, nil
}

func positiveSupport(f Family, sample []float64, _ float64) ([]float64, int, error) {
	kept := make([]float64, 0, len(sample))
	for _, v := range sample {
		if v > 0 {
			kept = append(kept, v)
		}
	}
	dropped := len(sample) - len(kept)
	if len(kept) == 0 {
		return nil, dropped, riskerr.NewFitFailure(f.String(), "no positive values left after filtering %d", dropped)
	}
	return kept, dropped, nil
}

func strictlyPositiveSupport(f Family, sample []float64, _ float64) ([]float64, int, error) {
	for _, v := range sample {
		if v <= 0 {
			return nil, 0, riskerr.NewFitFailure(f.String(), "support requires strictly positive values, got %g", v)
		}
	}
	return sample, 0, nil
}

func unitIntervalSupport(f Family, sample []float64, scale float64) ([]float64, int, error) {
	if scale <= 0 {
		return nil, 0, riskerr.NewFitFailure(f.String(), "invalid rescale bound %g", scale)
	}
	out := make([]float64, len(sample))
	for i, v := range sample {
		y := min(max(v/scale, unitEdge), 1-unitEdge)
		out[i] = y * scale
	}
	return out, 0, nil
}

func fitNormal(sample []float64, _ float64) ([]float64, error) {
	mu, sigma := mleMoments(sample)
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, riskerr.NewFitFailure(Normal.String(), "zero variance")
	}
	return []float64{mu, sigma}, nil
}

func fitLogNormal(sample []float64, _ float64) ([]float64, error) {
	logs := make([]float64, len(sample))
	for i, v := range sample {
		logs[i] = math.Log(v)
	}
	mu, sigma := mleMoments(logs)
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, riskerr.NewFitFailure(LogNormal.String(), "zero variance of log values")
	}
	return []float64{mu, sigma}, nil
}

func fitBeta(sample []float64, scale float64) ([]float64, error) {
	y := rescale(sample, scale)
	m, v := stat.PopMeanVariance(y, nil)
	if !(v > 0) {
		return nil, riskerr.NewFitFailure(Beta.String(), "zero variance")
	}

	a0, b0 := 1.0, 1.0
	if common := m*(1-m)/v - 1; common > 0 {
		a0, b0 = m*common, (1-m)*common
	}

	params, err := maximize(Beta, []float64{a0, b0}, func(p []float64) float64 {
		return logLikelihood(distuv.Beta{Alpha: p[0], Beta: p[1]}, y)
	})
	if err != nil {
		return nil, err
	}
	return []float64{params[0], params[1], scale}, nil
}

func fitWeibull(sample []float64, _ float64) ([]float64, error) {
	peak := slices.Max(sample)
	z := rescale(sample, peak)
	m, sd := stat.MeanStdDev(z, nil)
	if !(sd > 0) {
		return nil, riskerr.NewFitFailure(Weibull.String(), "zero variance")
	}

	k0 := math.Pow(sd/m, -1.086)
	l0 := m / math.Gamma(1+1/k0)

	params, err := maximize(Weibull, []float64{k0, l0}, func(p []float64) float64 {
		return logLikelihood(distuv.Weibull{K: p[0], Lambda: p[1]}, z)
	})
	if err != nil {
		return nil, err
	}
	return []float64{params[0], params[1] * peak}, nil
}

func fitGamma(sample []float64, _ float64) ([]float64, error) {
	peak := slices.Max(sample)
	z := rescale(sample, peak)
	m, v := stat.PopMeanVariance(z, nil)
	if !(v > 0) {
		return nil, riskerr.NewFitFailure(Gamma.String(), "zero variance")
	}

	params, err := maximize(Gamma, []float64{m * m / v, m / v}, func(p []float64) float64 {
		return logLikelihood(distuv.Gamma{Alpha: p[0], Beta: p[1]}, z)
	})
	if err != nil {
		return nil, err
	}
	return []float64{params[0], params[1] / peak}, nil
}

// maximize finds positive parameters maximising logLik with Nelder-Mead,
// searching over the logarithm of each parameter.
func maximize(f Family, start []float64, logLik func(params []float64) float64) ([]float64, error) {
	theta := make([]float64, len(start))
	for i, v := range start {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, riskerr.NewFitFailure(f.String(), "invalid starting point %v", start)
		}
		theta[i] = math.Log(v)
	}

	objective := func(x []float64) float64 {
		params := make([]float64, len(x))
		for i, v := range x {
			params[i] = math.Exp(v)
		}
		ll := logLik(params)
		if math.IsNaN(ll) || math.IsInf(ll, 0) {
			return math.MaxFloat64
		}
		return -ll
	}
	if objective(theta) == math.MaxFloat64 {
		return nil, riskerr.NewFitFailure(f.String(), "log-likelihood undefined at starting point %v", start)
	}

	res, err := optimize.Minimize(
		optimize.Problem{Func: objective},
		theta,
		&optimize.Settings{MajorIterations: 5000},
		&optimize.NelderMead{},
	)
	if err != nil {
		return nil, riskerr.NewFitFailure(f.String(), "optimizer failed: %v", err)
	}
	if res.F == math.MaxFloat64 {
		return nil, riskerr.NewFitFailure(f.String(), "optimizer did not reach a finite likelihood")
	}

	params := make([]float64, len(res.X))
	for i, v := range res.X {
		params[i] = math.Exp(v)
		if !(params[i] > 0) || math.IsInf(params[i], 0) {
			return nil, riskerr.NewFitFailure(f.String(), "parameter %d diverged", i)
		}
	}
	return params, nil
}

// mleMoments returns the mean and the maximum likelihood (n denominator)
// standard deviation.
func mleMoments(values []float64) (mu, sigma float64) {
	mu, variance := stat.PopMeanVariance(values, nil)
	return mu, math.Sqrt(variance)
}

func rescale(values []float64, by float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / by
	}
	return out
}

func logLikelihood(d interface{ LogProb(float64) float64 }, sample []float64) float64 {
	sum := 0.0
	for _, x := range sample {
		sum += d.LogProb(x)
	}
	return sum
}
