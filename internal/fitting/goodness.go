package fitting

import (
	"math"
	"slices"
)

// GoodnessOfFit scores a fitted candidate against its sample.
type GoodnessOfFit struct {
	KSStatistic   float64 `json:"ks_statistic"`
	PValue        float64 `json:"p_value"`
	AIC           float64 `json:"aic"`
	LogLikelihood float64 `json:"log_likelihood"`
}

func score(d Distribution, sample []float64, free int) GoodnessOfFit {
	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	stat := ksStatistic(sorted, d.CDF)
	ll := logLikelihood(d, sample)
	return GoodnessOfFit{
		KSStatistic:   stat,
		PValue:        ksPValue(stat, len(sorted)),
		AIC:           2*float64(free) - 2*ll,
		LogLikelihood: ll,
	}
}

// ksStatistic returns the one-sample Kolmogorov-Smirnov statistic D of a
// sorted sample against cdf.
func ksStatistic(sorted []float64, cdf func(float64) float64) float64 {
	n := float64(len(sorted))
	d := 0.0
	for i, x := range sorted {
		f := cdf(x)
		d = max(d, f-float64(i)/n, float64(i+1)/n-f)
	}
	return d
}

// ksPValue is the asymptotic Kolmogorov tail probability with Stephens'
// small-sample correction of the statistic.
func ksPValue(d float64, n int) float64 {
	if n == 0 || math.IsNaN(d) {
		return 0
	}
	sn := math.Sqrt(float64(n))
	return kolmogorovQ((sn + 0.12 + 0.11/sn) * d)
}

// kolmogorovQ returns P(K > lambda) for the Kolmogorov distribution.
func kolmogorovQ(lambda float64) float64 {
	if lambda < 0.2 {
		return 1
	}

	sum := 0.0
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	return min(max(2*sum, 0), 1)
}
