// Package fitting selects a probability model for a sample of availability
// values. Each parametric family is described by a descriptor; a single
// fit-and-score routine drives all of them.
package fitting

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Family identifies a distribution family.
type Family int

const (
	Normal Family = iota
	LogNormal
	Beta
	Weibull
	Gamma
	Empirical
)

// Candidates is the default ordered candidate set.
var Candidates = []Family{Normal, LogNormal, Beta, Weibull, Gamma}

var familyNames = map[Family]string{
	Normal:    "Normal",
	LogNormal: "LogNormal",
	Beta:      "Beta",
	Weibull:   "Weibull",
	Gamma:     "Gamma",
	Empirical: "Empirical",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// MarshalText encodes the family by name.
func (f Family) MarshalText() ([]byte, error) {
	if _, ok := familyNames[f]; !ok {
		return nil, fmt.Errorf("unknown family %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText decodes a family name, case-insensitively.
func (f *Family) UnmarshalText(text []byte) error {
	parsed, err := ParseFamily(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFamily resolves a family name, case-insensitively.
func ParseFamily(name string) (Family, error) {
	for f, n := range familyNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown distribution family %q", name)
}

// Distribution is the subset of a univariate distribution the engine needs.
type Distribution interface {
	CDF(x float64) float64
	LogProb(x float64) float64
	Rand() float64
}

// descriptor carries everything the generic fit routine needs for a family.
type descriptor struct {
	// params is the length of the parameter vector; free is how many of
	// them are estimated from the data (AIC k).
	params, free int
	// support adapts the sample to the family's domain. It returns the
	// adapted sample and the number of values dropped.
	support func(f Family, sample []float64, scale float64) ([]float64, int, error)
	// estimate returns maximum likelihood parameters for an adapted sample.
	estimate func(sample []float64, scale float64) ([]float64, error)
	// build returns the distribution for a parameter vector.
	build func(params []float64, src rand.Source) Distribution
}

var descriptors = map[Family]descriptor{
	Normal: {
		params:   2,
		free:     2,
		support:  identitySupport,
		estimate: fitNormal,
		build: func(p []float64, src rand.Source) Distribution {
			return distuv.Normal{Mu: p[0], Sigma: p[1], Src: src}
		},
	},
	LogNormal: {
		params:   2,
		free:     2,
		support:  positiveSupport,
		estimate: fitLogNormal,
		build: func(p []float64, src rand.Source) Distribution {
			return distuv.LogNormal{Mu: p[0], Sigma: p[1], Src: src}
		},
	},
	Beta: {
		params:   3,
		free:     2,
		support:  unitIntervalSupport,
		estimate: fitBeta,
		build: func(p []float64, src rand.Source) Distribution {
			return scaled{
				dist:  distuv.Beta{Alpha: p[0], Beta: p[1], Src: src},
				scale: p[2],
			}
		},
	},
	Weibull: {
		params:   2,
		free:     2,
		support:  strictlyPositiveSupport,
		estimate: fitWeibull,
		build: func(p []float64, src rand.Source) Distribution {
			return distuv.Weibull{K: p[0], Lambda: p[1], Src: src}
		},
	},
	Gamma: {
		params:   2,
		free:     2,
		support:  strictlyPositiveSupport,
		estimate: fitGamma,
		build: func(p []float64, src rand.Source) Distribution {
			return distuv.Gamma{Alpha: p[0], Beta: p[1], Src: src}
		},
	},
}

// Build returns the distribution of a parametric family. A nil src uses the
// global generator.
func Build(f Family, params []float64, src rand.Source) (Distribution, error) {
	d, ok := descriptors[f]
	if !ok {
		return nil, fmt.Errorf("family %s has no parametric form", f)
	}
	if len(params) != d.params {
		return nil, fmt.Errorf("family %s expects %d parameters, got %d", f, d.params, len(params))
	}
	return d.build(params, src), nil
}

// scaled is the distribution of scale*Y.
type scaled struct {
	dist  Distribution
	scale float64
}

func (s scaled) CDF(x float64) float64 { return s.dist.CDF(x / s.scale) }

func (s scaled) LogProb(x float64) float64 {
	return s.dist.LogProb(x/s.scale) - math.Log(s.scale)
}

func (s scaled) Rand() float64 { return s.scale * s.dist.Rand() }
