package fitting

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog/log"

	"avail-risk/internal/dataset"
	"avail-risk/internal/riskerr"
	"avail-risk/internal/stats"
)

// DefaultAcceptance is the minimum KS p-value for a parametric model to be used.
const DefaultAcceptance = 0.05

// Confidence tags attached to a fitted distribution.
const (
	TagHigh     = "high"
	TagMedium   = "medium"
	TagFallback = "low (empirical fallback)"
)

// highConfidence is the p-value from which an accepted fit is tagged high.
const highConfidence = 0.10

// Outcome distinguishes an accepted parametric model from the empirical
// fallback.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeFallback Outcome = "fallback"
)

// CandidateReport records how one family fared on the sample.
type CandidateReport struct {
	Family        Family         `json:"family"`
	Parameters    []float64      `json:"parameters,omitempty"`
	GoodnessOfFit *GoodnessOfFit `json:"goodness_of_fit,omitempty"`
	Failure       string         `json:"failure,omitempty"`
	Err           error          `json:"-"`
}

// Succeeded reports whether the family was fitted and scored.
func (c CandidateReport) Succeeded() bool { return c.Err == nil }

// FittedDistribution is the model selected for a sample. Parameters are only
// set for an accepted parametric fit; an Empirical result carries the sample
// instead.
type FittedDistribution struct {
	EntityID      string            `json:"entity_id,omitempty"`
	Family        Family            `json:"family"`
	Parameters    []float64         `json:"parameters,omitempty"`
	GoodnessOfFit *GoodnessOfFit    `json:"goodness_of_fit,omitempty"`
	ConfidenceTag string            `json:"confidence_tag"`
	Outcome       Outcome           `json:"outcome"`
	Candidates    []CandidateReport `json:"candidates"`
	Sample        []float64         `json:"sample,omitempty"`
	FilteredCount int               `json:"filtered_count"` // Non-positive values dropped for LogNormal
}

// IsEmpirical reports whether no parametric model was accepted.
func (fd *FittedDistribution) IsEmpirical() bool { return fd.Family == Empirical }

// Distribution returns the parametric distribution drawing from src.
func (fd *FittedDistribution) Distribution(src rand.Source) (Distribution, error) {
	return Build(fd.Family, fd.Parameters, src)
}

// Fitter selects the best distribution family for a sample.
type Fitter struct {
	Bound      dataset.Bound
	Acceptance float64
	Families   []Family
}

// NewFitter returns a fitter over the default candidate set. A non-positive
// acceptance selects DefaultAcceptance.
func NewFitter(bound dataset.Bound, acceptance float64) *Fitter {
	if acceptance <= 0 {
		acceptance = DefaultAcceptance
	}
	return &Fitter{
		Bound:      bound,
		Acceptance: acceptance,
		Families:   slices.Clone(Candidates),
	}
}

// Fit scores every candidate family on sample and selects the one with the
// highest KS p-value, breaking ties by lower AIC. When no candidate fits or
// the best p-value is below the acceptance level the result falls back to
// the empirical distribution of the sample. Only an empty or out-of-bound
// sample is an error.
func (f *Fitter) Fit(sample []float64) (*FittedDistribution, error) {
	if len(sample) == 0 {
		return nil, riskerr.NewInput("sample", "must not be empty")
	}
	for i, v := range sample {
		if math.IsNaN(v) || !f.Bound.Contains(v) {
			return nil, riskerr.NewInput("sample", "value %d (%g) outside [%g, %g]", i, v, f.Bound.Min, f.Bound.Max)
		}
	}

	result := &FittedDistribution{Candidates: make([]CandidateReport, 0, len(f.Families))}
	best := -1
	for _, family := range f.Families {
		report, filtered := f.fitFamily(family, sample)
		if family == LogNormal {
			result.FilteredCount = filtered
		}
		result.Candidates = append(result.Candidates, report)
		if !report.Succeeded() {
			log.Debug().Str("family", family.String()).Err(report.Err).Msg("Candidate rejected")
			continue
		}
		if best < 0 || better(report.GoodnessOfFit, result.Candidates[best].GoodnessOfFit) {
			best = len(result.Candidates) - 1
		}
	}

	if best < 0 || result.Candidates[best].GoodnessOfFit.PValue < f.Acceptance {
		result.Family = Empirical
		result.ConfidenceTag = TagFallback
		result.Outcome = OutcomeFallback
		result.Sample = slices.Clone(sample)
		log.Debug().Int("samples", len(sample)).Msg("No parametric fit accepted, using empirical distribution")
		return result, nil
	}

	chosen := result.Candidates[best]
	result.Family = chosen.Family
	result.Parameters = slices.Clone(chosen.Parameters)
	gof := *chosen.GoodnessOfFit
	result.GoodnessOfFit = &gof
	result.Outcome = OutcomeAccepted
	result.ConfidenceTag = TagMedium
	if gof.PValue >= highConfidence {
		result.ConfidenceTag = TagHigh
	}

	log.Debug().
		Str("family", chosen.Family.String()).
		Float64("p_value", gof.PValue).
		Float64("aic", gof.AIC).
		Msg("Distribution selected")
	return result, nil
}

// fitFamily is the generic fit-and-score routine. It also returns the number
// of values the family's support filter dropped.
func (f *Fitter) fitFamily(family Family, sample []float64) (CandidateReport, int) {
	report := CandidateReport{Family: family}
	fail := func(err error) CandidateReport {
		report.Err = err
		report.Failure = err.Error()
		return report
	}

	d, ok := descriptors[family]
	if !ok {
		return fail(riskerr.NewFitFailure(family.String(), "no parametric form")), 0
	}

	adapted, dropped, err := d.support(family, sample, f.Bound.Max)
	if err != nil {
		return fail(err), dropped
	}
	if stats.DistinctCount(adapted) < 2 {
		return fail(riskerr.NewFitFailure(family.String(), "degenerate sample: fewer than 2 distinct values")), dropped
	}

	params, err := d.estimate(adapted, f.Bound.Max)
	if err != nil {
		return fail(err), dropped
	}

	gof := score(d.build(params, nil), adapted, d.free)
	if math.IsNaN(gof.PValue) || math.IsNaN(gof.AIC) || math.IsInf(gof.AIC, 0) {
		return fail(riskerr.NewFitFailure(family.String(), "non-finite goodness of fit")), dropped
	}

	report.Parameters = params
	report.GoodnessOfFit = &gof
	return report, dropped
}

// better reports whether a beats b: higher p-value, then lower AIC.
func better(a, b *GoodnessOfFit) bool {
	if a.PValue != b.PValue {
		return a.PValue > b.PValue
	}
	return a.AIC < b.AIC
}
