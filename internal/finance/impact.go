// Package finance converts availability deviations from a contractual
// threshold into penalty and bonus amounts.
package finance

import (
	"math"

	"github.com/shopspring/decimal"

	"avail-risk/internal/dataset"
	"avail-risk/internal/riskerr"
)

// DaysPerYear is the period length used for annual energy exposure.
const DaysPerYear = 365

// Params are the contractual and market inputs of the fee formula.
type Params struct {
	Threshold      float64 `json:"threshold"`
	PenaltyFactor  float64 `json:"penalty_factor"`
	BonusFactor    float64 `json:"bonus_factor"`
	EnergyPrice    float64 `json:"energy_price_per_mwh"`
	EnergyExposure float64 `json:"energy_exposure_mwh"` // e_total
}

// Validate rejects parameters the formula cannot be applied to.
func (p Params) Validate() error {
	switch {
	case !(p.Threshold > 0) || math.IsInf(p.Threshold, 0):
		return riskerr.NewInput("threshold", "must be positive, got %g", p.Threshold)
	case !(p.PenaltyFactor >= 0):
		return riskerr.NewInput("penalty_factor", "must not be negative, got %g", p.PenaltyFactor)
	case !(p.BonusFactor >= 0):
		return riskerr.NewInput("bonus_factor", "must not be negative, got %g", p.BonusFactor)
	case !(p.EnergyPrice >= 0):
		return riskerr.NewInput("energy_price_per_mwh", "must not be negative, got %g", p.EnergyPrice)
	case !(p.EnergyExposure >= 0):
		return riskerr.NewInput("energy_exposure_mwh", "must not be negative, got %g", p.EnergyExposure)
	}
	return nil
}

// WithExposure returns a copy of p with a different energy exposure.
func (p Params) WithExposure(mwh float64) Params {
	p.EnergyExposure = mwh
	return p
}

// Outcome is the monetary result for one entity and year. At most one of
// PenaltyAmount and BonusAmount is non-zero.
type Outcome struct {
	EntityID          string          `json:"entity_id"`
	Year              int             `json:"year"`
	AvailabilityMean  float64         `json:"availability_mean"`
	Threshold         float64         `json:"threshold"`
	Delta             float64         `json:"delta"`
	PenaltyAmount     decimal.Decimal `json:"penalty_amount"`
	BonusAmount       decimal.Decimal `json:"bonus_amount"`
	EnergyDeltaMWh    float64         `json:"energy_delta_mwh"`
	EnergyExposureMWh float64         `json:"energy_exposure_mwh"`
}

// Calculator applies the fee formula on a fixed availability scale.
type Calculator struct {
	bound dataset.Bound
}

func NewCalculator(bound dataset.Bound) *Calculator {
	return &Calculator{bound: bound}
}

// Validate checks p and requires its threshold to lie in (Min, Max] of the
// calculator's scale.
func (c *Calculator) Validate(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !(p.Threshold > c.bound.Min && p.Threshold <= c.bound.Max) {
		return riskerr.NewInput("threshold", "%g outside (%g, %g] of the availability scale", p.Threshold, c.bound.Min, c.bound.Max)
	}
	return nil
}

// Fees returns the penalty and bonus for mean availability a. Exactly one
// branch applies:
//
//	a <  c: penalty = fp * pmd * e_total * (c/a - 1)
//	a >= c: bonus   = fb * pmd * e_total * (a/c - 1)
//
// A non-positive a is a DivisionError. Params are not validated here.
func (c *Calculator) Fees(a float64, p Params) (penalty, bonus float64, err error) {
	if !(a > 0) {
		return 0, 0, &riskerr.DivisionError{Value: a}
	}
	if a < p.Threshold {
		return p.PenaltyFactor * p.EnergyPrice * p.EnergyExposure * (p.Threshold/a - 1), 0, nil
	}
	return 0, p.BonusFactor * p.EnergyPrice * p.EnergyExposure * (a/p.Threshold - 1), nil
}

// Penalty is the allocation-free path used inside simulation loops.
func (c *Calculator) Penalty(a float64, p Params) (float64, error) {
	penalty, _, err := c.Fees(a, p)
	return penalty, err
}

// EnergyDelta is the energy, in MWh, corresponding to the deviation of a
// from the threshold.
func (c *Calculator) EnergyDelta(a float64, p Params) float64 {
	return math.Abs(a-p.Threshold) / c.bound.Max * p.EnergyExposure
}

// Compute builds the outcome of entityID for year at mean availability a.
func (c *Calculator) Compute(entityID string, year int, a float64, p Params) (Outcome, error) {
	if err := c.Validate(p); err != nil {
		return Outcome{}, err
	}
	if math.IsNaN(a) || a > c.bound.Max {
		return Outcome{}, riskerr.NewInput("availability_mean", "%g outside [%g, %g]", a, c.bound.Min, c.bound.Max)
	}

	penalty, bonus, err := c.Fees(a, p)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		EntityID:          entityID,
		Year:              year,
		AvailabilityMean:  a,
		Threshold:         p.Threshold,
		Delta:             a - p.Threshold,
		PenaltyAmount:     money(penalty),
		BonusAmount:       money(bonus),
		EnergyDeltaMWh:    c.EnergyDelta(a, p),
		EnergyExposureMWh: p.EnergyExposure,
	}, nil
}

// EnergyExposure is turbines x energy per turbine per day x days, in MWh.
func EnergyExposure(turbines int, perTurbinePerDay float64, days int) float64 {
	return float64(turbines) * perTurbinePerDay * float64(days)
}

// AnnualExposure is EnergyExposure over DaysPerYear.
func AnnualExposure(turbines int, perTurbinePerDay float64) float64 {
	return EnergyExposure(turbines, perTurbinePerDay, DaysPerYear)
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
