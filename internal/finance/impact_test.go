package finance

import (
	"errors"
	"math"
	"testing"

	"avail-risk/internal/dataset"
	"avail-risk/internal/riskerr"
)

func scenario() Params {
	return Params{Threshold: 95, PenaltyFactor: 1, BonusFactor: 1, EnergyPrice: 100, EnergyExposure: 1000}
}

func TestCompute_PenaltyScenario(t *testing.T) {
	calc := NewCalculator(dataset.BoundFor(dataset.Percent))

	out, err := calc.Compute("X", 2023, 90, scenario())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if got := out.PenaltyAmount.StringFixed(2); got != "5555.56" {
		t.Errorf("PenaltyAmount = %s, want 5555.56", got)
	}
	if !out.BonusAmount.IsZero() {
		t.Errorf("BonusAmount = %s, want 0", out.BonusAmount)
	}
	if out.Delta != -5 {
		t.Errorf("Delta = %v, want -5", out.Delta)
	}
	if math.Abs(out.EnergyDeltaMWh-50) > 1e-9 {
		t.Errorf("EnergyDeltaMWh = %v, want 50", out.EnergyDeltaMWh)
	}
}

func TestCompute_Bonus(t *testing.T) {
	calc := NewCalculator(dataset.BoundFor(dataset.Percent))

	out, err := calc.Compute("X", 2023, 97, scenario())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// 100 * 1000 * (97/95 - 1) = 2105.263...
	if got := out.BonusAmount.StringFixed(2); got != "2105.26" {
		t.Errorf("BonusAmount = %s, want 2105.26", got)
	}
	if !out.PenaltyAmount.IsZero() {
		t.Errorf("PenaltyAmount = %s, want 0", out.PenaltyAmount)
	}
}

func TestFees_MutuallyExclusive(t *testing.T) {
	calc := NewCalculator(dataset.BoundFor(dataset.Percent))
	p := scenario()

	for a := 1.0; a <= 100; a += 0.5 {
		penalty, bonus, err := calc.Fees(a, p)
		if err != nil {
			t.Fatalf("Fees(%v) failed: %v", a, err)
		}
		if penalty != 0 && bonus != 0 {
			t.Errorf("a=%v: penalty %v and bonus %v both non-zero", a, penalty, bonus)
		}
		if penalty < 0 || bonus < 0 {
			t.Errorf("a=%v: negative fee (%v, %v)", a, penalty, bonus)
		}
	}
}

func TestFees_ContinuousAtThreshold(t *testing.T) {
	calc := NewCalculator(dataset.BoundFor(dataset.Percent))
	p := scenario()

	prevPenalty, prevBonus := math.Inf(1), math.Inf(1)
	for _, eps := range []float64{1, 0.1, 0.01, 0.001, 1e-6} {
		penalty, _, _ := calc.Fees(p.Threshold-eps, p)
		_, bonus, _ := calc.Fees(p.Threshold+eps, p)
		if penalty >= prevPenalty || bonus >= prevBonus {
			t.Errorf("fees must shrink as a approaches c (eps=%v)", eps)
		}
		prevPenalty, prevBonus = penalty, bonus
	}
	if prevPenalty > 1e-2 || prevBonus > 1e-2 {
		t.Errorf("fees near the threshold should vanish, got %v / %v", prevPenalty, prevBonus)
	}

	penalty, bonus, _ := calc.Fees(p.Threshold, p)
	if penalty != 0 || bonus != 0 {
		t.Errorf("fees at the threshold = (%v, %v), want zero", penalty, bonus)
	}
}

func TestCompute_NonPositiveAvailability(t *testing.T) {
	calc := NewCalculator(dataset.BoundFor(dataset.Percent))

	for _, a := range []float64{0, -3} {
		_, err := calc.Compute("X", 2023, a, scenario())
		if !errors.Is(err, riskerr.ErrDivision) {
			t.Errorf("a=%v: expected DivisionError, got %v", a, err)
		}
		var div *riskerr.DivisionError
		if !errors.As(err, &div) || div.Value != a {
			t.Errorf("a=%v: DivisionError should carry the value, got %v", a, err)
		}
	}
}

func TestCompute_InvalidInput(t *testing.T) {
	calc := NewCalculator(dataset.BoundFor(dataset.Percent))

	tests := []struct {
		name string
		a    float64
		p    Params
	}{
		{"ZeroThreshold", 90, Params{Threshold: 0, EnergyPrice: 100, EnergyExposure: 10}},
		{"NegativePenaltyFactor", 90, Params{Threshold: 95, PenaltyFactor: -1}},
		{"NegativeExposure", 90, Params{Threshold: 95, EnergyExposure: -1}},
		{"AboveBound", 101, scenario()},
		{"NaN", math.NaN(), scenario()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Compute("X", 2023, tt.a, tt.p)
			if !errors.Is(err, riskerr.ErrInput) {
				t.Errorf("expected InputError, got %v", err)
			}
		})
	}
}

func TestPenalty_FractionScale(t *testing.T) {
	calc := NewCalculator(dataset.BoundFor(dataset.Fraction))
	p := Params{Threshold: 0.95, PenaltyFactor: 1, EnergyPrice: 100, EnergyExposure: 1000}

	got, err := calc.Penalty(0.90, p)
	if err != nil {
		t.Fatalf("Penalty failed: %v", err)
	}
	if math.Abs(got-5555.5555) > 1e-2 {
		t.Errorf("Penalty = %v, want ~5555.56", got)
	}
	if d := calc.EnergyDelta(0.90, p); math.Abs(d-50) > 1e-9 {
		t.Errorf("EnergyDelta = %v, want 50", d)
	}
}

func TestCompute_ThresholdOutsideScale(t *testing.T) {
	tests := []struct {
		name      string
		scale     dataset.Scale
		threshold float64
	}{
		{"PercentThresholdOnFractionScale", dataset.Fraction, 95},
		{"AboveHundred", dataset.Percent, 101},
		{"NegativeOnFraction", dataset.Fraction, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculator(dataset.BoundFor(tt.scale))
			p := scenario()
			p.Threshold = tt.threshold
			if _, err := calc.Compute("X", 2023, 0.97, p); !errors.Is(err, riskerr.ErrInput) {
				t.Errorf("expected InputError, got %v", err)
			}
		})
	}

	calc := NewCalculator(dataset.BoundFor(dataset.Fraction))
	p := scenario()
	p.Threshold = 1
	if err := calc.Validate(p); err != nil {
		t.Errorf("threshold at the scale maximum should be accepted, got %v", err)
	}
}

func TestEnergyExposure(t *testing.T) {
	if got := EnergyExposure(10, 20, 30); got != 6000 {
		t.Errorf("EnergyExposure = %v, want 6000", got)
	}
	if got := AnnualExposure(2, 10); got != 7300 {
		t.Errorf("AnnualExposure = %v, want 7300", got)
	}
}
