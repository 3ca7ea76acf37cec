package fitting

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"
)

func TestParseFamily(t *testing.T) {
	tests := []struct {
		in   string
		want Family
	}{
		{"Normal", Normal},
		{"lognormal", LogNormal},
		{" BETA ", Beta},
		{"weibull", Weibull},
		{"Gamma", Gamma},
		{"empirical", Empirical},
	}
	for _, tt := range tests {
		got, err := ParseFamily(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFamily(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFamily("cauchy"); err == nil {
		t.Errorf("expected an error for an unknown family")
	}
}

func TestFamily_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		F Family `json:"f"`
	}{Weibull})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `{"f":"Weibull"}` {
		t.Errorf("got %s", out)
	}

	var decoded struct {
		F Family `json:"f"`
	}
	if err := json.Unmarshal([]byte(`{"f":"gamma"}`), &decoded); err != nil || decoded.F != Gamma {
		t.Errorf("Unmarshal = %v, %v; want Gamma", decoded.F, err)
	}
}

func TestBuild(t *testing.T) {
	if _, err := Build(Empirical, nil, nil); err == nil {
		t.Errorf("Empirical must not build a parametric distribution")
	}
	if _, err := Build(Beta, []float64{2, 2}, nil); err == nil {
		t.Errorf("Beta without a scale must be rejected")
	}

	d, err := Build(Beta, []float64{2, 2, 100}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := d.CDF(50); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("scaled Beta(2,2) CDF(50) = %v, want 0.5", got)
	}
	// density of Beta(2,2) at 0.5 is 1.5; scaled by 100 it is 0.015.
	if got := math.Exp(d.LogProb(50)); math.Abs(got-0.015) > 1e-9 {
		t.Errorf("scaled Beta density = %v, want 0.015", got)
	}

	src := rand.NewPCG(1, 2)
	d, _ = Build(Beta, []float64{2, 2, 100}, src)
	for i := 0; i < 100; i++ {
		if v := d.Rand(); v < 0 || v > 100 {
			t.Fatalf("scaled Beta draw %v outside [0, 100]", v)
		}
	}
}

func TestBuild_SameSourceSameDraws(t *testing.T) {
	a, _ := Build(Normal, []float64{95, 1}, rand.NewPCG(9, 9))
	b, _ := Build(Normal, []float64{95, 1}, rand.NewPCG(9, 9))
	for i := 0; i < 10; i++ {
		if x, y := a.Rand(), b.Rand(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}
