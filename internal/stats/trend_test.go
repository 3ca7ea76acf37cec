package stats

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{90, 92, 94, 96}, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Errorf("expected NaN until the window fills, got %v", got)
	}
	if got[2] != 92 || got[3] != 94 {
		t.Errorf("MovingAverage = %v, want [NaN NaN 92 94]", got)
	}

	all := MovingAverage([]float64{1, 2}, 5)
	for _, v := range all {
		if !math.IsNaN(v) {
			t.Errorf("window larger than series must be all NaN, got %v", all)
		}
	}
}

func TestDecompose_RecoversSeasonalPattern(t *testing.T) {
	pattern := []float64{-2, -1, 0, 1, 2, 3, 2, 1, 0, -1, -2, -3}
	series := make([]float64, 36)
	for i := range series {
		series[i] = 95 + pattern[i%12]
	}

	d, err := Decompose(series, 12)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	for i := 6; i < 30; i++ {
		if math.Abs(d.Trend[i]-95) > 1e-9 {
			t.Errorf("Trend[%d] = %v, want 95", i, d.Trend[i])
		}
	}
	if !math.IsNaN(d.Trend[0]) || !math.IsNaN(d.Trend[35]) {
		t.Errorf("trend edges must be NaN")
	}
	for i := 0; i < 36; i++ {
		if math.Abs(d.Seasonal[i]-pattern[i%12]) > 1e-9 {
			t.Errorf("Seasonal[%d] = %v, want %v", i, d.Seasonal[i], pattern[i%12])
		}
	}
}

func TestDecompose_RequiresTwoPeriods(t *testing.T) {
	_, err := Decompose(make([]float64, 23), 12)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestDecomposition_MarshalJSON(t *testing.T) {
	d, err := Decompose([]float64{1, 2, 1, 2, 1, 2}, 2)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(out), "null") {
		t.Errorf("expected NaN edges encoded as null: %s", out)
	}
}
