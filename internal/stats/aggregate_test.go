package stats

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"avail-risk/internal/dataset"
)

func monthly(entity string, year int, values ...float64) []dataset.Record {
	records := make([]dataset.Record, len(values))
	for i, v := range values {
		records[i] = dataset.Record{EntityID: entity, Year: year, Month: i + 1, TurbineCount: 12, Availability: dataset.Float(v)}
	}
	return records
}

func TestAggregateStats_SingleYear(t *testing.T) {
	records := monthly("X", 2023, 90, 91, 92, 93, 94, 95, 96, 97, 98, 99, 100, 85)

	got := AggregateStats(records, dataset.BoundFor(dataset.Percent))
	if len(got) != 1 {
		t.Fatalf("expected 1 year, got %d", len(got))
	}

	s := got[0]
	if math.Abs(s.Mean-94.16666666666667) > 1e-9 {
		t.Errorf("Mean = %v, want 94.1666...", s.Mean)
	}
	if s.SampleCount != 12 {
		t.Errorf("SampleCount = %d, want 12", s.SampleCount)
	}
	if s.Median != 94.5 {
		t.Errorf("Median = %v, want 94.5", s.Median)
	}
	if s.EntityID != "X" || s.Year != 2023 || s.TurbineCount != 12 {
		t.Errorf("unexpected identity fields: %+v", s)
	}
	if math.IsNaN(s.SampleStdDev) || s.SampleStdDev <= 0 {
		t.Errorf("expected a positive sample std, got %v", s.SampleStdDev)
	}
}

func TestAggregateStats_SkipsInvalidAndOmitsEmptyYears(t *testing.T) {
	records := monthly("X", 2021, 96)
	records = append(records, dataset.Record{EntityID: "X", Year: 2022, Month: 1, TurbineCount: 12})
	records = append(records, dataset.Record{EntityID: "X", Year: 2022, Month: 2, TurbineCount: 12, Availability: dataset.Float(math.NaN())})
	records = append(records, monthly("X", 2023, 92, 94)...)
	records = append(records, dataset.Record{EntityID: "X", Year: 2023, Month: 3, TurbineCount: 12, Availability: dataset.Float(140)})

	got := AggregateStats(records, dataset.BoundFor(dataset.Percent))
	if len(got) != 2 {
		t.Fatalf("expected 2 years (2022 omitted), got %d: %+v", len(got), got)
	}
	if got[0].Year != 2021 || got[1].Year != 2023 {
		t.Errorf("unexpected years: %d, %d", got[0].Year, got[1].Year)
	}
	if !math.IsNaN(got[0].SampleStdDev) {
		t.Errorf("single sample year must have NaN std, got %v", got[0].SampleStdDev)
	}
	if got[1].SampleCount != 2 || got[1].Mean != 93 {
		t.Errorf("out-of-bound record must be ignored: %+v", got[1])
	}
}

func TestAggregateStats_OrderedByYear(t *testing.T) {
	records := append(monthly("X", 2024, 95), monthly("X", 2020, 93)...)
	got := AggregateStats(records, dataset.BoundFor(dataset.Percent))
	if len(got) != 2 || got[0].Year != 2020 || got[1].Year != 2024 {
		t.Errorf("expected years sorted ascending, got %+v", got)
	}
	means := AnnualMeans(got)
	if means[0] != 93 || means[1] != 95 {
		t.Errorf("AnnualMeans = %v", means)
	}
}

func TestEntityYearStat_MarshalNaNAsNull(t *testing.T) {
	out, err := json.Marshal(EntityYearStat{EntityID: "X", Year: 2023, Mean: 90, SampleStdDev: math.NaN(), Median: 90, SampleCount: 1})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(out), `"sample_std":null`) {
		t.Errorf("expected null sample_std, got %s", out)
	}
}

func TestMonthlySeries_FillsGaps(t *testing.T) {
	records := []dataset.Record{
		{EntityID: "X", Year: 2022, Month: 11, TurbineCount: 1, Availability: dataset.Float(90)},
		{EntityID: "X", Year: 2023, Month: 2, TurbineCount: 1, Availability: dataset.Float(93)},
	}
	year, month, series := MonthlySeries(records, dataset.BoundFor(dataset.Percent))
	if year != 2022 || month != 11 {
		t.Errorf("start = %d-%02d, want 2022-11", year, month)
	}
	if len(series) != 4 {
		t.Fatalf("expected 4 months, got %d", len(series))
	}
	if series[0] != 90 || series[3] != 93 || !math.IsNaN(series[1]) || !math.IsNaN(series[2]) {
		t.Errorf("unexpected series %v", series)
	}
}

func TestPooledSample(t *testing.T) {
	records := append(monthly("X", 2022, 90, 91), monthly("X", 2023, 92)...)
	records = append(records, dataset.Record{EntityID: "X", Year: 2023, Month: 2, TurbineCount: 1})
	got := PooledSample(records, dataset.BoundFor(dataset.Percent))
	if len(got) != 3 || got[2] != 92 {
		t.Errorf("PooledSample = %v", got)
	}
}
