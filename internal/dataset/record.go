package dataset

import (
	"fmt"
	"math"

	"avail-risk/internal/riskerr"
)

// Scale selects the unit availability values are expressed in.
type Scale string

const (
	// Percent expresses availability in [0, 100].
	Percent Scale = "percent"
	// Fraction expresses availability in [0, 1].
	Fraction Scale = "fraction"
)

// Bound is the declared physical range of availability values. It is chosen
// once per engine and applied consistently by every stage.
type Bound struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// BoundFor returns the bound for a scale. Unknown scales fall back to Percent.
func BoundFor(s Scale) Bound {
	if s == Fraction {
		return Bound{Min: 0, Max: 1}
	}
	return Bound{Min: 0, Max: 100}
}

// Contains reports whether v is a finite value within the bound.
func (b Bound) Contains(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= b.Min && v <= b.Max
}

// Clip clamps v into the bound.
func (b Bound) Clip(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Record is one monthly availability observation for an entity (wind farm).
type Record struct {
	// EntityID identifies the wind farm.
	EntityID string `json:"entity_id"`
	// Year and Month locate the observation (Month is 1-12).
	Year  int `json:"year"`
	Month int `json:"month"`
	// TurbineCount is the number of WTGs in the entity for the period.
	TurbineCount int `json:"turbine_count"`
	// Availability is nil when the observation is missing.
	Availability *float64 `json:"availability"`
}

// Value returns the availability and whether it is present.
func (r Record) Value() (float64, bool) {
	if r.Availability == nil || math.IsNaN(*r.Availability) {
		return 0, false
	}
	return *r.Availability, true
}

// Validate checks the fields the upstream collaborator guarantees. A missing
// availability is accepted; a present one must lie within the bound.
func (r Record) Validate(b Bound) error {
	if r.EntityID == "" {
		return riskerr.NewInput("entity_id", "is required")
	}
	if r.TurbineCount <= 0 {
		return riskerr.NewInput("turbine_count", "must be positive, got %d (entity %s)", r.TurbineCount, r.EntityID)
	}
	if r.Year <= 0 {
		return riskerr.NewInput("year", "must be positive, got %d (entity %s)", r.Year, r.EntityID)
	}
	if r.Month < 1 || r.Month > 12 {
		return riskerr.NewInput("month", "must be within 1-12, got %d (entity %s)", r.Month, r.EntityID)
	}
	if v, ok := r.Value(); ok && !b.Contains(v) {
		return riskerr.NewInput("availability", "%g outside [%g, %g] (entity %s %04d-%02d)", v, b.Min, b.Max, r.EntityID, r.Year, r.Month)
	}
	return nil
}

// identity keys a record by entity and period for deduplication.
func (r Record) identity() string {
	return fmt.Sprintf("%s|%04d|%02d", r.EntityID, r.Year, r.Month)
}

// period orders records chronologically.
func (r Record) period() int {
	return r.Year*12 + (r.Month - 1)
}

// Float returns a pointer to v, for building records.
func Float(v float64) *float64 {
	return &v
}
