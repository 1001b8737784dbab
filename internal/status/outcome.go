// Package status produces the three-field DBT status outcome for a check and
// paces its reveal.
//
// The outcome comes from a Verifier. SimulatedVerifier draws from a fixed
// weighted scenario table and never looks at the identity number;
// RegistryVerifier asks a real verification backend.
package status

import (
	"fmt"
	"math/rand/v2"
)

// Field names one of the three status checks, in reveal order.
type Field string

const (
	FieldIdentityLinked  Field = "aadhaar_linked"
	FieldTransferEnabled Field = "dbt_enabled"
	FieldMappingComplete Field = "npci_mapped"
)

// Fields lists the checks in the order they are revealed.
var Fields = []Field{FieldIdentityLinked, FieldTransferEnabled, FieldMappingComplete}

// Outcome is the joint result of one check.
type Outcome struct {
	IdentityLinked  bool `json:"aadhaar_linked"`
	TransferEnabled bool `json:"dbt_enabled"`
	MappingComplete bool `json:"npci_mapped"`
}

// Value returns the boolean for f.
func (o Outcome) Value(f Field) bool {
	switch f {
	case FieldIdentityLinked:
		return o.IdentityLinked
	case FieldTransferEnabled:
		return o.TransferEnabled
	case FieldMappingComplete:
		return o.MappingComplete
	default:
		return false
	}
}

// Passed counts the true fields.
func (o Outcome) Passed() int {
	n := 0
	for _, f := range Fields {
		if o.Value(f) {
			n++
		}
	}
	return n
}

// Scenario is one weighted row of the outcome table.
type Scenario struct {
	Outcome Outcome
	Weight  int
}

// Scenarios is the demo distribution. Order matters for sampling.
var Scenarios = []Scenario{
	{Outcome: Outcome{true, true, true}, Weight: 25},
	{Outcome: Outcome{true, true, false}, Weight: 35},
	{Outcome: Outcome{true, false, false}, Weight: 25},
	{Outcome: Outcome{false, false, false}, Weight: 15},
}

// ValidateTable requires a non-empty table of positive weights summing to 100.
func ValidateTable(table []Scenario) error {
	if len(table) == 0 {
		return fmt.Errorf("scenario table is empty")
	}
	total := 0
	for i, s := range table {
		if s.Weight <= 0 {
			return fmt.Errorf("scenario %d: weight must be positive, got %d", i, s.Weight)
		}
		total += s.Weight
	}
	if total != 100 {
		return fmt.Errorf("scenario weights must sum to 100, got %d", total)
	}
	return nil
}

// RandomSource yields uniform floats in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// globalSource uses the concurrency-safe top-level generator.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Sampler draws outcomes from a validated scenario table.
type Sampler struct {
	table []Scenario
	src   RandomSource
}

// NewSampler validates table and binds it to src. A nil src uses the
// process-wide generator.
func NewSampler(table []Scenario, src RandomSource) (*Sampler, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	if src == nil {
		src = globalSource{}
	}
	return &Sampler{table: append([]Scenario(nil), table...), src: src}, nil
}

// Draw picks the first scenario whose cumulative weight reaches r, with r
// uniform in [0,100).
func (s *Sampler) Draw() Outcome {
	r := s.src.Float64() * 100
	cumulative := 0
	for _, sc := range s.table {
		cumulative += sc.Weight
		if float64(cumulative) >= r {
			return sc.Outcome
		}
	}
	return s.table[len(s.table)-1].Outcome
}
