package intake

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/lca-intake/internal/units"
)

// RowInput is a partial update of a row's raw field strings.
// Nil fields are left unchanged.
type RowInput struct {
	Component      *string `json:"component,omitempty" yaml:"component,omitempty"`
	MassInputValue *string `json:"mass_input_value,omitempty" yaml:"mass_input_value,omitempty"`
	MassInputUnit  *string `json:"mass_input_unit,omitempty" yaml:"mass_input_unit,omitempty"`
	MassUsedValue  *string `json:"mass_used_value,omitempty" yaml:"mass_used_value,omitempty"`
	MassUsedUnit   *string `json:"mass_used_unit,omitempty" yaml:"mass_used_unit,omitempty"`
	MassValue      *string `json:"mass_value,omitempty" yaml:"mass_value,omitempty"`
	MassUnit       *string `json:"mass_unit,omitempty" yaml:"mass_unit,omitempty"`
	Supplier       *string `json:"supplier,omitempty" yaml:"supplier,omitempty"`
	Country        *string `json:"country,omitempty" yaml:"country,omitempty"`
	PrePct         *string `json:"pre_pct,omitempty" yaml:"pre_pct,omitempty"`
	PostPct        *string `json:"post_pct,omitempty" yaml:"post_pct,omitempty"`

	// Distances holds raw distance values keyed by mode. Every key must be
	// an enabled mode of the section.
	Distances map[Mode]string `json:"distances,omitempty" yaml:"distances,omitempty"`
}

// RowState is the raw, unfiltered view of a row as the UI last entered it.
type RowState struct {
	ID             string          `json:"id"`
	Component      string          `json:"component"`
	MassInputValue string          `json:"mass_input_value,omitempty"`
	MassInputUnit  string          `json:"mass_input_unit,omitempty"`
	MassUsedValue  string          `json:"mass_used_value,omitempty"`
	MassUsedUnit   string          `json:"mass_used_unit,omitempty"`
	MassValue      string          `json:"mass_value,omitempty"`
	MassUnit       string          `json:"mass_unit,omitempty"`
	Supplier       string          `json:"supplier"`
	Country        string          `json:"country"`
	PrePct         string          `json:"pre_pct"`
	PostPct        string          `json:"post_pct"`
	Distances      map[Mode]string `json:"distances"`
}

type row struct {
	id        string
	component string

	massInputValue, massInputUnit string
	massUsedValue, massUsedUnit   string
	massValue, massUnit           string

	supplier, country string
	prePct, postPct   string

	distances map[Mode]string
}

func newRow(enabled map[Mode]bool) *row {
	r := &row{
		id:            uuid.NewString(),
		massInputUnit: units.Kilogram,
		massUsedUnit:  units.Kilogram,
		massUnit:      units.Kilogram,
		distances:     make(map[Mode]string, len(enabled)),
	}
	for _, m := range Modes {
		if enabled[m] {
			r.distances[m] = "0"
		}
	}
	return r
}

// apply validates the whole input before touching the row, so a rejected
// update leaves the row unchanged.
func (r *row) apply(in RowInput, enabled map[Mode]bool) error {
	for m := range in.Distances {
		if _, err := ParseMode(string(m)); err != nil {
			return err
		}
		if !enabled[m] {
			return fmt.Errorf("%w: %s", ErrModeDisabled, m)
		}
	}
	for _, u := range []*string{in.MassInputUnit, in.MassUsedUnit, in.MassUnit} {
		if u != nil && *u != "" && !units.IsMassUnit(*u) {
			return fmt.Errorf("%w: %q is not a mass unit", ErrUnknownUnit, *u)
		}
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setUnit := func(dst *string, src *string) {
		if src == nil {
			return
		}
		if *src == "" {
			*dst = units.Kilogram
			return
		}
		*dst = *src
	}

	set(&r.component, in.Component)
	set(&r.massInputValue, in.MassInputValue)
	setUnit(&r.massInputUnit, in.MassInputUnit)
	set(&r.massUsedValue, in.MassUsedValue)
	setUnit(&r.massUsedUnit, in.MassUsedUnit)
	set(&r.massValue, in.MassValue)
	setUnit(&r.massUnit, in.MassUnit)
	set(&r.supplier, in.Supplier)
	set(&r.country, in.Country)
	set(&r.prePct, in.PrePct)
	set(&r.postPct, in.PostPct)

	for m, v := range in.Distances {
		r.distances[m] = v
	}
	return nil
}

func (r *row) state(dualMass bool) RowState {
	s := RowState{
		ID:        r.id,
		Component: r.component,
		Supplier:  r.supplier,
		Country:   r.country,
		PrePct:    r.prePct,
		PostPct:   r.postPct,
		Distances: make(map[Mode]string, len(r.distances)),
	}
	if dualMass {
		s.MassInputValue, s.MassInputUnit = r.massInputValue, r.massInputUnit
		s.MassUsedValue, s.MassUsedUnit = r.massUsedValue, r.massUsedUnit
	} else {
		s.MassValue, s.MassUnit = r.massValue, r.massUnit
	}
	for m, v := range r.distances {
		s.Distances[m] = v
	}
	return s
}

// masses returns the canonical input and used masses. For single-mass rows
// both are the same value.
func (r *row) masses(dualMass bool) (input, used *float64) {
	if !dualMass {
		m := units.ToCanonicalMass(r.massValue, r.massUnit)
		return m, m
	}
	return units.ToCanonicalMass(r.massInputValue, r.massInputUnit),
		units.ToCanonicalMass(r.massUsedValue, r.massUsedUnit)
}

func (r *row) trimmedComponent() string {
	return strings.TrimSpace(r.component)
}
