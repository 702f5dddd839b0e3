package intake

// section.go implements the row model for one material category.
//
// The enabled-mode set is the source of truth for row shape. Every mode
// toggle reconciles all row distance maps against it, so a row never holds
// a distance for a mode the section has disabled, and every row holds a slot
// for every mode the section has enabled.
//
// A Section is not safe for concurrent use; Session serializes access.

import (
	"fmt"

	"github.com/JonMunkholm/lca-intake/internal/units"
)

// Section holds the ordered component rows of one category.
type Section struct {
	kind     Kind
	dualMass bool
	compact  bool

	rows    []*row
	enabled map[Mode]bool
	units   map[Mode]string
}

// NewSection creates an empty section. Dual mass is fixed by kind.
func NewSection(kind Kind) *Section {
	s := &Section{
		kind:     kind,
		dualMass: kind.DualMass(),
		enabled:  make(map[Mode]bool, len(Modes)),
		units:    make(map[Mode]string, len(Modes)),
	}
	for _, m := range Modes {
		s.units[m] = units.Kilometer
	}
	return s
}

// Kind returns the section's material category.
func (s *Section) Kind() Kind { return s.kind }

// DualMass reports whether rows carry separate input and used masses.
func (s *Section) DualMass() bool { return s.dualMass }

// Compact reports whether provenance inputs are hidden.
func (s *Section) Compact() bool { return s.compact }

// SetCompact toggles compact display. Stored provenance values are kept,
// but snapshots report them as null while compact is on.
func (s *Section) SetCompact(compact bool) { s.compact = compact }

// Len returns the number of rows, included or not.
func (s *Section) Len() int { return len(s.rows) }

// SetModeEnabled adds or removes a mode from the enabled set and
// reconciles every row. Calling it with the current state is a no-op.
func (s *Section) SetModeEnabled(mode Mode, enabled bool) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	if enabled {
		s.enabled[mode] = true
	} else {
		delete(s.enabled, mode)
	}
	s.syncRows()
	return nil
}

// ModeEnabled reports whether mode is currently enabled.
func (s *Section) ModeEnabled(mode Mode) bool { return s.enabled[mode] }

// EnabledModes returns the enabled modes in canonical order.
func (s *Section) EnabledModes() []Mode {
	out := make([]Mode, 0, len(s.enabled))
	for _, m := range Modes {
		if s.enabled[m] {
			out = append(out, m)
		}
	}
	return out
}

// SetModeUnit changes the distance unit reported for mode. Raw per-row
// values are not touched.
func (s *Section) SetModeUnit(mode Mode, unit string) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	if !units.IsDistanceUnit(unit) {
		return fmt.Errorf("%w: %q is not a distance unit", ErrUnknownUnit, unit)
	}
	s.units[mode] = unit
	return nil
}

// ModeUnit returns the distance unit for mode.
func (s *Section) ModeUnit(mode Mode) string {
	if u, ok := s.units[mode]; ok && u != "" {
		return u
	}
	return units.Kilometer
}

// AddRow appends an empty row and returns its handle. Distance slots for
// every enabled mode start at "0".
func (s *Section) AddRow() string {
	r := newRow(s.enabled)
	s.rows = append(s.rows, r)
	return r.id
}

// RemoveRow deletes the row with the given handle. It returns false when
// the row does not exist, which callers treat as a no-op.
func (s *Section) RemoveRow(id string) bool {
	for i, r := range s.rows {
		if r.id == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateRow applies a partial update to a row's raw fields.
func (s *Section) UpdateRow(id string, in RowInput) error {
	r := s.find(id)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	return r.apply(in, s.enabled)
}

// Row returns the raw state of one row.
func (s *Section) Row(id string) (RowState, error) {
	r := s.find(id)
	if r == nil {
		return RowState{}, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	return r.state(s.dualMass), nil
}

// Rows returns the raw state of every row in order.
func (s *Section) Rows() []RowState {
	out := make([]RowState, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.state(s.dualMass)
	}
	return out
}

// SectionState is the raw, serializable configuration of a section.
type SectionState struct {
	Kind      Kind            `json:"kind"`
	DualMass  bool            `json:"dual_mass"`
	Compact   bool            `json:"compact"`
	Modes     []Mode          `json:"modes"`
	ModeUnits map[Mode]string `json:"mode_units"`
	Rows      []RowState      `json:"rows"`
}

// State returns the section's raw configuration and rows.
func (s *Section) State() SectionState {
	mu := make(map[Mode]string, len(Modes))
	for _, m := range Modes {
		mu[m] = s.ModeUnit(m)
	}
	return SectionState{
		Kind:      s.kind,
		DualMass:  s.dualMass,
		Compact:   s.compact,
		Modes:     s.EnabledModes(),
		ModeUnits: mu,
		Rows:      s.Rows(),
	}
}

func (s *Section) find(id string) *row {
	for _, r := range s.rows {
		if r.id == id {
			return r
		}
	}
	return nil
}

// syncRows makes every row's distance keys equal the enabled set.
func (s *Section) syncRows() {
	for _, r := range s.rows {
		for _, m := range Modes {
			_, has := r.distances[m]
			switch {
			case s.enabled[m] && !has:
				r.distances[m] = "0"
			case !s.enabled[m] && has:
				delete(r.distances, m)
			}
		}
	}
}
