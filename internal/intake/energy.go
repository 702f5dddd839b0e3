package intake

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/lca-intake/internal/units"
)

// EnergyType is the carrier of an energy entry.
type EnergyType string

const (
	EnergyElectricity EnergyType = "electricity"
	EnergyNaturalGas  EnergyType = "natural_gas"
	EnergyDiesel      EnergyType = "diesel"
	EnergyPropane     EnergyType = "propane"
	EnergySteam       EnergyType = "steam"
	EnergyOther       EnergyType = "other"
)

// EnergyTypes lists every accepted energy type.
var EnergyTypes = []EnergyType{
	EnergyElectricity, EnergyNaturalGas, EnergyDiesel,
	EnergyPropane, EnergySteam, EnergyOther,
}

// EnergyUnits lists the units offered for energy amounts.
var EnergyUnits = []string{"kWh", "therm", "m3", "L", "kg", "MJ"}

// DefaultEnergyUnit is the unit of a freshly added entry.
const DefaultEnergyUnit = "kWh"

// IsEnergyType reports whether t is one of EnergyTypes.
func IsEnergyType(t string) bool {
	for _, known := range EnergyTypes {
		if EnergyType(t) == known {
			return true
		}
	}
	return false
}

// EnergyInput is one energy entry as the UI holds it. All values are raw.
type EnergyInput struct {
	ID     string `json:"id" yaml:"-"`
	Type   string `json:"type" yaml:"type"`
	Amount string `json:"amount" yaml:"amount"`
	Unit   string `json:"unit" yaml:"unit"`
	Notes  string `json:"notes" yaml:"notes"`
}

// EnergyUpdate is a partial update of an energy entry.
type EnergyUpdate struct {
	Type   *string `json:"type,omitempty"`
	Amount *string `json:"amount,omitempty"`
	Unit   *string `json:"unit,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// EnergyEntry is a retained entry in the export payload.
type EnergyEntry struct {
	Type   EnergyType `json:"type"`
	Amount float64    `json:"amount"`
	Unit   string     `json:"unit"`
	Notes  *string    `json:"notes"`
}

// FilterEnergy keeps entries with a known type and an amount >= 0. An
// empty amount counts as 0; an unparseable or negative one drops the entry.
func FilterEnergy(inputs []EnergyInput) []EnergyEntry {
	out := make([]EnergyEntry, 0, len(inputs))
	for _, in := range inputs {
		if !IsEnergyType(in.Type) {
			continue
		}
		amount := 0.0
		if strings.TrimSpace(in.Amount) != "" {
			v, ok := units.ParseNumber(in.Amount)
			if !ok {
				continue
			}
			amount = v
		}
		if amount < 0 {
			continue
		}
		out = append(out, EnergyEntry{
			Type:   EnergyType(in.Type),
			Amount: amount,
			Unit:   in.Unit,
			Notes:  optTrimmed(in.Notes),
		})
	}
	return out
}

// energyList is the ordered set of energy entries of a session.
type energyList struct {
	entries []EnergyInput
}

func (l *energyList) add(in EnergyInput) string {
	in.ID = uuid.NewString()
	if in.Unit == "" {
		in.Unit = DefaultEnergyUnit
	}
	l.entries = append(l.entries, in)
	return in.ID
}

func (l *energyList) update(id string, u EnergyUpdate) error {
	for i := range l.entries {
		if l.entries[i].ID != id {
			continue
		}
		e := &l.entries[i]
		if u.Type != nil {
			if *u.Type != "" && !IsEnergyType(*u.Type) {
				return fmt.Errorf("%w: energy type %q", ErrInvalidValue, *u.Type)
			}
			e.Type = *u.Type
		}
		if u.Amount != nil {
			e.Amount = *u.Amount
		}
		if u.Unit != nil {
			e.Unit = *u.Unit
		}
		if u.Notes != nil {
			e.Notes = *u.Notes
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

func (l *energyList) remove(id string) bool {
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *energyList) list() []EnergyInput {
	out := make([]EnergyInput, len(l.entries))
	copy(out, l.entries)
	return out
}
