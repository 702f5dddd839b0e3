package intake

import (
	"strings"

	"github.com/JonMunkholm/lca-intake/internal/units"
)

// Item is the per-product projection of an included row.
type Item struct {
	Component       string   `json:"component" yaml:"component"`
	MassInputKg     float64  `json:"mass_input_kg_per_product" yaml:"mass_input_kg_per_product"`
	MassUsedKg      float64  `json:"mass_used_kg_per_product" yaml:"mass_used_kg_per_product"`
	Supplier        *string  `json:"supplier" yaml:"supplier"`
	Country         *string  `json:"country" yaml:"country"`
	PreConsumerPct  *float64 `json:"pre_consumer_pct" yaml:"pre_consumer_pct"`
	PostConsumerPct *float64 `json:"post_consumer_pct" yaml:"post_consumer_pct"`
}

// Distance is one canonicalized mode distance of a row.
type Distance struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Km    float64 `json:"km"`
}

// InboundRow carries the distance map of one row, included or not.
type InboundRow struct {
	Component string            `json:"component"`
	Distances map[Mode]Distance `json:"distances"`
}

// FlatLeg is one (row, mode) transport leg with a positive distance.
type FlatLeg struct {
	Component     string  `json:"component"`
	Mode          Mode    `json:"mode"`
	DistanceValue float64 `json:"distance_value"`
	DistanceUnit  string  `json:"distance_unit"`
	DistanceKm    float64 `json:"distance_km"`
}

// SectionSnapshot is the point-in-time read view of a section.
type SectionSnapshot struct {
	Items         []Item          `json:"items"`
	InboundRows   []InboundRow    `json:"inbound_rows"`
	InboundFlat   []FlatLeg       `json:"inbound_flat"`
	SelectedModes []Mode          `json:"selected_modes"`
	ModeUnits     map[Mode]string `json:"mode_units"`
}

// EmptySnapshot returns a snapshot with non-nil empty collections.
func EmptySnapshot() SectionSnapshot {
	return SectionSnapshot{
		Items:         []Item{},
		InboundRows:   []InboundRow{},
		InboundFlat:   []FlatLeg{},
		SelectedModes: []Mode{},
		ModeUnits:     map[Mode]string{},
	}
}

// Snapshot extracts the filtered, canonicalized view of the section.
//
// A row is included in Items only when its trimmed component is non-empty
// and its used mass parses to a value > 0. InboundRows covers every row.
// InboundFlat covers included rows only and skips legs with km <= 0.
func (s *Section) Snapshot() SectionSnapshot {
	snap := EmptySnapshot()
	modes := s.EnabledModes()

	for _, r := range s.rows {
		component := r.trimmedComponent()

		distances := make(map[Mode]Distance, len(modes))
		for _, m := range modes {
			distances[m] = s.distance(r, m)
		}
		snap.InboundRows = append(snap.InboundRows, InboundRow{
			Component: component,
			Distances: distances,
		})

		input, used := r.masses(s.dualMass)
		if component == "" || used == nil || *used <= 0 {
			continue
		}

		item := Item{
			Component:  component,
			MassUsedKg: *used,
		}
		if input != nil {
			item.MassInputKg = *input
		}
		if !s.compact {
			item.Supplier = optTrimmed(r.supplier)
			item.Country = optTrimmed(r.country)
			item.PreConsumerPct = parsePercent(r.prePct)
			item.PostConsumerPct = parsePercent(r.postPct)
		}
		snap.Items = append(snap.Items, item)

		for _, m := range modes {
			d := distances[m]
			if d.Km <= 0 {
				continue
			}
			snap.InboundFlat = append(snap.InboundFlat, FlatLeg{
				Component:     component,
				Mode:          m,
				DistanceValue: d.Value,
				DistanceUnit:  d.Unit,
				DistanceKm:    d.Km,
			})
		}
	}

	for _, m := range modes {
		snap.SelectedModes = append(snap.SelectedModes, m)
		snap.ModeUnits[m] = s.ModeUnit(m)
	}
	return snap
}

// distance canonicalizes one row distance. Unset, unparseable or
// overflowing values count as 0.
func (s *Section) distance(r *row, m Mode) Distance {
	unit := s.ModeUnit(m)
	v, ok := units.ParseNumber(r.distances[m])
	if !ok {
		return Distance{Unit: unit}
	}
	km, ok := units.DistanceKm(v, unit)
	if !ok {
		return Distance{Unit: unit}
	}
	return Distance{Value: v, Unit: unit, Km: km}
}

// parsePercent returns nil for unparseable values and for values outside
// the 0-100 range.
func parsePercent(raw string) *float64 {
	v, ok := units.ParseNumber(raw)
	if !ok || v < 0 || v > 100 {
		return nil
	}
	return &v
}

func optTrimmed(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
