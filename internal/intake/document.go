package intake

// document.go describes a whole intake declaratively so it can be replayed
// onto a session. Documents are YAML; JSON documents parse too since JSON
// is a subset of YAML.
//
//	fields:
//	  company: Acme
//	  product_mass_value: "1.2"
//	  product_mass_unit: kg
//	basis_type: mass
//	production_mode: product_direct
//	sections:
//	  bom:
//	    modes: [road, ship]
//	    mode_units: {ship: mi}
//	    rows:
//	      - component: PVC resin
//	        mass_input_value: "1.0"
//	        mass_used_value: "0.95"
//	        distances: {road: "120", ship: "800"}
//	energy:
//	  - {type: electricity, amount: "500", unit: kWh}

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is a declarative intake.
type Document struct {
	Fields         map[string]string          `yaml:"fields,omitempty"`
	BasisType      string                     `yaml:"basis_type,omitempty"`
	ProductionMode string                     `yaml:"production_mode,omitempty"`
	Sections       map[string]SectionDocument `yaml:"sections,omitempty"`
	Energy         []EnergyInput              `yaml:"energy,omitempty"`
}

// SectionDocument declares one section's modes and rows.
type SectionDocument struct {
	Compact   bool              `yaml:"compact,omitempty"`
	Modes     []string          `yaml:"modes,omitempty"`
	ModeUnits map[string]string `yaml:"mode_units,omitempty"`
	Rows      []RowInput        `yaml:"rows,omitempty"`
}

// ParseDocument decodes a YAML or JSON document. Unknown keys are rejected.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, errors.New("document: empty file")
		}
		return Document{}, fmt.Errorf("document: %w", err)
	}
	return doc, nil
}

// LoadDocument reads and decodes a document from r.
func LoadDocument(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("document: read: %w", err)
	}
	return ParseDocument(data)
}

// ApplyDocument replays doc onto a fresh session through the regular
// session operations. The first declared row of each section and the first
// energy entry fill the empty ones a new session starts with.
func ApplyDocument(s *Session, doc Document) error {
	if len(doc.Fields) > 0 {
		if err := s.SetFields(doc.Fields); err != nil {
			return fmt.Errorf("document fields: %w", err)
		}
	}
	bt, err := ParseBasisType(doc.BasisType)
	if err != nil {
		return fmt.Errorf("document: %w", err)
	}
	if err := s.SetBasisType(bt); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	pm, err := ParseProductionMode(doc.ProductionMode)
	if err != nil {
		return fmt.Errorf("document: %w", err)
	}
	if err := s.SetProductionMode(pm); err != nil {
		return fmt.Errorf("document: %w", err)
	}

	byKind := make(map[Kind]SectionDocument, len(doc.Sections))
	for name, sd := range doc.Sections {
		kind, err := ParseKind(name)
		if err != nil {
			return fmt.Errorf("document: %w", err)
		}
		byKind[kind] = sd
	}

	state := s.State()
	for _, kind := range Kinds {
		sd, ok := byKind[kind]
		if !ok {
			continue
		}
		var firstRow string
		if rows := state.Sections[kind].Rows; len(rows) > 0 {
			firstRow = rows[0].ID
		}
		if err := applySection(s, kind, sd, firstRow); err != nil {
			return fmt.Errorf("document section %s: %w", kind, err)
		}
	}

	for i, e := range doc.Energy {
		if i == 0 && len(state.Energy) > 0 {
			id := state.Energy[0].ID
			u := EnergyUpdate{Type: &e.Type, Amount: &e.Amount, Unit: &e.Unit, Notes: &e.Notes}
			if e.Unit == "" {
				u.Unit = nil
			}
			if err := s.UpdateEnergy(id, u); err != nil {
				return fmt.Errorf("document energy %d: %w", i+1, err)
			}
			continue
		}
		if _, err := s.AddEnergy(e); err != nil {
			return fmt.Errorf("document energy %d: %w", i+1, err)
		}
	}
	return nil
}

func applySection(s *Session, kind Kind, sd SectionDocument, firstRow string) error {
	if err := s.SetCompact(kind, sd.Compact); err != nil {
		return err
	}
	for _, name := range sd.Modes {
		mode, err := ParseMode(name)
		if err != nil {
			return err
		}
		if err := s.SetModeEnabled(kind, mode, true); err != nil {
			return err
		}
	}
	for name, unit := range sd.ModeUnits {
		mode, err := ParseMode(name)
		if err != nil {
			return err
		}
		if err := s.SetModeUnit(kind, mode, unit); err != nil {
			return err
		}
	}
	for i, in := range sd.Rows {
		id := firstRow
		if i > 0 || id == "" {
			var err error
			if id, err = s.AddRow(kind); err != nil {
				return err
			}
		}
		if err := s.UpdateRow(kind, id, in); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}
