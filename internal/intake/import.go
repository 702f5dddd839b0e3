package intake

// import.go appends section rows in bulk from a CSV file.
//
// The file needs a header row. Column names are matched case-insensitively
// after trimming, with spaces treated as underscores:
//
//	component                       required
//	mass_input_value, mass_used_value   required for bom and packaging
//	mass_input_unit, mass_used_unit     optional, default kg
//	mass_value                      required for ancillary
//	mass_unit                       optional, default kg
//	supplier, country, pre_pct, post_pct   optional
//	<mode>_km, <mode>_mi            optional distance per mode
//
// A distance column enables its mode. Values are converted to the section's
// current unit for that mode. The whole file is parsed before any row is
// added, so a bad file leaves the section unchanged.

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/lca-intake/internal/units"
)

// MaxImportRows caps the number of data rows in one import.
const MaxImportRows = 5000

// ImportResult summarizes a completed import.
type ImportResult struct {
	Added        int      `json:"added"`
	Skipped      int      `json:"skipped"`
	RowIDs       []string `json:"row_ids"`
	EnabledModes []Mode   `json:"enabled_modes"`
}

type distanceColumn struct {
	mode Mode
	unit string
	pos  int
}

// ImportRows parses r and appends one row per non-blank record.
func (s *Section) ImportRows(r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportResult{}, errors.New("import: empty file")
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: invalid csv: %w", err)
	}
	idx := makeHeaderIndex(header)

	required := []string{"component", "mass_value"}
	if s.dualMass {
		required = []string{"component", "mass_input_value", "mass_used_value"}
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return ImportResult{}, fmt.Errorf("import: missing required column %q", col)
		}
	}

	var distCols []distanceColumn
	for _, m := range Modes {
		for _, u := range units.DistanceUnits {
			if pos, ok := idx[string(m)+"_"+u]; ok {
				distCols = append(distCols, distanceColumn{mode: m, unit: u, pos: pos})
			}
		}
	}

	var (
		inputs  []RowInput
		skipped int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ImportResult{}, fmt.Errorf("import: invalid csv: %w", err)
		}
		if isBlank(rec...) {
			skipped++
			continue
		}
		if len(inputs) >= MaxImportRows {
			return ImportResult{}, fmt.Errorf("import: file too large: more than %d rows", MaxImportRows)
		}
		inputs = append(inputs, s.recordInput(rec, idx, distCols))
	}

	res := ImportResult{Skipped: skipped, RowIDs: make([]string, 0, len(inputs))}
	for _, dc := range distCols {
		if !s.enabled[dc.mode] {
			res.EnabledModes = append(res.EnabledModes, dc.mode)
			s.enabled[dc.mode] = true
		}
	}
	s.syncRows()

	for _, in := range inputs {
		id := s.AddRow()
		// Inputs only reference enabled modes and known units at this point.
		if err := s.find(id).apply(in, s.enabled); err != nil {
			s.RemoveRow(id)
			res.Skipped++
			continue
		}
		res.RowIDs = append(res.RowIDs, id)
	}
	res.Added = len(res.RowIDs)
	return res, nil
}

func (s *Section) recordInput(rec []string, idx map[string]int, distCols []distanceColumn) RowInput {
	cell := func(name string) *string {
		pos, ok := idx[name]
		if !ok || pos >= len(rec) {
			return nil
		}
		v := cleanCell(rec[pos])
		return &v
	}
	unitCell := func(name string) *string {
		v := cell(name)
		if v == nil || !units.IsMassUnit(*v) {
			return nil
		}
		return v
	}

	in := RowInput{
		Component: cell("component"),
		Supplier:  cell("supplier"),
		Country:   cell("country"),
		PrePct:    cell("pre_pct"),
		PostPct:   cell("post_pct"),
	}
	if s.dualMass {
		in.MassInputValue = cell("mass_input_value")
		in.MassInputUnit = unitCell("mass_input_unit")
		in.MassUsedValue = cell("mass_used_value")
		in.MassUsedUnit = unitCell("mass_used_unit")
	} else {
		in.MassValue = cell("mass_value")
		in.MassUnit = unitCell("mass_unit")
	}

	for _, dc := range distCols {
		if dc.pos >= len(rec) {
			continue
		}
		raw := cleanCell(rec[dc.pos])
		if raw == "" {
			continue
		}
		if in.Distances == nil {
			in.Distances = make(map[Mode]string)
		}
		in.Distances[dc.mode] = s.toModeUnit(raw, dc.unit, dc.mode)
	}
	return in
}

// toModeUnit rewrites a distance given in unit into the section's unit for
// mode. Unparseable values pass through unchanged and count as 0 later.
func (s *Section) toModeUnit(raw, unit string, mode Mode) string {
	target := s.ModeUnit(mode)
	if unit == target {
		return raw
	}
	v, ok := units.ParseNumber(raw)
	if !ok {
		return raw
	}
	km, ok := units.DistanceKm(v, unit)
	if !ok {
		return raw
	}
	per, _ := units.DistanceKm(1, target)
	return strconv.FormatFloat(km/per, 'f', -1, 64)
}

// skipBOM drops a leading UTF-8 byte order mark, which spreadsheet programs
// on Windows commonly add.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}

func makeHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(cleanCell(h))
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// cleanCell removes common CSV artifacts: surrounding whitespace, the Excel
// ="..." wrapper, surrounding quotes and invalid UTF-8.
func cleanCell(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.Trim(s, `"'`)
}

// isBlank reports whether every cell is empty after trimming.
func isBlank(cells ...string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
