package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/xuri/excelize/v2"
)

// Header widths are clamped to this range, in characters.
const (
	minColWidth = 10
	maxColWidth = 30
)

// SheetWriter renders tables into a workbook, one sheet per table. It is
// produced by the spreadsheet Capability.
type SheetWriter struct {
	// template, when set, is a workbook whose sheets precede the tables.
	template []byte

	header  *excelize.Style
	numFmts map[string]*excelize.Style
}

// NewSheetWriter prepares the style set and, when templatePath is set,
// checks that the template workbook opens and has no sheet named like an
// export table.
func NewSheetWriter(templatePath string) (*SheetWriter, error) {
	sw := &SheetWriter{
		header: &excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E7EEF7"}, Pattern: 1},
		},
		numFmts: make(map[string]*excelize.Style),
	}
	for _, code := range []string{fmtMass, fmtPct, fmtDistance, fmtTonKm, fmtPer} {
		sw.numFmts[code] = &excelize.Style{CustomNumFmt: &code}
	}

	// Styles are validated once so a bad definition fails the load, not
	// the first export.
	probe := excelize.NewFile()
	defer probe.Close()
	if _, err := sw.styleIDs(probe); err != nil {
		return nil, err
	}

	if templatePath == "" {
		return sw, nil
	}
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("read xlsx template: %w", err)
	}
	tpl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx template: %w", err)
	}
	defer tpl.Close()
	for _, name := range tpl.GetSheetList() {
		if isTableName(name) {
			return nil, fmt.Errorf("xlsx template sheet %q collides with an export table", name)
		}
	}
	sw.template = data
	return sw, nil
}

type styleSet struct {
	header  int
	numFmts map[string]int
}

func (sw *SheetWriter) styleIDs(f *excelize.File) (styleSet, error) {
	set := styleSet{numFmts: make(map[string]int, len(sw.numFmts))}
	id, err := f.NewStyle(sw.header)
	if err != nil {
		return set, fmt.Errorf("create header style: %w", err)
	}
	set.header = id
	for code, style := range sw.numFmts {
		id, err := f.NewStyle(style)
		if err != nil {
			return set, fmt.Errorf("create number format %q: %w", code, err)
		}
		set.numFmts[code] = id
	}
	return set, nil
}

// Write renders tables as a workbook into w.
func (sw *SheetWriter) Write(w io.Writer, tables []Table) error {
	var (
		f   *excelize.File
		err error
	)
	if sw.template != nil {
		f, err = excelize.OpenReader(bytes.NewReader(sw.template))
		if err != nil {
			return fmt.Errorf("open xlsx template: %w", err)
		}
	} else {
		f = excelize.NewFile()
	}
	defer f.Close()

	styles, err := sw.styleIDs(f)
	if err != nil {
		return err
	}

	defaultSheet := ""
	if sw.template == nil {
		defaultSheet = f.GetSheetName(0)
	}
	for i, t := range tables {
		if i == 0 && defaultSheet != "" {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return fmt.Errorf("set sheet name: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("add sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t, styles); err != nil {
			return fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}
	if len(tables) > 0 && sw.template == nil {
		f.SetActiveSheet(0)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, t Table, styles styleSet) error {
	sheet := t.Name
	if len(t.Columns) == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return err
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", styles.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for c, name := range t.Columns {
		col, _ := excelize.ColumnNumberToName(c + 1)
		if err := f.SetColWidth(sheet, col, col, headerWidth(name)); err != nil {
			return fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	for r, row := range t.Rows {
		for c, name := range t.Columns {
			if c >= len(row) || row[c] == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			switch v := row[c].(type) {
			case float64:
				if err := f.SetCellFloat(sheet, cell, v, -1, 64); err != nil {
					return err
				}
				if code, ok := t.Formats[name]; ok {
					if err := f.SetCellStyle(sheet, cell, cell, styles.numFmts[code]); err != nil {
						return err
					}
				}
			case string:
				if err := f.SetCellStr(sheet, cell, sanitizeExcelCell(v)); err != nil {
					return err
				}
			default:
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
		}
	}

	if err := f.AutoFilter(sheet, "A1:"+lastCol+"1", nil); err != nil {
		return fmt.Errorf("autofilter: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return nil
}

func headerWidth(name string) float64 {
	w := len(name) + 2
	return float64(max(minColWidth, min(maxColWidth, w)))
}

func isTableName(name string) bool {
	return slices.Contains([]string{
		TableSummary, TableA1Materials, TableA2TransportBOM, TableA3Packaging,
		TableA3TransportPackaging, TableA3Ancillary, TableA3TransportAncillary, TableEnergy,
	}, name)
}

// sanitizeExcelCell prevents formula injection by prefixing cells that a
// spreadsheet would evaluate.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}
