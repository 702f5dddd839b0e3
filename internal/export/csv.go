package export

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readme is added to every CSV bundle.
var readme = strings.Join([]string{
	"LCA/EPD Intake export",
	"- Material masses are per product (kg).",
	"- Transport is ton-km per product. A2 (BOM) and A3 packaging legs use INPUT mass (material as shipped); A3 ancillary legs use the ancillary mass.",
	"- Energy includes per_product_amount if production output was provided.",
	"- Standardized production units (kg/m2) in _meta_summary.csv",
}, "\n")

// WriteCSV writes t with a header row. Missing values become empty cells
// and numbers use the shortest decimal form that round-trips.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write %s header: %w", t.Name, err)
	}
	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j := range record {
			record[j] = ""
			if j < len(row) {
				record[j] = formatCell(row[j])
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s row %d: %w", t.Name, i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", t.Name, err)
	}
	return nil
}

// WriteCSVBundle writes every table as <name>.csv plus README.txt into a
// zip archive.
func WriteCSVBundle(w io.Writer, tables []Table) error {
	zw := zip.NewWriter(w)
	for _, t := range tables {
		f, err := zw.Create(t.Name + ".csv")
		if err != nil {
			return fmt.Errorf("zip %s: %w", t.Name, err)
		}
		if err := WriteCSV(f, t); err != nil {
			return err
		}
	}
	f, err := zw.Create("README.txt")
	if err != nil {
		return fmt.Errorf("zip readme: %w", err)
	}
	if _, err := io.WriteString(f, readme); err != nil {
		return fmt.Errorf("zip readme: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
