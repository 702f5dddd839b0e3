package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/JonMunkholm/lca-intake/internal/intake"
)

// PDF layout, in mm on A4 portrait.
const (
	pdfMargin     = 15.0
	pdfLabelWidth = 60.0
	pdfValueWidth = 75.0
	pdfLineHeight = 6.0
	pdfQRSize     = 40.0
)

// WritePDF renders a one-page summary of p: the summary record, the QC
// result and the table sizes. A QR code in the corner encodes the summary
// record as JSON.
func WritePDF(w io.Writer, p intake.Payload, qc intake.QCResult, generated time.Time) error {
	summary := Summarize(p)
	tables := Generate(p)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetCreationDate(generated)
	pdf.SetTitle("LCA/EPD intake summary", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	qrData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("generate QR code: %w", err)
	}
	pdf.RegisterImageOptionsReader("summary_qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("summary_qr", pageW-pdfMargin-pdfQRSize, pdfMargin, pdfQRSize, pdfQRSize,
		false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pdfLabelWidth+pdfValueWidth, 9, "LCA/EPD Intake Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(pdfLabelWidth+pdfValueWidth, 5, "Generated "+generated.UTC().Format(time.RFC3339), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	section(pdf, "Summary")
	for _, kv := range summaryPairs(summary) {
		pair(pdf, tr, kv[0], kv[1])
	}
	pdf.Ln(3)

	section(pdf, "Mass check")
	pair(pdf, tr, "Status", string(qc.Status))
	pair(pdf, tr, "Used BOM (kg)", formatNum(qc.UsedBOM, 4))
	pair(pdf, tr, "Used packaging (kg)", formatNum(qc.UsedPack, 4))
	pair(pdf, tr, "Used total (kg)", formatNum(qc.UsedTotal, 4))
	pair(pdf, tr, "Product mass (kg)", formatOpt(qc.ProductMass, 4))
	pair(pdf, tr, "Deviation (%)", formatOpt(qc.Pct, 2))
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, tr(qc.Message()), "", "L", false)
	pdf.Ln(3)

	section(pdf, "Tables")
	for _, t := range tables[1:] {
		detail := fmt.Sprintf("%d rows", len(t.Rows))
		if legs := tonKmColumn(t); legs >= 0 {
			var total float64
			for _, row := range t.Rows {
				if v, ok := row[legs].(float64); ok {
					total += v
				}
			}
			detail += fmt.Sprintf(", %s ton-km per product", formatNum(total, 6))
		}
		pair(pdf, tr, t.Name, detail)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(231, 238, 247)
	pdf.CellFormat(pdfLabelWidth+pdfValueWidth, 7, title, "", 1, "L", true, 0, "")
}

func pair(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(pdfLabelWidth, pdfLineHeight, tr(label), "B", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(pdfValueWidth, pdfLineHeight, tr(value), "B", 1, "L", false, 0, "")
}

func summaryPairs(s Summary) [][2]string {
	return [][2]string{
		{"Company", s.Company},
		{"Facility", s.Facility},
		{"Period", s.Period},
		{"Product", s.Product},
		{"SKU", s.SKU},
		{"Basis type", optString(s.BasisType)},
		{"Basis mass (kg)", formatOpt(s.BasisMassKg, 4)},
		{"Basis area (m2)", formatOpt(s.BasisAreaM2, 4)},
		{"Basis units", formatOpt(s.BasisUnits, 4)},
		{"Basis unit description", optString(s.BasisUnitDesc)},
		{"Basis unit weight (kg)", formatOpt(s.BasisUnitWeightKg, 4)},
		{"Facility total (std)", withUnit(s.FacilityTotalQtyStd, s.FacilityTotalUnitStd)},
		{"Product direct (std)", withUnit(s.ProductDirectQtyStd, s.ProductDirectUnitStd)},
		{"Period product output", formatOpt(s.PeriodProductOutput, 4)},
	}
}

func tonKmColumn(t Table) int {
	for i, c := range t.Columns {
		if c == "ton_km_per_product" {
			return i
		}
	}
	return -1
}

func formatNum(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}

func formatOpt(v *float64, places int) string {
	if v == nil {
		return "-"
	}
	return formatNum(*v, places)
}

func optString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func withUnit(v *float64, unit *string) string {
	if v == nil {
		return "-"
	}
	out := formatNum(*v, 4)
	if unit != nil && *unit != "" {
		out += " " + *unit
	}
	return out
}
