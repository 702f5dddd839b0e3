package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/lca-intake/internal/intake"
	"github.com/JonMunkholm/lca-intake/internal/metrics"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Formats lists every export format.
var Formats = []Format{FormatJSON, FormatCSV, FormatXLSX, FormatPDF}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// FileName returns the download name for the format.
func (f Format) FileName() string {
	switch f {
	case FormatJSON:
		return "lca_epd_intake.json"
	case FormatCSV:
		return "intake_export.zip"
	case FormatXLSX:
		return "intake_export.xlsx"
	case FormatPDF:
		return "intake_summary.pdf"
	}
	return "export"
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "application/zip"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Exporter writes payloads in any Format. Only FormatXLSX waits on the
// spreadsheet capability.
type Exporter struct {
	sheets *Capability
	now    func() time.Time
}

// NewExporter creates an exporter backed by the given capability.
func NewExporter(sheets *Capability) *Exporter {
	return &Exporter{sheets: sheets, now: time.Now}
}

// Capability returns the spreadsheet capability.
func (e *Exporter) Capability() *Capability { return e.sheets }

// Export writes p to w in the requested format. qc is rendered in the PDF.
func (e *Exporter) Export(ctx context.Context, w io.Writer, format Format, p intake.Payload, qc intake.QCResult) error {
	start := time.Now()
	err := e.export(ctx, w, format, p, qc)

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport(string(format), result, time.Since(start))
	return err
}

func (e *Exporter) export(ctx context.Context, w io.Writer, format Format, p intake.Payload, qc intake.QCResult) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, p)
	case FormatCSV:
		return WriteCSVBundle(w, Generate(p))
	case FormatPDF:
		return WritePDF(w, p, qc, e.now())
	case FormatXLSX:
		sw, err := e.sheets.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil && e.sheets.State() == StateLoading {
				err = ErrCapabilityLoading
			}
			slog.Warn("xlsx export unavailable", "error", err, "state", e.sheets.State())
			return fmt.Errorf("xlsx export: %w", err)
		}
		return sw.Write(w, Generate(p))
	}
	return fmt.Errorf("unknown export format %q", format)
}
