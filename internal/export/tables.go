// Package export turns an intake payload into downloadable files: the JSON
// document, a zip of CSV tables, a spreadsheet workbook and a PDF summary.
//
// All tabular formats are generated from the same []Table, so CSV files and
// workbook sheets always carry identical columns and values.
package export

import (
	"math"

	"github.com/JonMunkholm/lca-intake/internal/intake"
)

// Table names, in output order.
const (
	TableSummary              = "_meta_summary"
	TableA1Materials          = "A1_materials"
	TableA2TransportBOM       = "A2_inbound_transport_bom"
	TableA3Packaging          = "A3_packaging_materials"
	TableA3TransportPackaging = "A3_inbound_transport_packaging"
	TableA3Ancillary          = "A3_ancillary_materials"
	TableA3TransportAncillary = "A3_inbound_transport_ancillary"
	TableEnergy               = "energy"
)

// PerProductNote annotates energy rows whose per-product amount was computed.
const PerProductNote = "Computed as amount / period_product_output"

// Number formats applied to numeric spreadsheet cells.
const (
	fmtMass     = "0.0000"
	fmtPct      = "0.0"
	fmtDistance = "0.00"
	fmtTonKm    = "0.000000"
	fmtPer      = "0.00000000"
)

// Table is one named, ordered grid of values. Cells hold nil, string or
// float64.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any

	// Formats maps column names to spreadsheet number formats.
	Formats map[string]string
}

var (
	materialColumns = []string{
		"component", "mass_input_kg_per_product", "mass_used_kg_per_product",
		"supplier", "country", "pre_consumer_pct", "post_consumer_pct", "module",
	}
	materialFormats = map[string]string{
		"mass_input_kg_per_product": fmtMass,
		"mass_used_kg_per_product":  fmtMass,
		"pre_consumer_pct":          fmtPct,
		"post_consumer_pct":         fmtPct,
	}

	ancillaryColumns = []string{
		"component", "mass_kg_per_product", "supplier", "country",
		"pre_consumer_pct", "post_consumer_pct", "module",
	}
	ancillaryFormats = map[string]string{
		"mass_kg_per_product": fmtMass,
		"pre_consumer_pct":    fmtPct,
		"post_consumer_pct":   fmtPct,
	}

	transportColumns = []string{
		"component", "mode", "distance_value", "distance_unit", "distance_km",
		"mass_kg_per_product", "ton_km_per_product", "module",
	}
	transportFormats = map[string]string{
		"distance_value":      fmtDistance,
		"distance_km":         fmtDistance,
		"mass_kg_per_product": fmtMass,
		"ton_km_per_product":  fmtTonKm,
	}

	energyColumns = []string{
		"type", "amount", "unit", "per_product_amount", "per_product_note", "notes",
	}
	energyFormats = map[string]string{
		"amount":             fmtMass,
		"per_product_amount": fmtPer,
	}

	summaryColumns = []string{
		"company", "facility", "period", "product", "sku",
		"basis_type", "basis_mass_kg", "basis_area_m2", "basis_units",
		"basis_unit_desc", "basis_unit_weight_kg",
		"facility_total_qty_std", "facility_total_unit_std",
		"product_direct_qty_std", "product_direct_unit_std",
		"period_product_output",
	}
	summaryFormats = map[string]string{
		"basis_mass_kg":          fmtMass,
		"basis_area_m2":          fmtMass,
		"basis_unit_weight_kg":   fmtMass,
		"facility_total_qty_std": fmtMass,
		"product_direct_qty_std": fmtMass,
		"period_product_output":  fmtMass,
	}
)

// Generate builds every export table from p. The summary table comes first.
func Generate(p intake.Payload) []Table {
	return []Table{
		summaryTable(Summarize(p)),
		materialTable(TableA1Materials, p.BOM, intake.KindBOM.Module()),
		transportTable(TableA2TransportBOM,
			ComputeTonKm(p.Transport.BOM.InboundFlat, p.BOM, intake.KindBOM.TransportModule(), true)),
		materialTable(TableA3Packaging, p.Packaging, intake.KindPackaging.Module()),
		transportTable(TableA3TransportPackaging,
			ComputeTonKm(p.Transport.Packaging.InboundFlat, p.Packaging, intake.KindPackaging.TransportModule(), true)),
		ancillaryTable(p.Ancillary),
		transportTable(TableA3TransportAncillary,
			ComputeTonKm(p.Transport.Ancillary.InboundFlat, p.Ancillary, intake.KindAncillary.TransportModule(), false)),
		energyTable(EnergyRows(p.Energy, p.Production.PeriodProductOutput)),
	}
}

// Summary is the single-row overview of an intake.
type Summary struct {
	Company              string   `json:"company"`
	Facility             string   `json:"facility"`
	Period               string   `json:"period"`
	Product              string   `json:"product"`
	SKU                  string   `json:"sku"`
	BasisType            *string  `json:"basis_type"`
	BasisMassKg          *float64 `json:"basis_mass_kg"`
	BasisAreaM2          *float64 `json:"basis_area_m2"`
	BasisUnits           *float64 `json:"basis_units"`
	BasisUnitDesc        *string  `json:"basis_unit_desc"`
	BasisUnitWeightKg    *float64 `json:"basis_unit_weight_kg"`
	FacilityTotalQtyStd  *float64 `json:"facility_total_qty_std"`
	FacilityTotalUnitStd *string  `json:"facility_total_unit_std"`
	ProductDirectQtyStd  *float64 `json:"product_direct_qty_std"`
	ProductDirectUnitStd *string  `json:"product_direct_unit_std"`
	PeriodProductOutput  *float64 `json:"period_product_output"`
}

// Summarize extracts the summary record. A missing SKU becomes "".
func Summarize(p intake.Payload) Summary {
	s := Summary{
		Company:              p.Meta.Company,
		Facility:             p.Meta.Facility,
		Period:               p.Meta.Period,
		Product:              p.Product.Name,
		BasisType:            p.Basis.Type,
		BasisMassKg:          p.Basis.MassKg,
		BasisAreaM2:          p.Basis.AreaM2,
		BasisUnits:           p.Basis.Units,
		BasisUnitDesc:        p.Basis.UnitDesc,
		BasisUnitWeightKg:    p.Basis.UnitWeightKg,
		FacilityTotalQtyStd:  p.ProductionStd.FacilityTotalQtyStd,
		FacilityTotalUnitStd: p.ProductionStd.FacilityTotalUnitStd,
		ProductDirectQtyStd:  p.ProductionStd.ProductDirectQtyStd,
		ProductDirectUnitStd: p.ProductionStd.ProductDirectUnitStd,
		PeriodProductOutput:  p.Production.PeriodProductOutput,
	}
	if p.Product.SKU != nil {
		s.SKU = *p.Product.SKU
	}
	return s
}

func summaryTable(s Summary) Table {
	return Table{
		Name:    TableSummary,
		Columns: summaryColumns,
		Rows: [][]any{{
			s.Company, s.Facility, s.Period, s.Product, s.SKU,
			str(s.BasisType), num(s.BasisMassKg), num(s.BasisAreaM2), num(s.BasisUnits),
			str(s.BasisUnitDesc), num(s.BasisUnitWeightKg),
			num(s.FacilityTotalQtyStd), str(s.FacilityTotalUnitStd),
			num(s.ProductDirectQtyStd), str(s.ProductDirectUnitStd),
			num(s.PeriodProductOutput),
		}},
		Formats: summaryFormats,
	}
}

func materialTable(name string, items []intake.Item, module string) Table {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{
			it.Component, it.MassInputKg, it.MassUsedKg,
			str(it.Supplier), str(it.Country),
			num(it.PreConsumerPct), num(it.PostConsumerPct), module,
		})
	}
	return Table{Name: name, Columns: materialColumns, Rows: rows, Formats: materialFormats}
}

// ancillaryTable reports the single ancillary mass, which snapshots carry
// as the used mass.
func ancillaryTable(items []intake.Item) Table {
	module := intake.KindAncillary.Module()
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{
			it.Component, it.MassUsedKg,
			str(it.Supplier), str(it.Country),
			num(it.PreConsumerPct), num(it.PostConsumerPct), module,
		})
	}
	return Table{Name: TableA3Ancillary, Columns: ancillaryColumns, Rows: rows, Formats: ancillaryFormats}
}

// TonKmRow is one transport leg with its mass and ton-km per product.
type TonKmRow struct {
	Component     string      `json:"component"`
	Mode          intake.Mode `json:"mode"`
	DistanceValue float64     `json:"distance_value"`
	DistanceUnit  string      `json:"distance_unit"`
	DistanceKm    float64     `json:"distance_km"`
	MassKg        float64     `json:"mass_kg_per_product"`
	TonKm         float64     `json:"ton_km_per_product"`
	Module        string      `json:"module"`
}

// ComputeTonKm joins transport legs with item masses by component name.
// useInputMass selects the input mass (material as shipped) over the used
// mass. A leg whose component has no item gets mass 0. When names repeat,
// the last item wins. ton_km is rounded to 6 decimals.
func ComputeTonKm(flat []intake.FlatLeg, items []intake.Item, module string, useInputMass bool) []TonKmRow {
	massByComponent := make(map[string]float64, len(items))
	for _, it := range items {
		if useInputMass {
			massByComponent[it.Component] = it.MassInputKg
		} else {
			massByComponent[it.Component] = it.MassUsedKg
		}
	}

	out := make([]TonKmRow, 0, len(flat))
	for _, leg := range flat {
		mass := massByComponent[leg.Component]
		out = append(out, TonKmRow{
			Component:     leg.Component,
			Mode:          leg.Mode,
			DistanceValue: leg.DistanceValue,
			DistanceUnit:  leg.DistanceUnit,
			DistanceKm:    leg.DistanceKm,
			MassKg:        mass,
			TonKm:         round(leg.DistanceKm*mass/1000, 6),
			Module:        module,
		})
	}
	return out
}

// TotalTonKm sums the ton-km of rows.
func TotalTonKm(rows []TonKmRow) float64 {
	var total float64
	for _, r := range rows {
		total += r.TonKm
	}
	return total
}

func transportTable(name string, legs []TonKmRow) Table {
	rows := make([][]any, 0, len(legs))
	for _, r := range legs {
		rows = append(rows, []any{
			r.Component, string(r.Mode), r.DistanceValue, r.DistanceUnit,
			r.DistanceKm, r.MassKg, r.TonKm, r.Module,
		})
	}
	return Table{Name: name, Columns: transportColumns, Rows: rows, Formats: transportFormats}
}

// EnergyRow is one retained energy entry with its per-product share.
type EnergyRow struct {
	Type             intake.EnergyType `json:"type"`
	Amount           float64           `json:"amount"`
	Unit             string            `json:"unit"`
	PerProductAmount *float64          `json:"per_product_amount"`
	PerProductNote   *string           `json:"per_product_note"`
	Notes            *string           `json:"notes"`
}

// EnergyRows divides each amount by the period product output when that
// output is present and positive, rounding to 8 decimals.
func EnergyRows(entries []intake.EnergyEntry, periodOutput *float64) []EnergyRow {
	out := make([]EnergyRow, 0, len(entries))
	for _, e := range entries {
		row := EnergyRow{Type: e.Type, Amount: e.Amount, Unit: e.Unit, Notes: e.Notes}
		if periodOutput != nil && *periodOutput > 0 {
			per := round(e.Amount / *periodOutput, 8)
			note := PerProductNote
			row.PerProductAmount = &per
			row.PerProductNote = &note
		}
		out = append(out, row)
	}
	return out
}

func energyTable(entries []EnergyRow) Table {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			string(e.Type), e.Amount, e.Unit,
			num(e.PerProductAmount), str(e.PerProductNote), str(e.Notes),
		})
	}
	return Table{Name: TableEnergy, Columns: energyColumns, Rows: rows, Formats: energyFormats}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// str and num turn optional values into table cells, nil when absent.
func str(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func num(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
