package intake

// payload.go assembles the export document from form state and section
// snapshots. A Payload is built fresh for every export and never mutated.

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/lca-intake/internal/units"
)

// PayloadMeta mirrors Meta with trimmed values.
type PayloadMeta struct {
	Company         string `json:"company"`
	Email           string `json:"email"`
	Facility        string `json:"facility"`
	Period          string `json:"period"`
	GridRegion      string `json:"grid_region"`
	Confidentiality string `json:"confidentiality"`
}

// PayloadProduct identifies the product. SKU is null when empty.
type PayloadProduct struct {
	Name string  `json:"name"`
	SKU  *string `json:"sku"`
}

// PayloadBasis carries only the fields of the active basis type.
type PayloadBasis struct {
	Type         *string  `json:"type"`
	MassKg       *float64 `json:"mass_kg"`
	AreaM2       *float64 `json:"area_m2"`
	Units        *float64 `json:"units"`
	UnitDesc     *string  `json:"unit_desc"`
	UnitWeightKg *float64 `json:"unit_weight_kg"`
}

// PayloadProduction is the parsed production declaration.
type PayloadProduction struct {
	Mode                *string  `json:"mode"`
	FacilityTotalQty    *float64 `json:"facility_total_qty"`
	FacilityTotalUnit   *string  `json:"facility_total_unit"`
	ProductSharePct     *float64 `json:"product_share_pct"`
	ProductQtyDerived   *float64 `json:"product_qty_derived"`
	ProductUnitDerived  *string  `json:"product_unit_derived"`
	ProductDirectQty    *float64 `json:"product_direct_qty"`
	ProductDirectUnit   *string  `json:"product_direct_unit"`
	PeriodProductOutput *float64 `json:"period_product_output"`
}

// ProductionStd holds both production quantities in standard units.
type ProductionStd struct {
	FacilityTotalQtyStd  *float64 `json:"facility_total_qty_std"`
	FacilityTotalUnitStd *string  `json:"facility_total_unit_std"`
	ProductDirectQtyStd  *float64 `json:"product_direct_qty_std"`
	ProductDirectUnitStd *string  `json:"product_direct_unit_std"`
}

// SectionTransport is the transport part of a snapshot.
type SectionTransport struct {
	SelectedModes []Mode          `json:"selected_modes"`
	ModeUnits     map[Mode]string `json:"mode_units"`
	InboundRows   []InboundRow    `json:"inbound_rows"`
	InboundFlat   []FlatLeg       `json:"inbound_flat"`
}

// Transport groups the transport parts of all three sections.
type Transport struct {
	BOM       SectionTransport `json:"bom"`
	Packaging SectionTransport `json:"packaging"`
	Ancillary SectionTransport `json:"ancillary"`
}

// Payload is the complete export document.
type Payload struct {
	Meta          PayloadMeta       `json:"meta"`
	Product       PayloadProduct    `json:"product"`
	Basis         PayloadBasis      `json:"basis"`
	Production    PayloadProduction `json:"production"`
	ProductionStd ProductionStd     `json:"production_std"`
	BOM           []Item            `json:"bom"`
	Packaging     []Item            `json:"packaging"`
	Ancillary     []Item            `json:"ancillary"`
	Transport     Transport         `json:"transport"`
	Energy        []EnergyEntry     `json:"energy"`
}

// Items returns the snapshot items of a section kind.
func (p Payload) Items(kind Kind) []Item {
	switch kind {
	case KindBOM:
		return p.BOM
	case KindPackaging:
		return p.Packaging
	case KindAncillary:
		return p.Ancillary
	}
	return nil
}

// TransportFor returns the transport part of a section kind.
func (p Payload) TransportFor(kind Kind) SectionTransport {
	switch kind {
	case KindPackaging:
		return p.Transport.Packaging
	case KindAncillary:
		return p.Transport.Ancillary
	}
	return p.Transport.BOM
}

// DeriveProductQuantity returns facilityQty * sharePct / 100 formatted with
// six decimals. Empty inputs count as 0. Unparseable or negative inputs
// give an empty string.
func DeriveProductQuantity(facilityQty, sharePct string) string {
	f, ok := parseOrZero(facilityQty)
	if !ok || f < 0 {
		return ""
	}
	p, ok := parseOrZero(sharePct)
	if !ok || p < 0 {
		return ""
	}
	return strconv.FormatFloat(f*(p/100), 'f', 6, 64)
}

// BuildPayload assembles the export document.
func BuildPayload(form Form, bom, pack, anc SectionSnapshot, energy []EnergyInput) Payload {
	p := Payload{
		Meta: PayloadMeta{
			Company:         strings.TrimSpace(form.Meta.Company),
			Email:           strings.TrimSpace(form.Meta.Email),
			Facility:        strings.TrimSpace(form.Meta.Facility),
			Period:          strings.TrimSpace(form.Meta.Period),
			GridRegion:      strings.TrimSpace(form.Meta.GridRegion),
			Confidentiality: form.Meta.Confidentiality,
		},
		Product: PayloadProduct{
			Name: strings.TrimSpace(form.Product.Name),
			SKU:  optTrimmed(form.Product.SKU),
		},
		Basis:     buildBasis(form.Basis),
		BOM:       nonNilItems(bom.Items),
		Packaging: nonNilItems(pack.Items),
		Ancillary: nonNilItems(anc.Items),
		Transport: Transport{
			BOM:       transportOf(bom),
			Packaging: transportOf(pack),
			Ancillary: transportOf(anc),
		},
		Energy: FilterEnergy(energy),
	}
	p.Production, p.ProductionStd = buildProduction(form.Production)
	return p
}

func buildBasis(b Basis) PayloadBasis {
	var out PayloadBasis
	if b.Type != BasisNone {
		t := string(b.Type)
		out.Type = &t
	}

	switch b.Type {
	case BasisMass:
		out.MassKg = units.ToCanonicalMass(b.MassValue, b.MassUnit)
	case BasisArea:
		out.AreaM2 = units.ToCanonicalArea(b.AreaValue, b.AreaUnit)
		out.UnitWeightKg = units.ToCanonicalMass(b.AreaUnitWeightValue, b.AreaUnitWeightUnit)
	case BasisCount:
		if n, ok := parseOrZero(b.Units); ok {
			out.Units = &n
		}
		desc := strings.TrimSpace(b.UnitDesc)
		out.UnitDesc = &desc
		out.UnitWeightKg = units.ToCanonicalMass(b.CountUnitWeightValue, b.CountUnitWeightUnit)
	}
	return out
}

func buildProduction(in Production) (PayloadProduction, ProductionStd) {
	out := PayloadProduction{
		FacilityTotalQty:   units.ParseOptional(in.FacilityTotalQty),
		FacilityTotalUnit:  optTrimmed(in.FacilityTotalUnit),
		ProductSharePct:    units.ParseOptional(in.ProductSharePct),
		ProductQtyDerived:  units.ParseOptional(in.ProductQtyDerived),
		ProductUnitDerived: optTrimmed(in.ProductUnitDerived),
		ProductDirectQty:   units.ParseOptional(in.ProductDirectQty),
		ProductDirectUnit:  optTrimmed(in.ProductDirectUnit),
	}
	if in.Mode != ProductionNone {
		m := string(in.Mode)
		out.Mode = &m
	}

	switch in.Mode {
	case ProductionFacilityShare:
		out.PeriodProductOutput = out.ProductQtyDerived
	case ProductionDirect:
		out.PeriodProductOutput = out.ProductDirectQty
	}

	// Both quantities are normalized regardless of the active mode.
	var std ProductionStd
	if out.FacilityTotalQty != nil && out.FacilityTotalUnit != nil {
		q := units.NormalizeQuantity(in.FacilityTotalQty, *out.FacilityTotalUnit)
		std.FacilityTotalQtyStd, std.FacilityTotalUnitStd = q.StdValue, q.StdUnit
	}
	if out.ProductDirectQty != nil && out.ProductDirectUnit != nil {
		q := units.NormalizeQuantity(in.ProductDirectQty, *out.ProductDirectUnit)
		std.ProductDirectQtyStd, std.ProductDirectUnitStd = q.StdValue, q.StdUnit
	}
	return out, std
}

func transportOf(s SectionSnapshot) SectionTransport {
	t := SectionTransport{
		SelectedModes: s.SelectedModes,
		ModeUnits:     s.ModeUnits,
		InboundRows:   s.InboundRows,
		InboundFlat:   s.InboundFlat,
	}
	if t.SelectedModes == nil {
		t.SelectedModes = []Mode{}
	}
	if t.ModeUnits == nil {
		t.ModeUnits = map[Mode]string{}
	}
	if t.InboundRows == nil {
		t.InboundRows = []InboundRow{}
	}
	if t.InboundFlat == nil {
		t.InboundFlat = []FlatLeg{}
	}
	return t
}

func nonNilItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

// parseOrZero treats an empty string as 0 and fails on anything else that
// does not parse.
func parseOrZero(raw string) (float64, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, true
	}
	return units.ParseNumber(raw)
}
