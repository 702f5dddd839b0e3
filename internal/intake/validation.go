package intake

// validation.go implements the submission gate.
//
// Unlike snapshots, which silently filter incomplete data, submission fails
// fast with the first violation. The check order is fixed and significant:
//  1. At least one included BOM item
//  2. A basis type
//  3. Basis-specific fields
//  4. A production-reporting mode
//  5. Mode-specific fields
//  6. Product-mass QC within tolerance

import (
	"fmt"
	"math"

	"github.com/JonMunkholm/lca-intake/internal/units"
)

// SubmissionError is the first violation found by ValidateSubmission.
type SubmissionError struct {
	Code    string // SUB001-SUB011
	Field   string // Offending form field or section, if any
	Message string // User-facing message
}

func (e *SubmissionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("submission rejected (%s, %s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("submission rejected (%s): %s", e.Code, e.Message)
}

func subErr(code, field, msg string) *SubmissionError {
	return &SubmissionError{Code: code, Field: field, Message: msg}
}

// ValidateSubmission checks form and section snapshots in gate order and
// returns a *SubmissionError for the first violation, or nil.
func ValidateSubmission(form Form, bom, pack SectionSnapshot) error {
	if len(bom.Items) == 0 {
		return subErr("SUB001", "bom", "Add at least one BOM component with mass > 0.")
	}

	b := form.Basis
	switch b.Type {
	case BasisMass:
		if !positive(units.ToCanonicalMass(b.MassValue, b.MassUnit)) {
			return subErr("SUB003", "product_mass_value", "Provide product mass (value + unit).")
		}
	case BasisArea:
		if !positive(units.ToCanonicalArea(b.AreaValue, b.AreaUnit)) {
			return subErr("SUB004", "product_area_value", "Provide product area (value + unit).")
		}
		if !positive(units.ToCanonicalMass(b.AreaUnitWeightValue, b.AreaUnitWeightUnit)) {
			return subErr("SUB005", "unit_weight_value_area", "Provide weight per product unit (value + unit).")
		}
	case BasisCount:
		n, ok := parseOrZero(b.Units)
		if !ok || !(n > 0) {
			return subErr("SUB006", "product_units", "Provide units per product (count).")
		}
		if !positive(units.ToCanonicalMass(b.CountUnitWeightValue, b.CountUnitWeightUnit)) {
			return subErr("SUB005", "unit_weight_value_count", "Provide weight per product unit (value + unit).")
		}
	default:
		return subErr("SUB002", "basis_type", "Choose a Product Basis (mass, area, or count).")
	}

	p := form.Production
	switch p.Mode {
	case ProductionFacilityShare:
		if _, ok := units.ParseNumber(p.FacilityTotalQty); !ok {
			return subErr("SUB008", "facility_total_qty", "Enter facility total production quantity.")
		}
		share, ok := units.ParseNumber(p.ProductSharePct)
		if !ok || share < 0 || share > 100 {
			return subErr("SUB009", "product_share_pct", "Product share must be 0–100%.")
		}
	case ProductionDirect:
		if _, ok := units.ParseNumber(p.ProductDirectQty); !ok {
			return subErr("SUB010", "product_direct_qty", "Enter product production quantity for the period.")
		}
	default:
		return subErr("SUB007", "prod_mode", "Select how you want to report production data.")
	}

	qc := Evaluate(bom, pack, b)
	if qc.Status == QCWarn && math.Abs(*qc.Pct) > MassTolerancePct {
		return subErr("SUB011", "qc", fmt.Sprintf(
			"Product mass vs Used(BOM+Packaging) mismatch (%.2f%%). Must be within ±%g%%.",
			*qc.Pct, MassTolerancePct))
	}
	return nil
}

// SubmissionCodes lists every code ValidateSubmission can return, in gate order.
var SubmissionCodes = []string{
	"SUB001", "SUB002", "SUB003", "SUB004", "SUB005", "SUB006",
	"SUB007", "SUB008", "SUB009", "SUB010", "SUB011",
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}
