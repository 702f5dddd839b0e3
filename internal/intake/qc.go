package intake

// qc.go cross-checks the declared product mass against the used masses of
// the BOM and packaging sections.
//
// Ordering: a Session bumps its revision on every mutation and stamps each
// QCResult with the revision it was computed at. The session only replaces
// its cached result with one of an equal or newer revision, so a slow
// evaluation can never overwrite a fresher one.

import (
	"fmt"
	"math"

	"github.com/JonMunkholm/lca-intake/internal/units"
)

// MassTolerancePct is the allowed deviation between the declared product
// mass and the summed used mass, in percent.
const MassTolerancePct = 5.0

// QCStatus is the outcome of a product-mass check.
type QCStatus string

const (
	QCOK            QCStatus = "ok"
	QCWarn          QCStatus = "warn"
	QCIndeterminate QCStatus = "indeterminate"
)

// QCResult is the outcome of Evaluate.
type QCResult struct {
	UsedBOM     float64  `json:"used_bom"`
	UsedPack    float64  `json:"used_pack"`
	UsedTotal   float64  `json:"used_total"`
	ProductMass *float64 `json:"product_mass"`
	Diff        *float64 `json:"diff"`
	Pct         *float64 `json:"pct"`
	Status      QCStatus `json:"status"`
	Revision    uint64   `json:"revision"`
}

// ComputeProductBasisMass returns the canonical product mass for the active
// basis, or nil when the basis is unset or its mass input is missing.
//
// For area and count bases the per-unit weight is the mass; the area value
// and unit count are not masses and are ignored here.
func ComputeProductBasisMass(b Basis) *float64 {
	switch b.Type {
	case BasisMass:
		return units.ToCanonicalMass(b.MassValue, b.MassUnit)
	case BasisArea:
		return units.ToCanonicalMass(b.AreaUnitWeightValue, b.AreaUnitWeightUnit)
	case BasisCount:
		return units.ToCanonicalMass(b.CountUnitWeightValue, b.CountUnitWeightUnit)
	}
	return nil
}

// Evaluate compares the used masses of bom and pack against the basis mass.
func Evaluate(bom, pack SectionSnapshot, basis Basis) QCResult {
	res := QCResult{
		UsedBOM:  sumUsed(bom.Items),
		UsedPack: sumUsed(pack.Items),
	}
	res.UsedTotal = res.UsedBOM + res.UsedPack

	productMass := ComputeProductBasisMass(basis)
	if productMass == nil || *productMass <= 0 {
		res.Status = QCIndeterminate
		return res
	}

	diff := res.UsedTotal - *productMass
	pct := 100 * diff / *productMass
	res.ProductMass = productMass
	res.Diff = &diff
	res.Pct = &pct

	if math.Abs(pct) <= MassTolerancePct {
		res.Status = QCOK
	} else {
		res.Status = QCWarn
	}
	return res
}

// WithinTolerance reports whether the check passed or could not run.
func (r QCResult) WithinTolerance() bool {
	return r.Status != QCWarn
}

// Message renders the status banner text shown next to the BOM table.
func (r QCResult) Message() string {
	context := fmt.Sprintf("Used mass — BOM: %.4f kg, Packaging: %.4f kg, Total: %.4f kg. ",
		r.UsedBOM, r.UsedPack, r.UsedTotal)

	if r.Status == QCIndeterminate || r.ProductMass == nil {
		return context + "Enter product basis mass (or unit weight) to enable QC."
	}

	msg := context + fmt.Sprintf("Product mass: %.4f kg | Δ = %.4f kg (%.2f%%). ",
		*r.ProductMass, *r.Diff, *r.Pct)
	if r.Status == QCOK {
		return msg + fmt.Sprintf("Within tolerance (±%g%%).", MassTolerancePct)
	}
	return msg + "Outside tolerance—adjust or explain."
}

func sumUsed(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.MassUsedKg
	}
	return total
}
