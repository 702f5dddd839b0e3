package intake

// fields.go defines the scalar form fields of an intake and the registry
// that maps wire names to them.
//
// Values are stored as the raw strings the UI supplied. Parsing happens at
// read time (QC, payload, submission) so partial input never errors.

import (
	"fmt"
	"sort"
	"strings"
)

// Meta identifies the reporting organization and period.
type Meta struct {
	Company         string `json:"company" yaml:"company"`
	Email           string `json:"email" yaml:"email"`
	Facility        string `json:"facility" yaml:"facility"`
	Period          string `json:"period" yaml:"period"`
	GridRegion      string `json:"grid_region" yaml:"grid_region"`
	Confidentiality string `json:"confidentiality" yaml:"confidentiality"`
}

// Product identifies the declared product.
type Product struct {
	Name string `json:"name" yaml:"name"`
	SKU  string `json:"sku" yaml:"sku"`
}

// Basis holds the raw inputs of all three basis kinds. Only the fields of
// the active Type are read.
type Basis struct {
	Type BasisType `json:"type" yaml:"type"`

	MassValue string `json:"product_mass_value" yaml:"product_mass_value"`
	MassUnit  string `json:"product_mass_unit" yaml:"product_mass_unit"`

	AreaValue           string `json:"product_area_value" yaml:"product_area_value"`
	AreaUnit            string `json:"product_area_unit" yaml:"product_area_unit"`
	AreaUnitWeightValue string `json:"unit_weight_value_area" yaml:"unit_weight_value_area"`
	AreaUnitWeightUnit  string `json:"unit_weight_unit_area" yaml:"unit_weight_unit_area"`

	Units                string `json:"product_units" yaml:"product_units"`
	UnitDesc             string `json:"product_unit_desc" yaml:"product_unit_desc"`
	CountUnitWeightValue string `json:"unit_weight_value_count" yaml:"unit_weight_value_count"`
	CountUnitWeightUnit  string `json:"unit_weight_unit_count" yaml:"unit_weight_unit_count"`
}

// Production holds the raw production-reporting inputs.
type Production struct {
	Mode ProductionMode `json:"mode" yaml:"mode"`

	FacilityTotalQty   string `json:"facility_total_qty" yaml:"facility_total_qty"`
	FacilityTotalUnit  string `json:"facility_total_unit" yaml:"facility_total_unit"`
	ProductSharePct    string `json:"product_share_pct" yaml:"product_share_pct"`
	ProductQtyDerived  string `json:"product_qty_derived" yaml:"product_qty_derived"`
	ProductUnitDerived string `json:"product_unit_derived" yaml:"product_unit_derived"`
	ProductDirectQty   string `json:"product_direct_qty" yaml:"product_direct_qty"`
	ProductDirectUnit  string `json:"product_direct_unit" yaml:"product_direct_unit"`
}

// Form is the complete scalar state of an intake.
type Form struct {
	Meta       Meta       `json:"meta" yaml:"meta"`
	Product    Product    `json:"product" yaml:"product"`
	Basis      Basis      `json:"basis" yaml:"basis"`
	Production Production `json:"production" yaml:"production"`
}

// FieldSpec describes one settable form field.
type FieldSpec struct {
	Name string // Wire name, e.g. "product_mass_value"

	// Derives marks inputs of the facility-share derivation. Setting one
	// recomputes product_qty_derived and product_unit_derived.
	Derives bool

	ref func(*Form) *string
}

var fieldSpecs = map[string]FieldSpec{}

func registerField(name string, derives bool, ref func(*Form) *string) {
	if _, exists := fieldSpecs[name]; exists {
		panic(fmt.Sprintf("field already registered: %s", name))
	}
	fieldSpecs[name] = FieldSpec{Name: name, Derives: derives, ref: ref}
}

func init() {
	registerField("company", false, func(f *Form) *string { return &f.Meta.Company })
	registerField("email", false, func(f *Form) *string { return &f.Meta.Email })
	registerField("facility", false, func(f *Form) *string { return &f.Meta.Facility })
	registerField("period", false, func(f *Form) *string { return &f.Meta.Period })
	registerField("grid_region", false, func(f *Form) *string { return &f.Meta.GridRegion })
	registerField("confidentiality", false, func(f *Form) *string { return &f.Meta.Confidentiality })

	registerField("product", false, func(f *Form) *string { return &f.Product.Name })
	registerField("sku", false, func(f *Form) *string { return &f.Product.SKU })

	registerField("product_mass_value", false, func(f *Form) *string { return &f.Basis.MassValue })
	registerField("product_mass_unit", false, func(f *Form) *string { return &f.Basis.MassUnit })
	registerField("product_area_value", false, func(f *Form) *string { return &f.Basis.AreaValue })
	registerField("product_area_unit", false, func(f *Form) *string { return &f.Basis.AreaUnit })
	registerField("unit_weight_value_area", false, func(f *Form) *string { return &f.Basis.AreaUnitWeightValue })
	registerField("unit_weight_unit_area", false, func(f *Form) *string { return &f.Basis.AreaUnitWeightUnit })
	registerField("product_units", false, func(f *Form) *string { return &f.Basis.Units })
	registerField("product_unit_desc", false, func(f *Form) *string { return &f.Basis.UnitDesc })
	registerField("unit_weight_value_count", false, func(f *Form) *string { return &f.Basis.CountUnitWeightValue })
	registerField("unit_weight_unit_count", false, func(f *Form) *string { return &f.Basis.CountUnitWeightUnit })

	registerField("facility_total_qty", true, func(f *Form) *string { return &f.Production.FacilityTotalQty })
	registerField("facility_total_unit", true, func(f *Form) *string { return &f.Production.FacilityTotalUnit })
	registerField("product_share_pct", true, func(f *Form) *string { return &f.Production.ProductSharePct })
	registerField("product_qty_derived", false, func(f *Form) *string { return &f.Production.ProductQtyDerived })
	registerField("product_unit_derived", false, func(f *Form) *string { return &f.Production.ProductUnitDerived })
	registerField("product_direct_qty", false, func(f *Form) *string { return &f.Production.ProductDirectQty })
	registerField("product_direct_unit", false, func(f *Form) *string { return &f.Production.ProductDirectUnit })
}

// LookupField returns the spec for a wire name.
func LookupField(name string) (FieldSpec, bool) {
	spec, ok := fieldSpecs[strings.TrimSpace(name)]
	return spec, ok
}

// FieldNames returns every settable field name, sorted.
func FieldNames() []string {
	names := make([]string, 0, len(fieldSpecs))
	for name := range fieldSpecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetFields applies raw values to the form. Unknown names are rejected
// before any value is written.
func (f *Form) SetFields(values map[string]string) error {
	specs := make([]FieldSpec, 0, len(values))
	for name := range values {
		spec, ok := LookupField(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		specs = append(specs, spec)
	}

	derive := false
	for _, spec := range specs {
		*spec.ref(f) = values[spec.Name]
		derive = derive || spec.Derives
	}
	if derive {
		f.recalcDerived()
	}
	return nil
}

// Field returns the raw value of a named field.
func (f *Form) Field(name string) (string, error) {
	spec, ok := LookupField(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return *spec.ref(f), nil
}

func (f *Form) recalcDerived() {
	p := &f.Production
	p.ProductQtyDerived = DeriveProductQuantity(p.FacilityTotalQty, p.ProductSharePct)
	p.ProductUnitDerived = p.FacilityTotalUnit
}
