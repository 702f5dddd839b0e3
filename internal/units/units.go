// Package units converts raw (value, unit) pairs entered on the intake form
// into canonical SI quantities: kilograms, square meters and kilometers.
//
// Every function here is total. Unparseable values and unknown units come
// back as nil (or as a Quantity with a nil StdValue), never as an error,
// so callers can apply their own filter-not-error policy.
package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Canonical unit labels.
const (
	Kilogram    = "kg"
	SquareMeter = "m2"
	Kilometer   = "km"
)

// Ordered unit families, as offered by the intake form.
var (
	MassUnits     = []string{"kg", "g", "lb", "t"}
	AreaUnits     = []string{"m2", "ft2", "yd2"}
	DistanceUnits = []string{"km", "mi"}
)

var (
	massFactors = map[string]float64{
		"kg": 1,
		"g":  0.001,
		"lb": 0.45359237,
		"t":  1000,
	}
	areaFactors = map[string]float64{
		"m2":  1,
		"ft2": 0.09290304,
		"yd2": 0.83612736,
	}
	distanceFactors = map[string]float64{
		"km": 1,
		"mi": 1.60934,
	}
)

var (
	// numericRegex matches a plain decimal number after cleanup.
	numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

	// thousandsRegex matches a number whose commas group thousands.
	thousandsRegex = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)
)

// Quantity is a raw value/unit pair plus its canonical form.
// StdValue and StdUnit are nil when the pair could not be interpreted.
type Quantity struct {
	Value    *float64 `json:"value"`
	Unit     *string  `json:"unit"`
	StdValue *float64 `json:"std_value"`
	StdUnit  *string  `json:"std_unit"`
}

// ParseNumber parses a raw form value.
//
// Whitespace and an Excel ="..." wrapper are removed before parsing. Commas
// are accepted only as thousands separators, so a decimal comma ("1,5") is
// unparseable. NaN and infinities are rejected.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		if !thousandsRegex.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseOptional returns a pointer to the parsed value, or nil.
func ParseOptional(raw string) *float64 {
	v, ok := ParseNumber(raw)
	if !ok {
		return nil
	}
	return &v
}

// ToCanonicalMass converts a raw mass to kilograms.
func ToCanonicalMass(raw, unit string) *float64 {
	return convert(raw, unit, massFactors)
}

// ToCanonicalArea converts a raw area to square meters.
func ToCanonicalArea(raw, unit string) *float64 {
	return convert(raw, unit, areaFactors)
}

// ToCanonicalDistance converts a raw distance to kilometers.
func ToCanonicalDistance(raw, unit string) *float64 {
	return convert(raw, unit, distanceFactors)
}

// MassKg converts an already parsed mass to kilograms. It reports false for
// unknown units and for results that overflow.
func MassKg(v float64, unit string) (float64, bool) {
	return scale(v, unit, massFactors)
}

// AreaM2 converts an already parsed area to square meters.
func AreaM2(v float64, unit string) (float64, bool) {
	return scale(v, unit, areaFactors)
}

// DistanceKm converts an already parsed distance to kilometers.
func DistanceKm(v float64, unit string) (float64, bool) {
	return scale(v, unit, distanceFactors)
}

// IsMassUnit reports whether unit belongs to the mass family.
func IsMassUnit(unit string) bool {
	_, ok := massFactors[unit]
	return ok
}

// IsAreaUnit reports whether unit belongs to the area family.
func IsAreaUnit(unit string) bool {
	_, ok := areaFactors[unit]
	return ok
}

// IsDistanceUnit reports whether unit belongs to the distance family.
func IsDistanceUnit(unit string) bool {
	_, ok := distanceFactors[unit]
	return ok
}

// NormalizeQuantity classifies unit into the mass or area family and
// converts accordingly. Any other unit (counts, pieces, liters...) keeps
// the raw value and unit as its canonical form.
func NormalizeQuantity(raw, unit string) Quantity {
	q := Quantity{Unit: optString(unit)}

	v, ok := ParseNumber(raw)
	if !ok {
		q.StdUnit = optString(unit)
		return q
	}
	q.Value = &v

	switch {
	case IsMassUnit(unit):
		if kg, ok := MassKg(v, unit); ok {
			q.StdValue = &kg
		}
		q.StdUnit = optString(Kilogram)
	case IsAreaUnit(unit):
		if m2, ok := AreaM2(v, unit); ok {
			q.StdValue = &m2
		}
		q.StdUnit = optString(SquareMeter)
	default:
		pass := v
		q.StdValue = &pass
		q.StdUnit = optString(unit)
	}
	return q
}

func convert(raw, unit string, factors map[string]float64) *float64 {
	v, ok := ParseNumber(raw)
	if !ok {
		return nil
	}
	out, ok := scale(v, unit, factors)
	if !ok {
		return nil
	}
	return &out
}

// scale applies the unit factor. A product that is not finite counts as
// unparseable.
func scale(v float64, unit string, factors map[string]float64) (float64, bool) {
	f, ok := factors[unit]
	if !ok {
		return 0, false
	}
	out := v * f
	if math.IsInf(out, 0) || math.IsNaN(out) {
		return 0, false
	}
	return out, true
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
