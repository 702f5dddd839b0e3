package intake

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers use errors.Is; MapError turns them into user messages.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrRowNotFound     = errors.New("row not found")
	ErrEntryNotFound   = errors.New("energy entry not found")
	ErrUnknownSection  = errors.New("unknown section")
	ErrUnknownMode     = errors.New("unknown transport mode")
	ErrModeDisabled    = errors.New("transport mode not enabled")
	ErrUnknownUnit     = errors.New("unknown unit")
	ErrUnknownField    = errors.New("unknown field")
	ErrInvalidValue    = errors.New("invalid enum value")
)

// Kind identifies one of the three material categories.
type Kind string

const (
	KindBOM       Kind = "bom"
	KindPackaging Kind = "packaging"
	KindAncillary Kind = "ancillary"
)

// Kinds lists every section kind in export order.
var Kinds = []Kind{KindBOM, KindPackaging, KindAncillary}

// ParseKind accepts the canonical kind names plus the short form used by
// form field prefixes (pack, anc).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bom":
		return KindBOM, nil
	case "packaging", "pack":
		return KindPackaging, nil
	case "ancillary", "anc":
		return KindAncillary, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
}

// DualMass reports whether sections of this kind track input and used mass
// separately.
func (k Kind) DualMass() bool {
	return k == KindBOM || k == KindPackaging
}

// Module returns the life-cycle stage tag for the kind's material table.
func (k Kind) Module() string {
	if k == KindBOM {
		return "A1"
	}
	return "A3"
}

// TransportModule returns the stage tag for the kind's inbound transport table.
func (k Kind) TransportModule() string {
	if k == KindBOM {
		return "A2"
	}
	return "A3"
}

// Mode is a transport mode key.
type Mode string

const (
	ModeRoad Mode = "road"
	ModeRail Mode = "rail"
	ModeShip Mode = "ship"
	ModeAir  Mode = "air"
)

// Modes lists every transport mode in canonical order.
var Modes = []Mode{ModeRoad, ModeRail, ModeShip, ModeAir}

// ParseMode validates a mode key.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// BasisType selects how the product is normalized.
type BasisType string

const (
	BasisNone  BasisType = ""
	BasisMass  BasisType = "mass"
	BasisArea  BasisType = "area"
	BasisCount BasisType = "count"
)

// ParseBasisType validates a basis type. The empty string clears the basis.
func ParseBasisType(s string) (BasisType, error) {
	switch b := BasisType(strings.TrimSpace(s)); b {
	case BasisNone, BasisMass, BasisArea, BasisCount:
		return b, nil
	}
	return "", fmt.Errorf("%w: basis type %q", ErrInvalidValue, s)
}

// ProductionMode selects how period production output is reported.
type ProductionMode string

const (
	ProductionNone          ProductionMode = ""
	ProductionFacilityShare ProductionMode = "facility_share"
	ProductionDirect        ProductionMode = "product_direct"
)

// ParseProductionMode validates a production mode. The empty string clears it.
func ParseProductionMode(s string) (ProductionMode, error) {
	switch m := ProductionMode(strings.TrimSpace(s)); m {
	case ProductionNone, ProductionFacilityShare, ProductionDirect:
		return m, nil
	}
	return "", fmt.Errorf("%w: production mode %q", ErrInvalidValue, s)
}
