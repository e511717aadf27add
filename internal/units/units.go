package units

import (
	"fmt"
	"strings"
)

// Unit is a unit of measure or of sale, e.g. "mm", "kg" or "piece".
type Unit string

// Dimension groups units that can be converted into each other.
type Dimension string

const (
	Length Dimension = "length"
	Weight Dimension = "weight"
)

const (
	Millimeter Unit = "mm"
	Centimeter Unit = "cm"
	Meter      Unit = "m"
	Inch       Unit = "in"
	Foot       Unit = "ft"

	Gram     Unit = "g"
	Kilogram Unit = "kg"
	Pound    Unit = "lb"
	Ounce    Unit = "oz"

	Piece Unit = "piece"
)

// CanonicalLength and CanonicalWeight are the units every quantity of the
// matching dimension normalizes to.
const (
	CanonicalLength = Millimeter
	CanonicalWeight = Kilogram
)

type unitInfo struct {
	dim Dimension
	// factor converts one of this unit into the canonical unit of dim.
	factor float64
}

var unitTable = map[Unit]unitInfo{
	Millimeter: {dim: Length, factor: 1},
	Centimeter: {dim: Length, factor: 10},
	Meter:      {dim: Length, factor: 1000},
	Inch:       {dim: Length, factor: 25.4},
	Foot:       {dim: Length, factor: 304.8},

	Gram:     {dim: Weight, factor: 0.001},
	Kilogram: {dim: Weight, factor: 1},
	Pound:    {dim: Weight, factor: 0.45359237},
	Ounce:    {dim: Weight, factor: 0.028349523125},
}

var countUnits = map[Unit]struct{}{
	"":      {},
	Piece:   {},
	"pcs":   {},
	"unit":  {},
	"units": {},
}

// UnsupportedUnitError reports an unrecognized unit or a conversion across
// dimensions.
type UnsupportedUnitError struct {
	From      Unit
	To        Unit
	Dimension Dimension
}

func (e *UnsupportedUnitError) Error() string {
	if e.Dimension == "" {
		return fmt.Sprintf("unsupported unit %q", e.From)
	}
	if e.To == "" {
		return fmt.Sprintf("unsupported %s unit %q", e.Dimension, e.From)
	}
	return fmt.Sprintf("unsupported %s conversion from %q to %q", e.Dimension, e.From, e.To)
}

// Normalize lower-cases and trims a unit as typed by a user.
func Normalize(u Unit) Unit {
	return Unit(strings.ToLower(strings.TrimSpace(string(u))))
}

// DimensionOf returns the dimension of u, or false when u is not a length or
// weight unit.
func DimensionOf(u Unit) (Dimension, bool) {
	info, ok := unitTable[Normalize(u)]
	if !ok {
		return "", false
	}
	return info.dim, true
}

// IsCount reports whether u counts discrete units of sale.
func IsCount(u Unit) bool {
	_, ok := countUnits[Normalize(u)]
	return ok
}

// Known reports whether u is a count unit or a convertible unit.
func Known(u Unit) bool {
	if IsCount(u) {
		return true
	}
	_, ok := DimensionOf(u)
	return ok
}

// Convert converts value from one unit to another within dim.
func Convert(value float64, from, to Unit, dim Dimension) (float64, error) {
	fromInfo, ok := unitTable[Normalize(from)]
	if !ok || fromInfo.dim != dim {
		return 0, &UnsupportedUnitError{From: from, To: to, Dimension: dim}
	}
	toInfo, ok := unitTable[Normalize(to)]
	if !ok || toInfo.dim != dim {
		return 0, &UnsupportedUnitError{From: from, To: to, Dimension: dim}
	}
	if fromInfo.factor == toInfo.factor {
		return value, nil
	}
	return value * fromInfo.factor / toInfo.factor, nil
}

// Canonical converts value into the canonical unit of dim.
func Canonical(value float64, from Unit, dim Dimension) (float64, error) {
	switch dim {
	case Length:
		return Convert(value, from, CanonicalLength, dim)
	case Weight:
		return Convert(value, from, CanonicalWeight, dim)
	default:
		return 0, &UnsupportedUnitError{From: from, Dimension: dim}
	}
}
