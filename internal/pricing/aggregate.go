package pricing

import (
	"fmt"
	"math"

	"github.com/Simplici0/quoteworks/internal/composition"
	"github.com/Simplici0/quoteworks/internal/materials"
	"github.com/Simplici0/quoteworks/internal/units"
)

// InvalidQuantityError reports a negative or non-finite effective quantity.
type InvalidQuantityError struct {
	MaterialID string
	Quantity   float64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %v for material %q", e.Quantity, e.MaterialID)
}

// ValidQuantity reports whether q can be priced. Zero is allowed and prices
// to nothing.
func ValidQuantity(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q >= 0
}

// Aggregate sums cost and weight over resolved parts, in order.
func Aggregate(parts []composition.Part) (LineAggregate, error) {
	var agg LineAggregate
	for _, p := range parts {
		if !ValidQuantity(p.Quantity) {
			return LineAggregate{}, &InvalidQuantityError{MaterialID: p.Material.ID, Quantity: p.Quantity}
		}

		factor, err := sizingFactor(p.Material)
		if err != nil {
			return LineAggregate{}, fmt.Errorf("size material %q: %w", p.Material.ID, err)
		}

		saleUnits := p.Quantity * factor
		agg.Cost += saleUnits * p.Material.UnitCost
		agg.Weight += saleUnits * p.Material.UnitWeight
	}
	return agg, nil
}

// sizingFactor returns how many units of sale one counted piece of m is.
func sizingFactor(m materials.Material) (float64, error) {
	if !units.Known(m.Unit) {
		return 0, &units.UnsupportedUnitError{From: m.Unit}
	}
	if err := checkDimensions(m.Dimensions); err != nil {
		return 0, err
	}

	switch s := m.Sizing().(type) {
	case materials.ByCount:
		return 1, nil
	case materials.ByLength:
		return units.Convert(s.Length.Value, s.Length.Unit, m.Unit, units.Length)
	case materials.ByWeight:
		return units.Convert(s.Weight.Value, s.Weight.Unit, m.Unit, units.Weight)
	default:
		return 0, fmt.Errorf("unknown sizing %T", s)
	}
}

// checkDimensions normalizes the descriptive dimensions so an unrecognized
// unit surfaces even when sizing does not use it.
func checkDimensions(d materials.Dimensions) error {
	for _, m := range []*materials.Measure{d.Diameter, d.Length, d.Width} {
		if m == nil {
			continue
		}
		if _, err := units.Canonical(m.Value, m.Unit, units.Length); err != nil {
			return err
		}
	}
	if d.Weight != nil {
		if _, err := units.Canonical(d.Weight.Value, d.Weight.Unit, units.Weight); err != nil {
			return err
		}
	}
	return nil
}
