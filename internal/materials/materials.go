package materials

import (
	"github.com/Simplici0/quoteworks/internal/units"
)

// Measure is a physical quantity with its unit, e.g. 500 mm.
type Measure struct {
	Value float64    `json:"value"`
	Unit  units.Unit `json:"unit"`
}

// Component is one sub-material of a composite material.
type Component struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
}

// Dimensions holds the optional physical attributes of a material.
type Dimensions struct {
	Diameter *Measure `json:"diameter,omitempty"`
	Length   *Measure `json:"length,omitempty"`
	Width    *Measure `json:"width,omitempty"`
	// Weight is the mass of one counted piece.
	Weight *Measure `json:"weight,omitempty"`
}

// Material is a priced, weighted item: either raw stock (no components) or an
// assembly of other materials.
type Material struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	CategoryID  string      `json:"category_id,omitempty"`
	UnitCost    float64     `json:"unit_cost"`
	UnitWeight  float64     `json:"unit_weight"`
	Unit        units.Unit  `json:"unit"`
	Dimensions  Dimensions  `json:"dimensions"`
	Components  []Component `json:"components,omitempty"`
}

// IsLeaf reports whether m is raw stock.
func (m Material) IsLeaf() bool {
	return len(m.Components) == 0
}

// Sizing returns how a counted quantity of m maps onto its unit of sale.
func (m Material) Sizing() Sizing {
	return SizingFor(m.Unit, m.Dimensions)
}

// Sizing is a closed set of variants: ByCount, ByLength and ByWeight.
type Sizing interface {
	sizing()
}

// ByCount means the quantity is expressed directly in the unit of sale.
type ByCount struct{}

// ByLength means the unit of sale is a length and each counted piece is
// Length long.
type ByLength struct {
	Length Measure
}

// ByWeight means the unit of sale is a weight and each counted piece weighs
// Weight.
type ByWeight struct {
	Weight Measure
}

func (ByCount) sizing()  {}
func (ByLength) sizing() {}
func (ByWeight) sizing() {}

// SizingFor derives the sizing variant from a unit of sale and dimensions.
// A length or weight unit without the matching attribute sizes by count.
func SizingFor(unit units.Unit, dims Dimensions) Sizing {
	dim, ok := units.DimensionOf(unit)
	if !ok {
		return ByCount{}
	}
	switch dim {
	case units.Length:
		if dims.Length != nil {
			return ByLength{Length: *dims.Length}
		}
	case units.Weight:
		if dims.Weight != nil {
			return ByWeight{Weight: *dims.Weight}
		}
	}
	return ByCount{}
}

// Lookup resolves material ids. ok is false when the id is unknown.
type Lookup interface {
	Material(id string) (m Material, ok bool)
}

// Catalog is an in-memory Lookup keyed by material id.
type Catalog map[string]Material

// NewCatalog indexes ms by id. Later duplicates win.
func NewCatalog(ms ...Material) Catalog {
	c := make(Catalog, len(ms))
	for _, m := range ms {
		c[m.ID] = m
	}
	return c
}

func (c Catalog) Material(id string) (Material, bool) {
	m, ok := c[id]
	return m, ok
}

// Add inserts or replaces m.
func (c Catalog) Add(m Material) {
	c[m.ID] = m
}
