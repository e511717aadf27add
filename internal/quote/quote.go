// Package quote assembles a full quote from line items: every line's material
// is resolved into leaf parts, aggregated into cost and weight, and the lines
// are priced together with the quote settings.
//
// Compute is a pure function of its inputs. It performs no I/O and keeps no
// state between calls, so concurrent calls need no coordination.
package quote

import (
	"errors"
	"fmt"

	"github.com/Simplici0/quoteworks/internal/composition"
	"github.com/Simplici0/quoteworks/internal/materials"
	"github.com/Simplici0/quoteworks/internal/pricing"
	"github.com/Simplici0/quoteworks/internal/units"
)

// LineItem is a material chosen for a quote with the quantity wanted.
type LineItem struct {
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
}

// Part is a resolved leaf material of a line.
type Part struct {
	MaterialID string     `json:"material_id"`
	Name       string     `json:"name"`
	Unit       units.Unit `json:"unit"`
	Quantity   float64    `json:"quantity"`
}

// Line is the computed breakdown of one line item.
type Line struct {
	MaterialID string  `json:"material_id"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	Parts      []Part  `json:"parts"`
	Cost       float64 `json:"cost"`
	Weight     float64 `json:"weight"`
	Share      float64 `json:"share"`
}

// Quote is a computed quote. Recomputing produces a new Quote.
type Quote struct {
	Items    []LineItem       `json:"items"`
	Settings pricing.Settings `json:"settings"`
	Lines    []Line           `json:"lines"`
	Totals   pricing.Totals   `json:"totals"`
}

// Engine computes quotes. The zero value uses composition.DefaultMaxDepth.
type Engine struct {
	MaxDepth int
}

// Compute computes a quote with the default Engine.
func Compute(items []LineItem, settings pricing.Settings, lookup materials.Lookup) (Quote, error) {
	return Engine{}.Compute(items, settings, lookup)
}

// Compute resolves, aggregates and prices every line. Any failure aborts the
// whole quote.
func (e Engine) Compute(items []LineItem, settings pricing.Settings, lookup materials.Lookup) (Quote, error) {
	if err := settings.Validate(); err != nil {
		return Quote{}, err
	}

	resolver := composition.Resolver{Lookup: lookup, MaxDepth: e.MaxDepth}

	lines := make([]Line, 0, len(items))
	aggregates := make([]pricing.LineAggregate, 0, len(items))
	for i, item := range items {
		if !pricing.ValidQuantity(item.Quantity) {
			return Quote{}, &pricing.InvalidQuantityError{MaterialID: item.MaterialID, Quantity: item.Quantity}
		}

		var m materials.Material
		ok := false
		if lookup != nil {
			m, ok = lookup.Material(item.MaterialID)
		}
		if !ok {
			return Quote{}, &composition.MissingMaterialError{MaterialID: item.MaterialID}
		}

		parts, err := resolver.Resolve(m, item.Quantity)
		if err != nil {
			return Quote{}, fmt.Errorf("line %d: %w", i+1, err)
		}

		agg, err := pricing.Aggregate(parts)
		if err != nil {
			return Quote{}, fmt.Errorf("line %d: %w", i+1, err)
		}

		lines = append(lines, Line{
			MaterialID: m.ID,
			Name:       m.Name,
			Quantity:   item.Quantity,
			Parts:      toParts(parts),
			Cost:       agg.Cost,
			Weight:     agg.Weight,
		})
		aggregates = append(aggregates, agg)
	}

	result, err := pricing.Price(aggregates, settings)
	if err != nil {
		return Quote{}, err
	}
	for i := range lines {
		lines[i].Share = result.Lines[i].Share
	}

	return Quote{
		Items:    append([]LineItem(nil), items...),
		Settings: settings,
		Lines:    lines,
		Totals:   result.Totals,
	}, nil
}

func toParts(parts []composition.Part) []Part {
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		out = append(out, Part{
			MaterialID: p.Material.ID,
			Name:       p.Material.Name,
			Unit:       p.Material.Unit,
			Quantity:   p.Quantity,
		})
	}
	return out
}

// Error kinds reported by ErrorKind.
const (
	KindUnsupportedUnit   = "unsupported_unit"
	KindCyclicComposition = "cyclic_composition"
	KindTooDeep           = "composition_too_deep"
	KindInvalidQuantity   = "invalid_quantity"
	KindInvalidSettings   = "invalid_settings"
	KindMissingMaterial   = "missing_material"
)

// ErrorKind classifies an error returned by Compute. It returns "" for errors
// that did not come from the engine.
func ErrorKind(err error) string {
	var (
		unitErr     *units.UnsupportedUnitError
		cycleErr    *composition.CyclicCompositionError
		deepErr     *composition.CompositionTooDeepError
		qtyErr      *pricing.InvalidQuantityError
		compQtyErr  *composition.InvalidComponentQuantityError
		settingsErr *pricing.InvalidSettingsError
		missingErr  *composition.MissingMaterialError
	)
	switch {
	case errors.As(err, &unitErr):
		return KindUnsupportedUnit
	case errors.As(err, &cycleErr):
		return KindCyclicComposition
	case errors.As(err, &deepErr):
		return KindTooDeep
	case errors.As(err, &qtyErr), errors.As(err, &compQtyErr):
		return KindInvalidQuantity
	case errors.As(err, &settingsErr):
		return KindInvalidSettings
	case errors.As(err, &missingErr):
		return KindMissingMaterial
	default:
		return ""
	}
}
