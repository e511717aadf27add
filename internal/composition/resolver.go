// Package composition flattens composite materials into the leaf materials
// they are built from.
package composition

import (
	"fmt"
	"math"
	"strings"

	"github.com/Simplici0/quoteworks/internal/materials"
)

// DefaultMaxDepth bounds how deeply assemblies may nest.
const DefaultMaxDepth = 64

// Part is a leaf material with the quantity of it required.
type Part struct {
	Material materials.Material
	Quantity float64
}

// CyclicCompositionError reports a material that includes itself directly or
// transitively. Chain starts at the resolved root and ends with the repeated id.
type CyclicCompositionError struct {
	Chain []string
}

func (e *CyclicCompositionError) Error() string {
	return fmt.Sprintf("cyclic composition: %s", strings.Join(e.Chain, " -> "))
}

// CompositionTooDeepError reports nesting beyond the resolver's limit.
type CompositionTooDeepError struct {
	MaterialID string
	Limit      int
}

func (e *CompositionTooDeepError) Error() string {
	return fmt.Sprintf("composition of %q nests deeper than %d levels", e.MaterialID, e.Limit)
}

// MissingMaterialError reports a material id the lookup could not resolve.
// ParentID is empty when the missing id was requested directly.
type MissingMaterialError struct {
	MaterialID string
	ParentID   string
}

func (e *MissingMaterialError) Error() string {
	if e.ParentID == "" {
		return fmt.Sprintf("material %q not found", e.MaterialID)
	}
	return fmt.Sprintf("material %q not found (component of %q)", e.MaterialID, e.ParentID)
}

// InvalidComponentQuantityError reports a component quantity that is negative
// or not finite.
type InvalidComponentQuantityError struct {
	MaterialID string
	ParentID   string
	Quantity   float64
}

func (e *InvalidComponentQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %v for component %q of %q", e.Quantity, e.MaterialID, e.ParentID)
}

func validComponentQuantity(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q >= 0
}

// Resolver expands composite materials using Lookup for sub-materials.
type Resolver struct {
	Lookup   materials.Lookup
	MaxDepth int
}

// NewResolver returns a Resolver with the default depth limit.
func NewResolver(lookup materials.Lookup) Resolver {
	return Resolver{Lookup: lookup, MaxDepth: DefaultMaxDepth}
}

type frame struct {
	material materials.Material
	quantity float64
	depth    int
	parent   *frame
}

// onChain reports whether id is m or one of its ancestors.
func (f *frame) onChain(id string) bool {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.material.ID == id {
			return true
		}
	}
	return false
}

func (f *frame) chain(next string) []string {
	var ids []string
	for cur := f; cur != nil; cur = cur.parent {
		ids = append(ids, cur.material.ID)
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return append(ids, next)
}

// Resolve flattens m into leaf parts, each scaled by quantity and by the
// component quantities along its path. Parts come out in component order.
func (r Resolver) Resolve(m materials.Material, quantity float64) ([]Part, error) {
	limit := r.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}

	var parts []Part
	stack := []*frame{{material: m, quantity: quantity}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.material.IsLeaf() {
			parts = append(parts, Part{Material: cur.material, Quantity: cur.quantity})
			continue
		}

		children := make([]*frame, 0, len(cur.material.Components))
		for _, c := range cur.material.Components {
			if !validComponentQuantity(c.Quantity) {
				return nil, &InvalidComponentQuantityError{MaterialID: c.MaterialID, ParentID: cur.material.ID, Quantity: c.Quantity}
			}
			if cur.onChain(c.MaterialID) {
				return nil, &CyclicCompositionError{Chain: cur.chain(c.MaterialID)}
			}
			if cur.depth+1 > limit {
				return nil, &CompositionTooDeepError{MaterialID: m.ID, Limit: limit}
			}
			if r.Lookup == nil {
				return nil, &MissingMaterialError{MaterialID: c.MaterialID, ParentID: cur.material.ID}
			}
			sub, ok := r.Lookup.Material(c.MaterialID)
			if !ok {
				return nil, &MissingMaterialError{MaterialID: c.MaterialID, ParentID: cur.material.ID}
			}
			children = append(children, &frame{
				material: sub,
				quantity: cur.quantity * c.Quantity,
				depth:    cur.depth + 1,
				parent:   cur,
			})
		}
		// Reverse push keeps component order on pop.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return parts, nil
}
