package quote

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Simplici0/quoteworks/internal/composition"
	"github.com/Simplici0/quoteworks/internal/materials"
	"github.com/Simplici0/quoteworks/internal/pricing"
	"github.com/Simplici0/quoteworks/internal/units"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func testCatalog() materials.Catalog {
	return materials.NewCatalog(
		materials.Material{ID: "screw", Name: "Screw", UnitCost: 0.05, UnitWeight: 0.001, Unit: units.Piece},
		materials.Material{ID: "plate", Name: "Plate", UnitCost: 3, UnitWeight: 0.5, Unit: units.Piece},
		materials.Material{
			ID:   "bracket",
			Name: "Bracket",
			Unit: units.Piece,
			Components: []materials.Component{
				{MaterialID: "screw", Quantity: 2},
				{MaterialID: "plate", Quantity: 1},
			},
		},
	)
}

func TestCompute_ScrewScenario(t *testing.T) {
	settings := pricing.Settings{FreightCost: 5, LaborCost: 2, ProfitMargin: 0.1}

	q, err := Compute([]LineItem{{MaterialID: "screw", Quantity: 100}}, settings, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	nearlyEqual(t, "baseCost", q.Totals.BaseCost, 5.0)
	nearlyEqual(t, "totalWeight", q.Totals.TotalWeight, 0.1)
	nearlyEqual(t, "finalPrice", q.Totals.FinalPrice, 13.2)
	nearlyEqual(t, "share", q.Lines[0].Share, 13.2)
	if q.Lines[0].Name != "Screw" {
		t.Fatalf("unexpected line name %q", q.Lines[0].Name)
	}
}

func TestCompute_BracketScenario(t *testing.T) {
	q, err := Compute([]LineItem{{MaterialID: "bracket", Quantity: 3}}, pricing.Settings{}, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	parts := q.Lines[0].Parts
	if len(parts) != 2 || parts[0].MaterialID != "screw" || parts[0].Quantity != 6 ||
		parts[1].MaterialID != "plate" || parts[1].Quantity != 3 {
		t.Fatalf("unexpected parts: %+v", parts)
	}
	nearlyEqual(t, "cost", q.Lines[0].Cost, 9.3)
	nearlyEqual(t, "weight", q.Lines[0].Weight, 1.506)
}

func TestCompute_MultipleLinesKeepOrder(t *testing.T) {
	items := []LineItem{
		{MaterialID: "plate", Quantity: 10},
		{MaterialID: "screw", Quantity: 200},
	}
	settings := pricing.Settings{LaborCost: 10, FreightCost: 5, ProfitMargin: 0.2}

	q, err := Compute(items, settings, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if q.Lines[0].MaterialID != "plate" || q.Lines[1].MaterialID != "screw" {
		t.Fatalf("lines out of order: %+v", q.Lines)
	}
	nearlyEqual(t, "baseCost", q.Totals.BaseCost, 40)
	nearlyEqual(t, "finalPrice", q.Totals.FinalPrice, 66)
	nearlyEqual(t, "share sum", q.Lines[0].Share+q.Lines[1].Share, 66)
}

func TestCompute_Deterministic(t *testing.T) {
	items := []LineItem{{MaterialID: "bracket", Quantity: 7}, {MaterialID: "screw", Quantity: 13}}
	settings := pricing.Settings{LaborCost: 1.1, FreightCost: 2.2, ProfitMargin: 0.33}

	first, err := Compute(items, settings, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Compute(items, settings, testCatalog())
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("iteration %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestCompute_LinearScaling(t *testing.T) {
	single, err := Compute([]LineItem{{MaterialID: "bracket", Quantity: 4}}, pricing.Settings{}, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	double, err := Compute([]LineItem{{MaterialID: "bracket", Quantity: 8}}, pricing.Settings{}, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	nearlyEqual(t, "cost", double.Lines[0].Cost, 2*single.Lines[0].Cost)
	nearlyEqual(t, "weight", double.Lines[0].Weight, 2*single.Lines[0].Weight)
}

func TestCompute_ZeroQuantityIsNoOp(t *testing.T) {
	q, err := Compute([]LineItem{{MaterialID: "plate", Quantity: 0}}, pricing.Settings{LaborCost: 4}, testCatalog())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	nearlyEqual(t, "baseCost", q.Totals.BaseCost, 0)
	nearlyEqual(t, "finalPrice", q.Totals.FinalPrice, 4)
}

func TestCompute_NegativeQuantityRejected(t *testing.T) {
	_, err := Compute([]LineItem{{MaterialID: "screw", Quantity: -1}}, pricing.Settings{}, testCatalog())

	var qtyErr *pricing.InvalidQuantityError
	if !errors.As(err, &qtyErr) {
		t.Fatalf("expected InvalidQuantityError, got %v", err)
	}
	if ErrorKind(err) != KindInvalidQuantity {
		t.Fatalf("ErrorKind = %q", ErrorKind(err))
	}
}

func TestCompute_CycleRejected(t *testing.T) {
	catalog := testCatalog()
	catalog.Add(materials.Material{ID: "a", Components: []materials.Component{{MaterialID: "b", Quantity: 1}}})
	catalog.Add(materials.Material{ID: "b", Components: []materials.Component{{MaterialID: "a", Quantity: 1}}})

	_, err := Compute([]LineItem{{MaterialID: "screw", Quantity: 1}, {MaterialID: "a", Quantity: 1}}, pricing.Settings{}, catalog)

	var cycleErr *composition.CyclicCompositionError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CyclicCompositionError, got %v", err)
	}
	if ErrorKind(err) != KindCyclicComposition {
		t.Fatalf("ErrorKind = %q", ErrorKind(err))
	}
}

func TestCompute_MissingMaterial(t *testing.T) {
	_, err := Compute([]LineItem{{MaterialID: "gear", Quantity: 1}}, pricing.Settings{}, testCatalog())

	var missing *composition.MissingMaterialError
	if !errors.As(err, &missing) || missing.MaterialID != "gear" {
		t.Fatalf("expected MissingMaterialError for gear, got %v", err)
	}

	if _, err := Compute([]LineItem{{MaterialID: "screw", Quantity: 1}}, pricing.Settings{}, nil); ErrorKind(err) != KindMissingMaterial {
		t.Fatalf("nil lookup: expected missing material, got %v", err)
	}
}

func TestCompute_InvalidSettingsRejected(t *testing.T) {
	_, err := Compute([]LineItem{{MaterialID: "screw", Quantity: 1}}, pricing.Settings{ProfitMargin: -0.1}, testCatalog())
	if ErrorKind(err) != KindInvalidSettings {
		t.Fatalf("expected invalid settings, got %v", err)
	}
}

func TestCompute_DepthLimitFromEngine(t *testing.T) {
	_, err := Engine{MaxDepth: 1}.Compute([]LineItem{{MaterialID: "bracket", Quantity: 1}}, pricing.Settings{}, testCatalog())
	if err != nil {
		t.Fatalf("bracket nests one level: %v", err)
	}

	catalog := testCatalog()
	catalog.Add(materials.Material{ID: "frame", Components: []materials.Component{{MaterialID: "bracket", Quantity: 2}}})

	_, err = Engine{MaxDepth: 1}.Compute([]LineItem{{MaterialID: "frame", Quantity: 1}}, pricing.Settings{}, catalog)
	if ErrorKind(err) != KindTooDeep {
		t.Fatalf("expected composition too deep, got %v", err)
	}
}

func TestErrorKind_UnknownError(t *testing.T) {
	if kind := ErrorKind(errors.New("boom")); kind != "" {
		t.Fatalf("ErrorKind = %q, want empty", kind)
	}
}

func TestCompute_NestedNegativeComponentsRejected(t *testing.T) {
	catalog := testCatalog()
	catalog.Add(materials.Material{ID: "leaf", UnitCost: 10, Unit: units.Piece})
	catalog.Add(materials.Material{ID: "inner", Components: []materials.Component{{MaterialID: "leaf", Quantity: -2}}})
	catalog.Add(materials.Material{ID: "outer", Components: []materials.Component{{MaterialID: "inner", Quantity: -3}}})

	_, err := Compute([]LineItem{{MaterialID: "outer", Quantity: 1}}, pricing.Settings{}, catalog)

	var invalid *composition.InvalidComponentQuantityError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidComponentQuantityError, got %v", err)
	}
	if ErrorKind(err) != KindInvalidQuantity {
		t.Fatalf("ErrorKind = %q, want %q", ErrorKind(err), KindInvalidQuantity)
	}
}
