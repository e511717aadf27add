package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/quoteworks/internal/pricing"
	"github.com/Simplici0/quoteworks/internal/quote"
	"github.com/Simplici0/quoteworks/internal/units"
)

func sampleDocument() Document {
	return Document{
		ID:        7,
		CreatedAt: "2024-02-01 14:00:00",
		Title:     "Obra norte",
		Notes:     "Entregar en 48h",
		Currency:  "COP",
		Quote: quote.Quote{
			Items:    []quote.LineItem{{MaterialID: "soporte", Quantity: 2}, {MaterialID: "tornillo", Quantity: 10}},
			Settings: pricing.Settings{FreightCost: 10, LaborCost: 5, ProfitMargin: 0.2},
			Lines: []quote.Line{
				{
					MaterialID: "soporte",
					Name:       "Soporte en L",
					Quantity:   2,
					Parts: []quote.Part{
						{MaterialID: "tornillo", Name: "Tornillo M6", Unit: units.Piece, Quantity: 4},
						{MaterialID: "lamina", Name: "Lámina", Unit: units.Piece, Quantity: 2},
					},
					Cost:   1234.5,
					Weight: 1.5,
					Share:  1499.4,
				},
				{
					MaterialID: "tornillo",
					Name:       "Tornillo M6",
					Quantity:   10,
					Parts:      []quote.Part{{MaterialID: "tornillo", Name: "Tornillo M6", Unit: units.Piece, Quantity: 10}},
					Cost:       5,
					Weight:     0.1,
					Share:      6.071,
				},
			},
			Totals: pricing.Totals{BaseCost: 1239.5, TotalWeight: 1.6, FinalPrice: 1505.4},
		},
	}
}

func TestMoneyRoundsToCents(t *testing.T) {
	cases := map[float64]string{
		13.2:    "13.20",
		999.99:  "999.99",
		0.125:   "0.13",
		-0.125:  "-0.13",
		1505.4:  "1505.40",
		0:       "0.00",
		6.07149: "6.07",
	}
	for in, want := range cases {
		if got := Money(in); got != want {
			t.Fatalf("Money(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestWeightUsesThousandsSeparator(t *testing.T) {
	if got := Weight(1234.5678); got != "1,234.568 kg" {
		t.Fatalf("unexpected weight %q", got)
	}
}

func TestTextSummary(t *testing.T) {
	body := Text(sampleDocument())

	for _, expected := range []string{
		"Obra norte (#7)",
		"Notas: Entregar en 48h",
		"Datos del item:",
		"Material: Soporte en L x 2",
		"Tornillo M6: 4 piece",
		"Supuestos:",
		"Flete: 10.00 COP",
		"Margen: 20%",
		"Peso total: 1.6 kg",
		"Total: 1505.40 COP",
	} {
		if !strings.Contains(body, expected) {
			t.Fatalf("expected body to contain %q, got: %s", expected, body)
		}
	}
	if strings.Contains(body, "Tornillo M6: 10 piece") {
		t.Fatalf("leaf lines should not list themselves as parts: %s", body)
	}
}

func TestTextDefaultsTitle(t *testing.T) {
	d := sampleDocument()
	d.ID = 0
	d.Title = "  "
	if body := Text(d); !strings.HasPrefix(body, "Cotización\n") {
		t.Fatalf("expected default title, got: %s", body)
	}
}

func TestXLSXContainsLinesAndParts(t *testing.T) {
	data, err := XLSX(sampleDocument())
	if err != nil {
		t.Fatalf("XLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(quoteSheet)
	if err != nil {
		t.Fatalf("GetRows quote sheet: %v", err)
	}
	if len(rows) < 3 {
		t.Fatalf("expected header and two lines, got %d rows", len(rows))
	}
	if rows[0][0] != "material_id" || rows[1][0] != "soporte" || rows[2][0] != "tornillo" {
		t.Fatalf("unexpected line rows: %v", rows[:3])
	}

	total, err := f.GetCellValue(quoteSheet, "A10")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if total != "total" {
		t.Fatalf("expected totals block label at A10, got %q", total)
	}

	parts, err := f.GetRows(partsSheet)
	if err != nil {
		t.Fatalf("GetRows parts sheet: %v", err)
	}
	if len(parts) != 4 {
		t.Fatalf("expected header and three part rows, got %d", len(parts))
	}
	if parts[1][3] != "Tornillo M6" || parts[3][2] != "tornillo" {
		t.Fatalf("unexpected part rows: %v", parts)
	}
}
