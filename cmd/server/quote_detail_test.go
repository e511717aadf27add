package main

import (
	"bytes"
	"database/sql"
	"net/http"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/quoteworks/internal/store"
)

func TestQuoteDetailReadsSnapshotWithoutRecalculation(t *testing.T) {
	srv, h := newTestServer(t)
	seedQuoteDetail(t, srv.db)

	rr := doJSON(t, h, http.MethodGet, "/quotes/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var detail store.StoredQuote
	decodeBody(t, rr, &detail)

	if detail.Quote.Totals.BaseCost != 123.45 {
		t.Fatalf("expected snapshot base cost 123.45, got %.2f", detail.Quote.Totals.BaseCost)
	}
	if detail.Quote.Totals.FinalPrice != 999.99 {
		t.Fatalf("expected snapshot total 999.99, got %.2f", detail.Quote.Totals.FinalPrice)
	}
	if len(detail.Quote.Lines) != 1 || detail.Quote.Lines[0].Name != "Perfil Pro" {
		t.Fatalf("unexpected lines: %+v", detail.Quote.Lines)
	}
	if len(detail.Quote.Items) != 1 || detail.Quote.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items: %+v", detail.Quote.Items)
	}
}

func TestHandleQuoteTextReturnsPlainText(t *testing.T) {
	srv, h := newTestServer(t)
	seedQuoteDetail(t, srv.db)

	rr := doJSON(t, h, http.MethodGet, "/quotes/1/text", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("expected text/plain content type, got %q", rr.Header().Get("Content-Type"))
	}

	body := rr.Body.String()
	for _, expected := range []string{"Total: 999.99 COP", "Supuestos:", "Datos del item:", "Material: Perfil Pro"} {
		if !strings.Contains(body, expected) {
			t.Fatalf("expected body to contain %q, got: %s", expected, body)
		}
	}
}

func TestHandleQuoteXLSXReturnsWorkbook(t *testing.T) {
	srv, h := newTestServer(t)
	seedQuoteDetail(t, srv.db)

	rr := doJSON(t, h, http.MethodGet, "/quotes/1/xlsx", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "cotizacion_1.xlsx") {
		t.Fatalf("unexpected Content-Disposition %q", rr.Header().Get("Content-Disposition"))
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	name, err := f.GetCellValue("Cotización", "B2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if name != "Perfil Pro" {
		t.Fatalf("expected line name in B2, got %q", name)
	}
}

func TestQuoteDetailErrors(t *testing.T) {
	_, h := newTestServer(t)

	cases := map[string]int{
		"/quotes/42":      http.StatusNotFound,
		"/quotes/abc":     http.StatusBadRequest,
		"/quotes/0/text":  http.StatusBadRequest,
		"/quotes/42/xlsx": http.StatusNotFound,
	}
	for path, want := range cases {
		rr := doJSON(t, h, http.MethodGet, path, nil)
		if rr.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, rr.Code)
		}
	}
}

func seedQuoteDetail(t *testing.T, database *sql.DB) {
	t.Helper()

	_, err := database.Exec(`
		INSERT INTO quotes (
			id, created_at, title, notes, currency, settings_json, lines_json, totals_json
		) VALUES (
			1,
			'2024-02-01 14:00:00',
			'Cotización Demo',
			'Entregar en 48h',
			'COP',
			'{"freight_cost":20,"labor_cost":50,"profit_margin":0.35}',
			'[{"material_id":"perfil","name":"Perfil Pro","quantity":3,"parts":[{"material_id":"perfil","name":"Perfil Pro","unit":"m","quantity":3}],"cost":123.45,"weight":4.5,"share":999.99}]',
			'{"base_cost":123.45,"total_weight":4.5,"final_price":999.99}'
		)
	`)
	if err != nil {
		t.Fatalf("seed quote: %v", err)
	}

	_, err = database.Exec(`
		INSERT INTO quote_items (quote_id, position, material_id, quantity)
		VALUES (1, 0, 'perfil', 3)
	`)
	if err != nil {
		t.Fatalf("seed quote item: %v", err)
	}
}
