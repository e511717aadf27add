// Package export renders computed quotes for people: a plain-text summary to
// paste into a message and an xlsx workbook with the full breakdown.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/quoteworks/internal/quote"
)

// Document is a quote with the header fields it was saved under.
type Document struct {
	ID        int64
	CreatedAt string
	Title     string
	Notes     string
	Currency  string
	Quote     quote.Quote
}

// Money rounds v half away from zero to two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

// Weight formats v kilograms with up to three decimals and thousands
// separators.
func Weight(v float64) string {
	return humanize.CommafWithDigits(v, 3) + " kg"
}

func quantity(v float64) string {
	return humanize.FtoaWithDigits(v, 4)
}

// Text returns the plain-text summary of d.
func Text(d Document) string {
	var b strings.Builder
	currency := d.Currency

	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = "Cotización"
	}
	if d.ID > 0 {
		fmt.Fprintf(&b, "%s (#%d)\n", title, d.ID)
	} else {
		fmt.Fprintf(&b, "%s\n", title)
	}
	if d.CreatedAt != "" {
		fmt.Fprintf(&b, "Fecha: %s\n", d.CreatedAt)
	}
	if notes := strings.TrimSpace(d.Notes); notes != "" {
		fmt.Fprintf(&b, "Notas: %s\n", notes)
	}

	b.WriteString("\nDatos del item:\n")
	for _, line := range d.Quote.Lines {
		fmt.Fprintf(&b, "- Material: %s x %s\n", line.Name, quantity(line.Quantity))
		fmt.Fprintf(&b, "  Costo: %s %s | Peso: %s | Precio: %s %s\n",
			Money(line.Cost), currency, Weight(line.Weight), Money(line.Share), currency)
		for _, p := range line.Parts {
			if len(line.Parts) == 1 && p.MaterialID == line.MaterialID {
				break
			}
			fmt.Fprintf(&b, "    · %s: %s %s\n", p.Name, quantity(p.Quantity), p.Unit)
		}
	}

	s := d.Quote.Settings
	b.WriteString("\nSupuestos:\n")
	fmt.Fprintf(&b, "- Flete: %s %s\n", Money(s.FreightCost), currency)
	fmt.Fprintf(&b, "- Mano de obra: %s %s\n", Money(s.LaborCost), currency)
	fmt.Fprintf(&b, "- Margen: %s%%\n", humanize.FtoaWithDigits(s.ProfitMargin*100, 2))

	t := d.Quote.Totals
	b.WriteString("\n")
	fmt.Fprintf(&b, "Costo base: %s %s\n", Money(t.BaseCost), currency)
	fmt.Fprintf(&b, "Peso total: %s\n", Weight(t.TotalWeight))
	fmt.Fprintf(&b, "Total: %s %s\n", Money(t.FinalPrice), currency)

	return b.String()
}

const (
	quoteSheet = "Cotización"
	partsSheet = "Partes"
)

// WriteXLSX writes d as a workbook with one sheet for the priced lines and
// one for the resolved parts of every line.
func WriteXLSX(w io.Writer, d Document) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), quoteSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(partsSheet); err != nil {
		return fmt.Errorf("create parts sheet: %w", err)
	}

	header := []interface{}{"material_id", "material", "cantidad", "costo", "peso_kg", "precio"}
	if err := f.SetSheetRow(quoteSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, line := range d.Quote.Lines {
		excelRow := []interface{}{
			line.MaterialID,
			line.Name,
			line.Quantity,
			line.Cost,
			line.Weight,
			line.Share,
		}
		if err := setRow(f, quoteSheet, row, excelRow); err != nil {
			return err
		}
		row++
	}

	row++
	t := d.Quote.Totals
	s := d.Quote.Settings
	summary := [][]interface{}{
		{"flete", s.FreightCost},
		{"mano_de_obra", s.LaborCost},
		{"margen", s.ProfitMargin},
		{"costo_base", t.BaseCost},
		{"peso_total_kg", t.TotalWeight},
		{"total", t.FinalPrice},
		{"moneda", d.Currency},
	}
	for _, r := range summary {
		if err := setRow(f, quoteSheet, row, r); err != nil {
			return err
		}
		row++
	}

	partsHeader := []interface{}{"linea", "material_id", "parte_id", "parte", "unidad", "cantidad"}
	if err := f.SetSheetRow(partsSheet, "A1", &partsHeader); err != nil {
		return fmt.Errorf("write parts header: %w", err)
	}
	row = 2
	for i, line := range d.Quote.Lines {
		for _, p := range line.Parts {
			excelRow := []interface{}{i + 1, line.MaterialID, p.MaterialID, p.Name, string(p.Unit), p.Quantity}
			if err := setRow(f, partsSheet, row, excelRow); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// XLSX returns the workbook bytes of d.
func XLSX(d Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteXLSX(buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
