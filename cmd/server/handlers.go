package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/quoteworks/internal/export"
	"github.com/Simplici0/quoteworks/internal/materials"
	"github.com/Simplici0/quoteworks/internal/pricing"
	"github.com/Simplici0/quoteworks/internal/quote"
	"github.com/Simplici0/quoteworks/internal/store"
	"github.com/Simplici0/quoteworks/internal/units"
)

type quoteRequest struct {
	Title    string            `json:"title"`
	Notes    string            `json:"notes"`
	Items    []quote.LineItem  `json:"items"`
	Settings *pricing.Settings `json:"settings,omitempty"`
}

type quoteResponse struct {
	ID       int64       `json:"id,omitempty"`
	Currency string      `json:"currency"`
	Quote    quote.Quote `json:"quote"`
}

func (s *server) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	list, err := s.material.List(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to load materials", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) handleMaterialsGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.material.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "material no encontrado")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to load material", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) handleMaterialsCreate(w http.ResponseWriter, r *http.Request) {
	var m materials.Material
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateMaterial(&m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.material.Create(r.Context(), m)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "ya existe un material con ese id")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to create material", err)
		return
	}
	s.requestLog(r).Info("material created", "id", created.ID, "components", len(created.Components))
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleMaterialsUpdate(w http.ResponseWriter, r *http.Request) {
	var m materials.Material
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if m.ID != "" && m.ID != id {
		writeError(w, http.StatusBadRequest, "el id del cuerpo no coincide con la ruta")
		return
	}
	m.ID = id
	if err := validateMaterial(&m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.material.Update(r.Context(), m)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "material no encontrado")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to update material", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) handleMaterialsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.material.Deactivate(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "material no encontrado")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to deactivate material", err)
		return
	}
	s.requestLog(r).Info("material deactivated", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// validateMaterial checks the fields the engine relies on. Cycles are left to
// the resolver since they may span materials not in this request.
func validateMaterial(m *materials.Material) error {
	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return fmt.Errorf("name es requerido")
	}
	if m.Unit == "" {
		m.Unit = units.Piece
	}
	if !units.Known(m.Unit) {
		return fmt.Errorf("unit %q no es una unidad soportada", m.Unit)
	}
	if err := nonNegative(m.UnitCost, "unit_cost"); err != nil {
		return err
	}
	if err := nonNegative(m.UnitWeight, "unit_weight"); err != nil {
		return err
	}

	dims := []struct {
		field   string
		measure *materials.Measure
		dim     units.Dimension
	}{
		{"diameter", m.Dimensions.Diameter, units.Length},
		{"length", m.Dimensions.Length, units.Length},
		{"width", m.Dimensions.Width, units.Length},
		{"weight", m.Dimensions.Weight, units.Weight},
	}
	for _, d := range dims {
		if d.measure == nil {
			continue
		}
		if err := nonNegative(d.measure.Value, d.field); err != nil {
			return err
		}
		if got, ok := units.DimensionOf(d.measure.Unit); !ok || got != d.dim {
			return fmt.Errorf("%s: unidad %q no es válida", d.field, d.measure.Unit)
		}
	}

	for i, c := range m.Components {
		if strings.TrimSpace(c.MaterialID) == "" {
			return fmt.Errorf("components[%d].material_id es requerido", i)
		}
		if m.ID != "" && c.MaterialID == m.ID {
			return fmt.Errorf("components[%d]: un material no puede contenerse a sí mismo", i)
		}
		if err := nonNegative(c.Quantity, fmt.Sprintf("components[%d].quantity", i)); err != nil {
			return err
		}
	}
	return nil
}

func nonNegative(v float64, field string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s debe ser numérico", field)
	}
	if v < 0 {
		return fmt.Errorf("%s debe ser mayor o igual a 0", field)
	}
	return nil
}

func (s *server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if err := decodeJSON(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))

	err := s.settings.Update(r.Context(), settings)
	var invalid *pricing.InvalidSettingsError
	if errors.As(err, &invalid) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: fmt.Sprintf("%s: %v", engineMessages[quote.KindInvalidSettings], err),
			Kind:  quote.KindInvalidSettings,
		})
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to save settings", err)
		return
	}

	saved, err := s.settings.Get(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func parseQuoteRequest(r *http.Request) (quoteRequest, error) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Notes = strings.TrimSpace(req.Notes)
	if len(req.Items) == 0 {
		return req, fmt.Errorf("items es requerido")
	}
	for i := range req.Items {
		req.Items[i].MaterialID = strings.TrimSpace(req.Items[i].MaterialID)
		if req.Items[i].MaterialID == "" {
			return req, fmt.Errorf("items[%d].material_id es requerido", i)
		}
	}
	return req, nil
}

// computeQuote loads the settings in effect and the catalog closure of the
// requested materials, then runs the engine. Settings in the request replace
// the stored ones for this calculation only.
func (s *server) computeQuote(ctx context.Context, req quoteRequest) (quote.Quote, string, error) {
	current, err := s.settings.Get(ctx)
	if err != nil {
		return quote.Quote{}, "", err
	}
	settings := current.Settings
	if req.Settings != nil {
		settings = *req.Settings
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.MaterialID)
	}
	catalog, err := s.material.LoadCatalog(ctx, ids)
	if err != nil {
		return quote.Quote{}, "", err
	}

	q, err := s.engine.Compute(req.Items, settings, catalog)
	if err != nil {
		return quote.Quote{}, "", err
	}
	return q, current.Currency, nil
}

func (s *server) handleQuotesCalc(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuoteRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	q, currency, err := s.computeQuote(r.Context(), req)
	if err != nil {
		if !s.writeEngineError(w, r, err) {
			s.internalError(w, r, "failed to compute quote", err)
		}
		return
	}
	s.metrics.ObserveComputed(false, len(q.Lines), time.Since(start))

	writeJSON(w, http.StatusOK, quoteResponse{Currency: currency, Quote: q})
}

func (s *server) handleQuotesCreate(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuoteRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	q, currency, err := s.computeQuote(r.Context(), req)
	if err != nil {
		if !s.writeEngineError(w, r, err) {
			s.internalError(w, r, "failed to compute quote", err)
		}
		return
	}

	id, err := s.quotes.Save(r.Context(), req.Title, req.Notes, currency, q)
	if err != nil {
		s.internalError(w, r, "failed to save quote", err)
		return
	}
	s.metrics.ObserveComputed(true, len(q.Lines), time.Since(start))
	s.requestLog(r).Info("quote saved", "id", id, "lines", len(q.Lines), "final_price", q.Totals.FinalPrice)

	w.Header().Set("Location", fmt.Sprintf("/quotes/%d", id))
	writeJSON(w, http.StatusCreated, quoteResponse{ID: id, Currency: currency, Quote: q})
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	quotes, err := s.quotes.List(r.Context(), query)
	if err != nil {
		s.internalError(w, r, "failed to load quotes", err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

// loadStoredQuote writes the error response itself and reports false when
// the quote cannot be served.
func (s *server) loadStoredQuote(w http.ResponseWriter, r *http.Request) (store.StoredQuote, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id de cotización inválido")
		return store.StoredQuote{}, false
	}

	sq, err := s.quotes.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "cotización no encontrada")
		return store.StoredQuote{}, false
	}
	if err != nil {
		s.internalError(w, r, "failed to load quote", err)
		return store.StoredQuote{}, false
	}
	return sq, true
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	sq, ok := s.loadStoredQuote(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sq)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	sq, ok := s.loadStoredQuote(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(export.Text(documentOf(sq))))
}

func (s *server) handleQuoteXLSX(w http.ResponseWriter, r *http.Request) {
	sq, ok := s.loadStoredQuote(w, r)
	if !ok {
		return
	}
	data, err := export.XLSX(documentOf(sq))
	if err != nil {
		s.internalError(w, r, "failed to build workbook", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="cotizacion_%d.xlsx"`, sq.ID))
	_, _ = w.Write(data)
}

func documentOf(sq store.StoredQuote) export.Document {
	return export.Document{
		ID:        sq.ID,
		CreatedAt: sq.CreatedAt,
		Title:     sq.Title,
		Notes:     sq.Notes,
		Currency:  sq.Currency,
		Quote:     sq.Quote,
	}
}

func (s *server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.requestLog(r).Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}
