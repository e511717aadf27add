package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/quoteworks/internal/logger"
	"github.com/Simplici0/quoteworks/internal/quote"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("el cuerpo de la solicitud está vacío")
		}
		return fmt.Errorf("JSON inválido: %w", err)
	}
	return nil
}

var engineMessages = map[string]string{
	quote.KindUnsupportedUnit:   "unidad no soportada",
	quote.KindCyclicComposition: "la composición del material es cíclica",
	quote.KindTooDeep:           "la composición del material es demasiado profunda",
	quote.KindInvalidQuantity:   "cantidad inválida",
	quote.KindInvalidSettings:   "configuración de precios inválida",
	quote.KindMissingMaterial:   "material no encontrado",
}

// writeEngineError answers 422 for errors raised by the quote engine and
// reports false for anything else so the caller can fall back to a 500.
func (s *server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) bool {
	kind := quote.ErrorKind(err)
	if kind == "" {
		return false
	}
	s.metrics.ObserveRejected(kind)
	s.requestLog(r).Warn("quote rejected", "kind", kind, "error", err)
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error: fmt.Sprintf("%s: %v", engineMessages[kind], err),
		Kind:  kind,
	})
	return true
}

// requestLog returns the server logger tagged with the request id.
func (s *server) requestLog(r *http.Request) *logger.Logger {
	return s.log.With("request_id", middleware.GetReqID(r.Context()))
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log := s.requestLog(r)
			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"took", time.Since(start),
			}
			if status >= http.StatusInternalServerError {
				log.Error("request", fields...)
				return
			}
			log.Debug("request", fields...)
		}()
		next.ServeHTTP(ww, r)
	})
}
