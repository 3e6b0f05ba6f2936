// Package handlers provides HTTP handlers for currency operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Converter performs informational conversions
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (currency.Quote, error)
}

// SnapshotSource exposes cached rate tables
type SnapshotSource interface {
	Snapshot(base string) (currency.Snapshot, bool)
	Bases() []string
}

// Handler handles currency HTTP requests
type Handler struct {
	converter Converter
	rates     currency.RateSource
	snapshots SnapshotSource
	log       zerolog.Logger
}

// NewHandler creates a new currency handler.
// snapshots is optional.
func NewHandler(
	converter Converter,
	rates currency.RateSource,
	snapshots SnapshotSource,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		converter: converter,
		rates:     rates,
		snapshots: snapshots,
		log:       log.With().Str("handler", "currency").Logger(),
	}
}

// ConvertRequest represents a request to convert currency
type ConvertRequest struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Amount       float64 `json:"amount"`
}

// HandleConvert handles POST /api/currency/convert
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.FromCurrency == "" || req.ToCurrency == "" {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", "from_currency and to_currency are required")
		return
	}

	if req.Amount < 0 {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", "amount must not be negative")
		return
	}

	quote, err := h.converter.Convert(r.Context(), req.Amount, req.FromCurrency, req.ToCurrency)
	if err != nil {
		h.writeRateError(w, err, req.FromCurrency, req.ToCurrency)
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"from_currency": quote.From,
		"to_currency":   quote.To,
		"from_amount":   quote.Amount,
		"to_amount":     quote.Converted,
		"rate":          quote.Rate,
	})
}

// HandleGetRate handles GET /api/currency/rate/{from}/{to}
func (h *Handler) HandleGetRate(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	rate, err := h.rates.GetExchangeRate(r.Context(), from, to)
	if err != nil {
		h.writeRateError(w, err, from, to)
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"from_currency": from,
		"to_currency":   to,
		"rate":          rate,
	})
}

// HandleGetCachedRates handles GET /api/currency/rates
func (h *Handler) HandleGetCachedRates(w http.ResponseWriter, r *http.Request) {
	tables := []currency.Snapshot{}
	if h.snapshots != nil {
		for _, base := range h.snapshots.Bases() {
			if snap, ok := h.snapshots.Snapshot(base); ok {
				tables = append(tables, snap)
			}
		}
	}

	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"tables": tables,
		"count":  len(tables),
	})
}

// writeRateError maps the rate error taxonomy to HTTP statuses
func (h *Handler) writeRateError(w http.ResponseWriter, err error, from, to string) {
	switch {
	case errors.Is(err, currency.ErrInvalidInput):
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
	case currency.IsUnsupportedCurrency(err):
		httputil.WriteError(w, &h.log, http.StatusUnprocessableEntity, "UNSUPPORTED_CURRENCY", err.Error())
	case currency.IsRateProviderError(err):
		h.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Rate provider unavailable")
		httputil.WriteError(w, &h.log, http.StatusBadGateway, "RATE_PROVIDER", "Exchange rate provider unavailable")
	default:
		h.log.Error().Err(err).Str("from", from).Str("to", to).Msg("Failed to get exchange rate")
		httputil.WriteError(w, &h.log, http.StatusInternalServerError, "INTERNAL", "Failed to get exchange rate")
	}
}
