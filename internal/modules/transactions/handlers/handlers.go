// Package handlers provides HTTP handlers for transaction operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/analytics"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Store is the transaction service used by the handlers
type Store interface {
	Create(ctx context.Context, in transactions.CreateInput) (*transactions.WriteResult, error)
	Update(ctx context.Context, userID, id string, in transactions.UpdateInput) (*transactions.WriteResult, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	Get(ctx context.Context, userID, id string) (*domain.Transaction, error)
	FindByDateRange(ctx context.Context, userID string, start, end *time.Time) ([]domain.Transaction, error)
	Search(ctx context.Context, userID, query string, limit int) ([]domain.Transaction, error)
	GetStats(ctx context.Context, userID string, start, end *time.Time) (analytics.Stats, error)
}

// Handler handles transaction HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new transaction handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "transactions").Logger(),
	}
}

// CreateRequest is the body of POST /api/transactions.
// Either Amount (with an optional Currency) or the resolved pair ConvertedAmount and
// ConvertedCurrency together with OriginalAmount and OriginalCurrency must be set.
type CreateRequest struct {
	Date        string `json:"date"` // YYYY-MM-DD, default today
	Category    string `json:"category"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Vendor      string `json:"vendor"`

	Amount   *float64 `json:"amount"`
	Currency string   `json:"currency"`

	OriginalAmount    *float64 `json:"original_amount"`
	OriginalCurrency  string   `json:"original_currency"`
	ConvertedAmount   *float64 `json:"converted_amount"`
	ConvertedCurrency string   `json:"converted_currency"`
	ConversionRate    float64  `json:"conversion_rate"`
	ConversionFee     float64  `json:"conversion_fee"`
}

func (req CreateRequest) amountInput() (currency.Input, error) {
	if req.ConvertedAmount != nil {
		if req.OriginalAmount == nil {
			return currency.Input{}, errors.New("original_amount is required with converted_amount")
		}
		return currency.FromResolvedQuadruple(domain.Conversion{
			OriginalAmount:    *req.OriginalAmount,
			OriginalCurrency:  req.OriginalCurrency,
			ConvertedAmount:   *req.ConvertedAmount,
			ConvertedCurrency: req.ConvertedCurrency,
			ConversionRate:    req.ConversionRate,
			ConversionFee:     req.ConversionFee,
		}), nil
	}

	amount := req.Amount
	code := req.Currency
	if amount == nil {
		amount = req.OriginalAmount
		if code == "" {
			code = req.OriginalCurrency
		}
	}
	if amount == nil {
		return currency.Input{}, errors.New("amount is required")
	}
	return currency.FromLegacyAmount(*amount, code), nil
}

// UpdateRequest is the body of PATCH /api/transactions/{id}. Omitted fields are kept.
type UpdateRequest struct {
	Date        *string  `json:"date"`
	Category    *string  `json:"category"`
	Type        *string  `json:"type"`
	Description *string  `json:"description"`
	Vendor      *string  `json:"vendor"`
	Amount      *float64 `json:"amount"`
	Currency    *string  `json:"currency"`
}

// HandleCreate handles POST /api/transactions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	in := transactions.CreateInput{
		UserID:      httputil.UserID(r.Context()),
		Category:    req.Category,
		Description: req.Description,
		Vendor:      req.Vendor,
	}

	amount, err := req.amountInput()
	if err != nil {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	in.Amount = amount

	if req.Type != "" {
		if in.Type, err = domain.ParseTransactionType(req.Type); err != nil {
			httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
			return
		}
	}
	if req.Date != "" {
		if in.Date, err = utils.ParseDate(req.Date); err != nil {
			httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", "date must be YYYY-MM-DD")
			return
		}
	}

	res, err := h.store.Create(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httputil.WriteData(w, &h.log, http.StatusCreated, res)
}

// HandleList handles GET /api/transactions?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	txs, err := h.store.FindByDateRange(r.Context(), httputil.UserID(r.Context()), start, end)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// HandleSearch handles GET /api/transactions/search?q=...&limit=N
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", "limit must be a positive integer")
			return
		}
		limit = n
	}

	query := r.URL.Query().Get("q")
	txs, err := h.store.Search(r.Context(), httputil.UserID(r.Context()), query, limit)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"query":        query,
		"transactions": txs,
		"count":        len(txs),
	})
}

// HandleStats handles GET /api/transactions/stats?start=&end=
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	stats, err := h.store.GetStats(r.Context(), httputil.UserID(r.Context()), start, end)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, stats)
}

// HandleGet handles GET /api/transactions/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tx, err := h.store.Get(r.Context(), httputil.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteData(w, &h.log, http.StatusOK, tx)
}

// HandleUpdate handles PATCH /api/transactions/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	in := transactions.UpdateInput{
		Category:    req.Category,
		Description: req.Description,
		Vendor:      req.Vendor,
		Amount:      req.Amount,
		Currency:    req.Currency,
	}
	if req.Type != nil {
		t, err := domain.ParseTransactionType(*req.Type)
		if err != nil {
			httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
			return
		}
		in.Type = &t
	}
	if req.Date != nil {
		d, err := utils.ParseDate(*req.Date)
		if err != nil {
			httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", "date must be YYYY-MM-DD")
			return
		}
		in.Date = &d
	}

	res, err := h.store.Update(r.Context(), httputil.UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, res)
}

// HandleDelete handles DELETE /api/transactions/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := h.store.Delete(r.Context(), httputil.UserID(r.Context()), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !removed {
		httputil.WriteError(w, &h.log, http.StatusNotFound, "NOT_FOUND", transactions.ErrNotFound.Error())
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (*time.Time, *time.Time, bool) {
	start, err := dateParam(r, "start")
	if err != nil {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
		return nil, nil, false
	}
	end, err := dateParam(r, "end")
	if err != nil {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
		return nil, nil, false
	}
	return start, end, true
}

// dateParam parses an optional YYYY-MM-DD query parameter
func dateParam(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	d, err := utils.ParseDate(s)
	if err != nil {
		return nil, errors.New(name + " must be YYYY-MM-DD")
	}
	return &d, nil
}

// writeStoreError maps store errors to HTTP statuses. Ownership mismatches are plain 404s.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transactions.ErrNotFound):
		httputil.WriteError(w, &h.log, http.StatusNotFound, "NOT_FOUND", err.Error())
	case transactions.IsValidation(err):
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
	case transactions.IsPersistence(err):
		h.log.Error().Err(err).Msg("Transaction storage failed")
		httputil.WriteError(w, &h.log, http.StatusInternalServerError, "PERSISTENCE", "Failed to access transactions")
	default:
		h.log.Error().Err(err).Msg("Transaction request failed")
		httputil.WriteError(w, &h.log, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}
