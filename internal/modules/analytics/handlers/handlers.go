// Package handlers provides HTTP handlers for analytics reports.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/analytics"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles analytics HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleStats handles GET /api/analytics/stats?start=&end=&currency=
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r, "start", "end")
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), httputil.UserID(r.Context()), rng, r.URL.Query().Get("currency"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteData(w, &h.log, http.StatusOK, stats)
}

// HandleReport handles GET /api/analytics/report?start=&end=&currency=&top=&granularity=
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r, "start", "end")
	if !ok {
		return
	}
	g, ok := h.parseGranularity(w, r)
	if !ok {
		return
	}

	top := 0
	if s := r.URL.Query().Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", "top must be a non-negative integer")
			return
		}
		top = n
	}

	report, err := h.service.Report(r.Context(), httputil.UserID(r.Context()), rng, analytics.ReportOptions{
		Currency:    r.URL.Query().Get("currency"),
		TopN:        top,
		Granularity: g,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteData(w, &h.log, http.StatusOK, report)
}

// HandleTrends handles GET /api/analytics/trends?start=&end=&granularity=&currency=
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r, "start", "end")
	if !ok {
		return
	}
	g, ok := h.parseGranularity(w, r)
	if !ok {
		return
	}

	buckets, rec, err := h.service.Trends(r.Context(), httputil.UserID(r.Context()), rng, g, r.URL.Query().Get("currency"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"granularity":    g,
		"buckets":        buckets,
		"reconciliation": rec,
	})
}

// HandleHealth handles GET /api/analytics/health?start=&end=&currency=
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r, "start", "end")
	if !ok {
		return
	}

	health, rec, err := h.service.Health(r.Context(), httputil.UserID(r.Context()), rng, r.URL.Query().Get("currency"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"health":         health,
		"reconciliation": rec,
	})
}

// HandleCompare handles GET /api/analytics/compare?p1_start=&p1_end=&p2_start=&p2_end=&currency=
// Period 1 is the baseline.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	p1, ok := h.parsePeriod(w, r, "p1_start", "p1_end")
	if !ok {
		return
	}
	p2, ok := h.parsePeriod(w, r, "p2_start", "p2_end")
	if !ok {
		return
	}

	cmp, rec, err := h.service.Compare(r.Context(), httputil.UserID(r.Context()), p1, p2, r.URL.Query().Get("currency"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteData(w, &h.log, http.StatusOK, map[string]interface{}{
		"comparison":     cmp,
		"reconciliation": rec,
	})
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request, startParam, endParam string) (analytics.Range, bool) {
	var rng analytics.Range
	var err error
	if rng.Start, err = dateParam(r, startParam); err != nil {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
		return rng, false
	}
	if rng.End, err = dateParam(r, endParam); err != nil {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
		return rng, false
	}
	if rng.Start != nil && rng.End != nil && rng.End.Before(*rng.Start) {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", endParam+" is before "+startParam)
		return rng, false
	}
	return rng, true
}

func (h *Handler) parsePeriod(w http.ResponseWriter, r *http.Request, startParam, endParam string) (analytics.Period, bool) {
	rng, ok := h.parseRange(w, r, startParam, endParam)
	if !ok {
		return analytics.Period{}, false
	}
	if rng.Start == nil || rng.End == nil {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", startParam+" and "+endParam+" are required")
		return analytics.Period{}, false
	}
	return analytics.Period{Start: *rng.Start, End: *rng.End}, true
}

func (h *Handler) parseGranularity(w http.ResponseWriter, r *http.Request) (analytics.Granularity, bool) {
	g, err := analytics.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
		return "", false
	}
	return g, true
}

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

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var rangeErr *analytics.RangeError
	switch {
	case errors.Is(err, analytics.ErrOverlappingPeriods),
		errors.Is(err, currency.ErrInvalidInput),
		errors.As(err, &rangeErr),
		transactions.IsValidation(err):
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
	case transactions.IsPersistence(err):
		h.log.Error().Err(err).Msg("Failed to load transactions")
		httputil.WriteError(w, &h.log, http.StatusInternalServerError, "PERSISTENCE", "Failed to load transactions")
	default:
		h.log.Error().Err(err).Msg("Analytics request failed")
		httputil.WriteError(w, &h.log, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Use(httputil.RequireUser)

		r.Get("/stats", h.HandleStats)
		r.Get("/report", h.HandleReport)
		r.Get("/trends", h.HandleTrends)
		r.Get("/health", h.HandleHealth)
		r.Get("/compare", h.HandleCompare)
	})
}
