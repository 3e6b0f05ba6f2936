// Package handlers provides HTTP handlers for user profile operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/profiles"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ProfileService reads and updates profiles
type ProfileService interface {
	Get(ctx context.Context, userID string) (*profiles.Profile, error)
	SetDefaultCurrency(ctx context.Context, userID, code string) (*profiles.Profile, error)
}

// Reconverter rewrites stored conversions into the current default currency
type Reconverter interface {
	Reconvert(ctx context.Context, userID string) (transactions.MigrationReport, error)
}

// Handler handles profile HTTP requests
type Handler struct {
	profiles    ProfileService
	reconverter Reconverter
	log         zerolog.Logger
}

// NewHandler creates a new profile handler
func NewHandler(profiles ProfileService, reconverter Reconverter, log zerolog.Logger) *Handler {
	return &Handler{
		profiles:    profiles,
		reconverter: reconverter,
		log:         log.With().Str("handler", "profiles").Logger(),
	}
}

// UpdateProfileRequest is the body of PUT /api/profile
type UpdateProfileRequest struct {
	DefaultCurrency string `json:"default_currency"`
	Reconvert       bool   `json:"reconvert"` // Also rewrite stored conversions into the new currency
}

// HandleGetProfile handles GET /api/profile
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), httputil.UserID(r.Context()))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get profile")
		httputil.WriteError(w, &h.log, http.StatusInternalServerError, "PERSISTENCE", "Failed to get profile")
		return
	}
	httputil.WriteData(w, &h.log, http.StatusOK, p)
}

// HandleUpdateProfile handles PUT /api/profile
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		httputil.WriteError(w, &h.log, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	userID := httputil.UserID(r.Context())
	p, err := h.profiles.SetDefaultCurrency(r.Context(), userID, req.DefaultCurrency)
	if err != nil {
		if errors.Is(err, profiles.ErrInvalidCurrency) {
			httputil.WriteError(w, &h.log, http.StatusBadRequest, "VALIDATION", err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to update profile")
		httputil.WriteError(w, &h.log, http.StatusInternalServerError, "PERSISTENCE", "Failed to update profile")
		return
	}

	response := map[string]interface{}{"profile": p}
	if req.Reconvert {
		report, err := h.reconverter.Reconvert(r.Context(), userID)
		if err != nil {
			h.log.Error().Err(err).Str("user_id", userID).Msg("Re-conversion failed")
			httputil.WriteError(w, &h.log, http.StatusInternalServerError, "PERSISTENCE", "Profile updated but re-conversion failed")
			return
		}
		response["reconversion"] = report
	}

	httputil.WriteData(w, &h.log, http.StatusOK, response)
}

// HandleReconvert handles POST /api/profile/reconvert
func (h *Handler) HandleReconvert(w http.ResponseWriter, r *http.Request) {
	userID := httputil.UserID(r.Context())

	report, err := h.reconverter.Reconvert(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Re-conversion failed")
		httputil.WriteError(w, &h.log, http.StatusInternalServerError, "PERSISTENCE", "Re-conversion failed")
		return
	}

	httputil.WriteData(w, &h.log, http.StatusOK, report)
}

// RegisterRoutes registers all profile routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/profile", func(r chi.Router) {
		r.Use(httputil.RequireUser)

		r.Get("/", h.HandleGetProfile)
		r.Put("/", h.HandleUpdateProfile)
		r.Post("/reconvert", h.HandleReconvert)
	})
}
