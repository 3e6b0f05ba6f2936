// Package httputil holds the JSON envelope and request identity helpers shared by HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// UserIDHeader carries the owning user id, set by the upstream identity provider
const UserIDHeader = "X-User-ID"

type contextKey struct{}

// WithUserID returns a context carrying userID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the user id stored in ctx, or "" if none
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// RequireUser rejects requests without the user id header and stores the id in the request context
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			WriteError(w, zerolog.Ctx(r.Context()), http.StatusUnauthorized, "UNAUTHENTICATED", "missing "+UserIDHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WriteJSON writes data as a JSON response
func WriteJSON(w http.ResponseWriter, log *zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil && log != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteData writes the standard {"data", "metadata"} envelope
func WriteData(w http.ResponseWriter, log *zerolog.Logger, status int, data interface{}) {
	WriteJSON(w, log, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// WriteError writes the standard {"error": {"message", "code"}} envelope
func WriteError(w http.ResponseWriter, log *zerolog.Logger, status int, code, message string) {
	WriteJSON(w, log, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"code":    code,
		},
	})
}
