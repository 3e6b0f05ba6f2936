package server

import (
	"net/http"

	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
)

// handleHealth handles liveness probes; it never touches the database
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, &s.log, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "coinmind",
	})
}
