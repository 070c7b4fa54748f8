package api

import (
	"net/http"

	"github.com/tomasz-karas/parkgate-core/internal/audit"
)

// handleListEvents returns the system audit trail: backend lifecycle, broker
// connectivity, commands sent, whitelist syncs.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeServiceUnavailable(w, "audit trail is not available")
		return
	}

	filter := audit.Filter{
		EventType: r.URL.Query().Get("event_type"),
		Severity:  r.URL.Query().Get("severity"),
		Limit:     queryInt(r, "limit", 0),
		Offset:    queryInt(r, "offset", 0),
	}

	result, err := s.events.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list system events", "error", err)
		writeInternalError(w, "failed to list system events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
