package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tomasz-karas/parkgate-core/internal/audit"
	"github.com/tomasz-karas/parkgate-core/internal/ingest"
)

// handleOpenBarrier manually opens one of the two barriers.
func (s *Server) handleOpenBarrier(w http.ResponseWriter, r *http.Request) {
	if s.commander == nil {
		writeServiceUnavailable(w, "gate controller link is not available")
		return
	}

	var req struct {
		Gate string `json:"gate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.commander.OpenBarrier(req.Gate); err != nil {
		if errors.Is(err, ingest.ErrInvalidGate) {
			writeBadRequest(w, "gate must be entrance or exit")
			return
		}
		s.logger.Error("open barrier command failed", "gate", req.Gate, "error", err)
		writeServiceUnavailable(w, "failed to publish command")
		return
	}

	claims := callerClaims(r)
	s.logger.Info("barrier open commanded", "gate", req.Gate, "by", claims.Username)
	s.recordCommand(r, audit.EventCommandSent, "barrier opened manually", map[string]any{
		"command": "open_barrier",
		"gate":    req.Gate,
		"by":      claims.Username,
	})

	writeJSON(w, http.StatusAccepted, map[string]any{"sent": true, "gate": req.Gate})
}

// handleEmergency toggles emergency mode: both barriers open and stay open
// until the mode is lifted.
func (s *Server) handleEmergency(w http.ResponseWriter, r *http.Request) {
	if s.commander == nil {
		writeServiceUnavailable(w, "gate controller link is not available")
		return
	}

	var req struct {
		Enable bool `json:"enable"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.commander.SetEmergency(req.Enable); err != nil {
		s.logger.Error("emergency command failed", "enable", req.Enable, "error", err)
		writeServiceUnavailable(w, "failed to publish command")
		return
	}

	claims := callerClaims(r)
	s.logger.Warn("emergency mode commanded", "enable", req.Enable, "by", claims.Username)
	s.recordEvent(r, audit.EventEmergencyMode, audit.SeverityCritical, "emergency mode toggled", map[string]any{
		"enable": req.Enable,
		"by":     claims.Username,
	})

	writeJSON(w, http.StatusAccepted, map[string]any{"sent": true, "enable": req.Enable})
}

// handleRefreshStatus asks the controller to re-publish its status.
func (s *Server) handleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	if s.commander == nil {
		writeServiceUnavailable(w, "gate controller link is not available")
		return
	}

	if err := s.commander.RequestStatus(); err != nil {
		s.logger.Error("status request failed", "error", err)
		writeServiceUnavailable(w, "failed to publish command")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"sent": true})
}

// handleScanMode toggles scan mode on a reader: scanned cards are reported
// for registration instead of being checked against the whitelist.
func (s *Server) handleScanMode(w http.ResponseWriter, r *http.Request) {
	if s.commander == nil {
		writeServiceUnavailable(w, "gate controller link is not available")
		return
	}

	var req struct {
		Enable bool   `json:"enable"`
		Gate   string `json:"gate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.commander.SetScanMode(req.Enable, req.Gate); err != nil {
		if errors.Is(err, ingest.ErrInvalidGate) {
			writeBadRequest(w, "gate must be entrance or exit")
			return
		}
		s.logger.Error("scan mode command failed", "gate", req.Gate, "error", err)
		writeServiceUnavailable(w, "failed to publish command")
		return
	}

	claims := callerClaims(r)
	s.logger.Info("scan mode commanded", "enable", req.Enable, "gate", req.Gate, "by", claims.Username)
	s.recordCommand(r, audit.EventCommandSent, "scan mode toggled", map[string]any{
		"command": "scan_mode",
		"enable":  req.Enable,
		"gate":    req.Gate,
		"by":      claims.Username,
	})

	writeJSON(w, http.StatusAccepted, map[string]any{"sent": true, "enable": req.Enable, "gate": req.Gate})
}

// handleMQTTStatus reports the broker link state for the dashboard's
// connectivity indicator.
func (s *Server) handleMQTTStatus(w http.ResponseWriter, _ *http.Request) {
	if s.mqtt == nil {
		writeJSON(w, http.StatusOK, map[string]any{"connected": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connected":     s.mqtt.IsConnected(),
		"broker":        s.mqtt.BrokerAddress(),
		"subscriptions": s.mqtt.SubscriptionCount(),
	})
}

// recordCommand writes an info-severity audit event for a gate command.
func (s *Server) recordCommand(r *http.Request, eventType, description string, metadata map[string]any) {
	s.recordEvent(r, eventType, audit.SeverityInfo, description, metadata)
}

// recordEvent writes an audit event, best effort. Commands are accepted even
// when the audit trail is unavailable.
func (s *Server) recordEvent(r *http.Request, eventType, severity, description string, metadata map[string]any) {
	if s.events == nil {
		return
	}
	err := s.events.Record(r.Context(), &audit.SystemEvent{
		EventType:   eventType,
		Severity:    severity,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		s.logger.Warn("failed to record audit event", "type", eventType, "error", err)
	}
}
