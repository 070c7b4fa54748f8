package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

// defaultUnknownWindow is how far back the recent-unknown view looks.
const defaultUnknownWindow = 24 * time.Hour

type cardRequest struct {
	CardUID      string `json:"card_uid"`
	OwnerName    string `json:"owner_name"`
	OwnerEmail   string `json:"owner_email"`
	Phone        string `json:"phone"`
	VehiclePlate string `json:"vehicle_plate"`
	IsActive     *bool  `json:"is_active"`
	AccessLevel  string `json:"access_level"`
}

// handleListCards returns all registered cards, optionally only active ones.
func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("is_active") == "true"

	cards, err := s.cards.List(r.Context(), activeOnly)
	if err != nil {
		s.logger.Error("failed to list cards", "error", err)
		writeInternalError(w, "failed to list cards")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cards": cards,
		"total": len(cards),
	})
}

// handleGetCard returns a single card by UID.
func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.cards.Get(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		if errors.Is(err, parking.ErrCardNotFound) || errors.Is(err, parking.ErrInvalidCardUID) {
			writeNotFound(w, "card not found")
			return
		}
		s.logger.Error("failed to get card", "error", err)
		writeInternalError(w, "failed to get card")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// handleCreateCard registers a new card and pushes the updated whitelist to
// the gate controller.
func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.OwnerName == "" {
		writeBadRequest(w, "owner_name is required")
		return
	}
	if req.AccessLevel != "" && !parking.IsValidAccessLevel(req.AccessLevel) {
		writeBadRequest(w, "invalid access_level")
		return
	}

	card := parking.Card{
		CardUID:      req.CardUID,
		OwnerName:    req.OwnerName,
		OwnerEmail:   req.OwnerEmail,
		Phone:        req.Phone,
		VehiclePlate: req.VehiclePlate,
		IsActive:     true,
		AccessLevel:  req.AccessLevel,
	}
	if req.IsActive != nil {
		card.IsActive = *req.IsActive
	}

	if err := s.cards.Create(r.Context(), &card); err != nil {
		switch {
		case errors.Is(err, parking.ErrInvalidCardUID):
			writeBadRequest(w, "invalid card UID")
		case errors.Is(err, parking.ErrCardExists):
			writeConflict(w, "card already registered")
		default:
			s.logger.Error("failed to create card", "error", err)
			writeInternalError(w, "failed to create card")
		}
		return
	}

	s.pushWhitelist(r)
	writeJSON(w, http.StatusCreated, card)
}

// handleUpdateCard modifies a card's mutable fields.
func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	existing, err := s.cards.Get(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		if errors.Is(err, parking.ErrCardNotFound) || errors.Is(err, parking.ErrInvalidCardUID) {
			writeNotFound(w, "card not found")
			return
		}
		s.logger.Error("failed to get card", "error", err)
		writeInternalError(w, "failed to update card")
		return
	}

	var req cardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.AccessLevel != "" && !parking.IsValidAccessLevel(req.AccessLevel) {
		writeBadRequest(w, "invalid access_level")
		return
	}

	if req.OwnerName != "" {
		existing.OwnerName = req.OwnerName
	}
	if req.OwnerEmail != "" {
		existing.OwnerEmail = req.OwnerEmail
	}
	if req.Phone != "" {
		existing.Phone = req.Phone
	}
	if req.VehiclePlate != "" {
		existing.VehiclePlate = req.VehiclePlate
	}
	if req.AccessLevel != "" {
		existing.AccessLevel = req.AccessLevel
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := s.cards.Update(r.Context(), existing); err != nil {
		s.logger.Error("failed to update card", "error", err)
		writeInternalError(w, "failed to update card")
		return
	}

	s.pushWhitelist(r)
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteCard deactivates a card. The row is kept so historical logs
// still resolve to an owner; reactivation is a PUT with is_active true.
func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.cards.Get(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		if errors.Is(err, parking.ErrCardNotFound) || errors.Is(err, parking.ErrInvalidCardUID) {
			writeNotFound(w, "card not found")
			return
		}
		s.logger.Error("failed to get card", "error", err)
		writeInternalError(w, "failed to deactivate card")
		return
	}

	if card.IsActive {
		card.IsActive = false
		if err := s.cards.Update(r.Context(), card); err != nil {
			s.logger.Error("failed to deactivate card", "error", err)
			writeInternalError(w, "failed to deactivate card")
			return
		}
		s.pushWhitelist(r)
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCardHistory returns the entry/exit log for a single card.
func (s *Server) handleCardHistory(w http.ResponseWriter, r *http.Request) {
	uid, err := parking.NormalizeCardUID(chi.URLParam(r, "uid"))
	if err != nil {
		writeNotFound(w, "card not found")
		return
	}

	filter := parking.LogFilter{
		CardUID: uid,
		Limit:   queryInt(r, "limit", 0),
		Offset:  queryInt(r, "offset", 0),
	}

	result, err := s.logs.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list card history", "card_uid", uid, "error", err)
		writeInternalError(w, "failed to list card history")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRecentUnknownCards lists card UIDs seen at a reader recently that are
// not registered, to speed up onboarding from a physical scan.
func (s *Server) handleRecentUnknownCards(w http.ResponseWriter, r *http.Request) {
	window := defaultUnknownWindow
	if hours := queryInt(r, "hours", 0); hours > 0 {
		window = time.Duration(hours) * time.Hour
	}

	unknown, err := s.cards.RecentUnknown(r.Context(), window, queryInt(r, "limit", 0))
	if err != nil {
		s.logger.Error("failed to list unknown cards", "error", err)
		writeInternalError(w, "failed to list unknown cards")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cards": unknown,
		"total": len(unknown),
	})
}

// handleSyncWhitelist pushes the current active card list to the controller
// on demand. An empty list is a valid push: it clears the controller.
func (s *Server) handleSyncWhitelist(w http.ResponseWriter, r *http.Request) {
	if s.commander == nil {
		writeServiceUnavailable(w, "gate controller link is not available")
		return
	}

	active, err := s.cards.List(r.Context(), true)
	if err != nil {
		s.logger.Error("failed to collect active cards", "error", err)
		writeInternalError(w, "failed to sync whitelist")
		return
	}

	if err := s.commander.SyncWhitelist(active); err != nil {
		s.logger.Error("whitelist sync failed", "cards", len(active), "error", err)
		writeServiceUnavailable(w, "failed to publish whitelist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"synced": true,
		"cards":  len(active),
	})
}

// pushWhitelist pushes the active card list after a card mutation.
// Best effort: the controller may be offline, in which case the next manual
// or scheduled sync catches up. The HTTP mutation itself already succeeded.
func (s *Server) pushWhitelist(r *http.Request) {
	if s.commander == nil {
		return
	}

	active, err := s.cards.List(r.Context(), true)
	if err != nil {
		s.logger.Warn("failed to collect active cards for sync", "error", err)
		return
	}
	if err := s.commander.SyncWhitelist(active); err != nil {
		s.logger.Warn("automatic whitelist sync failed", "cards", len(active), "error", err)
	}
}

// queryInt parses an integer query parameter, returning the default when
// missing or malformed.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
