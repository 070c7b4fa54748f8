package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

// handleListSlots returns all slots with a live occupancy summary.
func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.slots.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list slots", "error", err)
		writeInternalError(w, "failed to list slots")
		return
	}

	occupied := 0
	for _, slot := range slots {
		if slot.Status == parking.SlotOccupied {
			occupied++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slots":     slots,
		"total":     len(slots),
		"occupied":  occupied,
		"available": len(slots) - occupied,
	})
}

// handleGetSlot returns a single slot by ID.
func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid slot ID")
		return
	}

	slot, err := s.slots.Get(r.Context(), slotID)
	if err != nil {
		if errors.Is(err, parking.ErrSlotNotFound) {
			writeNotFound(w, "slot not found")
			return
		}
		s.logger.Error("failed to get slot", "slot_id", slotID, "error", err)
		writeInternalError(w, "failed to get slot")
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// handleSlotHistory returns the entry/exit log for a single slot.
func (s *Server) handleSlotHistory(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid slot ID")
		return
	}

	filter := parking.LogFilter{
		SlotID: slotID,
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}

	result, err := s.logs.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list slot history", "slot_id", slotID, "error", err)
		writeInternalError(w, "failed to list slot history")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReleaseSlot manually frees a slot. Used when a car left without a
// recorded exit (reader failure, tailgating) and the slot is stuck occupied.
func (s *Server) handleReleaseSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid slot ID")
		return
	}

	if err := s.slots.Release(r.Context(), slotID); err != nil {
		if errors.Is(err, parking.ErrSlotNotFound) {
			writeNotFound(w, "slot not found")
			return
		}
		s.logger.Error("failed to release slot", "slot_id", slotID, "error", err)
		writeInternalError(w, "failed to release slot")
		return
	}

	claims := callerClaims(r)
	s.logger.Info("slot manually released", "slot_id", slotID, "by", claims.Username)

	slot, err := s.slots.Get(r.Context(), slotID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"slot_id": slotID, "status": parking.SlotAvailable})
		return
	}
	writeJSON(w, http.StatusOK, slot)
}
