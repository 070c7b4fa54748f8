package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

type pricingRequest struct {
	HourlyRate         *float64 `json:"hourly_rate"`
	DailyMaxRate       *float64 `json:"daily_max_rate"`
	GracePeriodMinutes *int     `json:"grace_period_minutes"`
}

// handleGetPricing returns the active fee policy.
func (s *Server) handleGetPricing(w http.ResponseWriter, r *http.Request) {
	pricing, err := s.pricing.Get(r.Context())
	if err != nil {
		s.logger.Error("failed to load pricing", "error", err)
		writeInternalError(w, "failed to load pricing")
		return
	}
	writeJSON(w, http.StatusOK, pricing)
}

// handleUpdatePricing updates the fee policy. Omitted fields keep their
// current values. Applies to exits from this point on; recorded fees in the
// log are never rewritten.
func (s *Server) handleUpdatePricing(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	current, err := s.pricing.Get(r.Context())
	if err != nil {
		s.logger.Error("failed to load pricing", "error", err)
		writeInternalError(w, "failed to update pricing")
		return
	}

	if req.HourlyRate != nil {
		current.HourlyRate = *req.HourlyRate
	}
	if req.DailyMaxRate != nil {
		current.DailyMaxRate = *req.DailyMaxRate
	}
	if req.GracePeriodMinutes != nil {
		current.GracePeriodMinutes = *req.GracePeriodMinutes
	}

	if err := s.pricing.Update(r.Context(), current); err != nil {
		if errors.Is(err, parking.ErrInvalidPricing) {
			writeBadRequest(w, "pricing values must not be negative")
			return
		}
		s.logger.Error("failed to update pricing", "error", err)
		writeInternalError(w, "failed to update pricing")
		return
	}

	claims := callerClaims(r)
	s.logger.Info("pricing updated",
		"hourly_rate", current.HourlyRate,
		"daily_max_rate", current.DailyMaxRate,
		"grace_period_minutes", current.GracePeriodMinutes,
		"by", claims.Username,
	)
	writeJSON(w, http.StatusOK, current)
}
