package api

import (
	"net/http"
)

// Trend window bounds in days.
const (
	defaultTrendDays = 7
	maxTrendDays     = 90
)

// handleDashboardStats returns the aggregate dashboard numbers.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Dashboard(r.Context())
	if err != nil {
		s.logger.Error("failed to compute dashboard stats", "error", err)
		writeInternalError(w, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handlePeakHours returns per-hour entry/exit counts over the given window.
func (s *Server) handlePeakHours(w http.ResponseWriter, r *http.Request) {
	days := clampTrendDays(queryInt(r, "days", defaultTrendDays))

	buckets, err := s.stats.PeakHours(r.Context(), days)
	if err != nil {
		s.logger.Error("failed to compute peak hours", "error", err)
		writeInternalError(w, "failed to compute statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"hours": buckets,
	})
}

// handleOccupancyTrend returns per-day entries, exits, and revenue over the
// given window.
func (s *Server) handleOccupancyTrend(w http.ResponseWriter, r *http.Request) {
	days := clampTrendDays(queryInt(r, "days", defaultTrendDays))

	buckets, err := s.stats.DailyTrend(r.Context(), days)
	if err != nil {
		s.logger.Error("failed to compute occupancy trend", "error", err)
		writeInternalError(w, "failed to compute statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"trend": buckets,
	})
}

func clampTrendDays(days int) int {
	if days <= 0 {
		return defaultTrendDays
	}
	if days > maxTrendDays {
		return maxTrendDays
	}
	return days
}
