package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

// defaultRecentLogs is the row count for the recent-activity view.
const defaultRecentLogs = 20

// exportPageSize is the batch size used when streaming a CSV export.
const exportPageSize = 500

// logFilterFromQuery builds a LogFilter from request query parameters.
// Unparseable values are ignored rather than rejected; an admin fixing a
// hand-edited URL should still get a result.
func logFilterFromQuery(r *http.Request) parking.LogFilter {
	q := r.URL.Query()

	filter := parking.LogFilter{
		CardUID: q.Get("card_uid"),
		Action:  q.Get("action"),
		Status:  q.Get("status"),
		Gate:    q.Get("gate"),
		Limit:   queryInt(r, "limit", 0),
		Offset:  queryInt(r, "offset", 0),
	}

	if raw := q.Get("slot_id"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filter.SlotID = v
		}
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &t
		}
	}

	return filter
}

// handleListLogs returns a filtered, paginated page of the entry/exit log.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	result, err := s.logs.List(r.Context(), logFilterFromQuery(r))
	if err != nil {
		s.logger.Error("failed to list logs", "error", err)
		writeInternalError(w, "failed to list logs")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRecentLogs returns the latest log entries for the dashboard feed.
func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultRecentLogs)

	entries, err := s.logs.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list recent logs", "error", err)
		writeInternalError(w, "failed to list recent logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"total": len(entries),
	})
}

// handleExportLogs streams the filtered log as CSV. The same query
// parameters as the list endpoint apply; pagination parameters are ignored
// and the full filtered set is exported in pages.
func (s *Server) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	filter := logFilterFromQuery(r)
	filter.Limit = exportPageSize
	filter.Offset = 0

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="parking-logs-%s.csv"`, time.Now().UTC().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	header := []string{"log_id", "card_uid", "slot_id", "action", "gate", "status", "timestamp", "duration_minutes", "fee_amount"}
	if err := cw.Write(header); err != nil {
		return
	}

	for {
		page, err := s.logs.List(r.Context(), filter)
		if err != nil {
			// Headers are already sent; all we can do is stop and log.
			s.logger.Error("log export aborted", "offset", filter.Offset, "error", err)
			return
		}

		for _, entry := range page.Logs {
			if err := cw.Write(csvRecord(entry)); err != nil {
				return
			}
		}

		filter.Offset += len(page.Logs)
		if filter.Offset >= page.Total || len(page.Logs) == 0 {
			break
		}
	}

	cw.Flush()
}

func csvRecord(entry parking.LogEntry) []string {
	slotID := ""
	if entry.SlotID != nil {
		slotID = strconv.Itoa(*entry.SlotID)
	}
	duration := ""
	if entry.DurationMinutes != nil {
		duration = strconv.Itoa(*entry.DurationMinutes)
	}
	fee := ""
	if entry.FeeAmount != nil {
		fee = strconv.FormatFloat(*entry.FeeAmount, 'f', 2, 64)
	}

	return []string{
		strconv.FormatInt(entry.LogID, 10),
		entry.CardUID,
		slotID,
		entry.Action,
		entry.Gate,
		entry.Status,
		entry.Timestamp.UTC().Format(time.RFC3339),
		duration,
		fee,
	}
}
