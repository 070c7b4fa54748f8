// Package audit provides access to the system_events table: controller
// lifecycle messages, backend start/stop, broker connectivity, emergency
// mode changes, and other operational history.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Well-known event types. The column is free-form; these constants cover
// the events the backend itself raises.
const (
	EventBackendStarted  = "backend_started"
	EventBackendStopped  = "backend_stopped"
	EventBrokerConnected = "broker_connected"
	EventBrokerLost      = "broker_lost"
	EventControllerState = "controller_state"
	EventCommandSent     = "command_sent"
	EventEmergencyMode   = "emergency_mode"
	EventWhitelistSynced = "whitelist_synced"
	EventQueueOverflow   = "queue_overflow"
)

// SystemEvent represents a single operational history entry.
type SystemEvent struct {
	EventID     int64          `json:"event_id"`
	EventType   string         `json:"event_type"`
	Severity    string         `json:"severity"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Filter controls which system events to return.
type Filter struct {
	EventType string // optional: filter by event type
	Severity  string // optional: filter by severity
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains the paginated event results.
type ListResult struct {
	Events []SystemEvent `json:"events"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Repository defines the interface for system event operations.
type Repository interface {
	Record(ctx context.Context, event *SystemEvent) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository reads and writes system events in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new system event repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a new system event. Timestamp defaults to now, severity
// to info.
func (r *SQLiteRepository) Record(ctx context.Context, event *SystemEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	var metadataJSON any
	if event.Metadata != nil {
		b, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling event metadata: %w", err)
		}
		metadataJSON = string(b)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO system_events (event_type, severity, description, metadata, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		event.EventType, event.Severity, event.Description,
		metadataJSON, event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting system event: %w", err)
	}

	event.EventID, _ = res.LastInsertId() //nolint:errcheck // always succeeds on SQLite
	return nil
}

// List returns system events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for event queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, filter.Severity)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM system_events %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting system events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT event_id, event_type, severity, description, metadata, timestamp FROM system_events %s ORDER BY timestamp DESC, event_id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying system events: %w", err)
	}
	defer rows.Close()

	events := []SystemEvent{}
	for rows.Next() {
		var ev SystemEvent
		var metadataJSON sql.NullString
		var timestamp string

		if err := rows.Scan(&ev.EventID, &ev.EventType, &ev.Severity,
			&ev.Description, &metadataJSON, &timestamp); err != nil {
			return nil, fmt.Errorf("scanning system event: %w", err)
		}

		if metadataJSON.Valid && metadataJSON.String != "" {
			var metadata map[string]any
			if json.Unmarshal([]byte(metadataJSON.String), &metadata) == nil {
				ev.Metadata = metadata
			}
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339, timestamp) //nolint:errcheck // format is controlled

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating system events: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
