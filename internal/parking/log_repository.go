package parking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LogFilter controls which entry/exit logs to return.
type LogFilter struct {
	CardUID string     // optional: filter by card UID (normalised by the repository)
	SlotID  int        // optional: filter by slot (0 = all)
	Action  string     // optional: entry, exit, scan
	Status  string     // optional: success, denied
	Gate    string     // optional: entrance, exit
	From    *time.Time // optional: inclusive lower bound
	To      *time.Time // optional: exclusive upper bound
	Limit   int        // default 50, max 500
	Offset  int        // pagination offset
}

// LogListResult contains paginated log results.
type LogListResult struct {
	Logs   []LogEntry `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// LogRepository defines the interface for entry/exit log persistence.
type LogRepository interface {
	// Get retrieves a single log entry by ID.
	// Returns ErrLogNotFound if the entry does not exist.
	Get(ctx context.Context, logID int64) (*LogEntry, error)

	// List returns logs matching the filter, most recent first.
	List(ctx context.Context, filter LogFilter) (*LogListResult, error)

	// Recent returns the most recent N logs across all cards.
	Recent(ctx context.Context, limit int) ([]LogEntry, error)
}

// SQLiteLogRepository implements LogRepository using SQLite.
//
// Log rows are inserted by the Recorder inside event transactions; this
// repository only reads.
type SQLiteLogRepository struct {
	db *sql.DB
}

// NewLogRepository creates a new SQLite-backed log repository.
func NewLogRepository(db *sql.DB) *SQLiteLogRepository {
	return &SQLiteLogRepository{db: db}
}

const logColumns = "log_id, card_uid, slot_id, action, gate, status, timestamp, duration_minutes, fee_amount"

// Get retrieves a single log entry by ID.
func (r *SQLiteLogRepository) Get(ctx context.Context, logID int64) (*LogEntry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+logColumns+" FROM entry_exit_logs WHERE log_id = ?", logID)
	entry, err := scanLog(row)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns logs matching the filter, most recent first.
func (r *SQLiteLogRepository) List(ctx context.Context, filter LogFilter) (*LogListResult, error) { //nolint:gocognit,gocyclo // dynamic query builder: WHERE clause assembly from filter fields
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 { //nolint:mnd // max page size for log queries
		filter.Limit = 500
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.CardUID != "" {
		uid, err := NormalizeCardUID(filter.CardUID)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, "card_uid = ?")
		args = append(args, uid)
	}
	if filter.SlotID > 0 {
		conditions = append(conditions, "slot_id = ?")
		args = append(args, filter.SlotID)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Gate != "" {
		conditions = append(conditions, "gate = ?")
		args = append(args, filter.Gate)
	}
	if filter.From != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM entry_exit_logs %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting logs: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT %s FROM entry_exit_logs %s ORDER BY timestamp DESC, log_id DESC LIMIT ? OFFSET ?",
		logColumns, where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	logs := []LogEntry{}
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}

	return &LogListResult{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Recent returns the most recent N logs across all cards.
func (r *SQLiteLogRepository) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+logColumns+" FROM entry_exit_logs ORDER BY timestamp DESC, log_id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent logs: %w", err)
	}
	defer rows.Close()

	logs := []LogEntry{}
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent logs: %w", err)
	}
	return logs, nil
}

// scanLog scans a log entry from a row or rows cursor.
func scanLog(s scanner) (*LogEntry, error) {
	var entry LogEntry
	var slotID sql.NullInt64
	var duration sql.NullInt64
	var fee sql.NullFloat64
	var timestamp string

	err := s.Scan(&entry.LogID, &entry.CardUID, &slotID, &entry.Action,
		&entry.Gate, &entry.Status, &timestamp, &duration, &fee)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("scanning log entry: %w", err)
	}

	if slotID.Valid {
		id := int(slotID.Int64)
		entry.SlotID = &id
	}
	if duration.Valid {
		d := int(duration.Int64)
		entry.DurationMinutes = &d
	}
	if fee.Valid {
		f := fee.Float64
		entry.FeeAmount = &f
	}
	entry.Timestamp, _ = time.Parse(time.RFC3339, timestamp) //nolint:errcheck // format is controlled

	return &entry, nil
}
