package parking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SlotRepository defines the interface for parking slot persistence.
type SlotRepository interface {
	// Get retrieves a slot by its ID.
	// Returns ErrSlotNotFound if the slot does not exist.
	Get(ctx context.Context, slotID int) (*Slot, error)

	// List retrieves all slots ordered by slot ID.
	List(ctx context.Context) ([]Slot, error)

	// CountOccupied returns the number of occupied slots.
	CountOccupied(ctx context.Context) (int, error)

	// Count returns the total number of slots.
	Count(ctx context.Context) (int, error)

	// Release resets a slot to available, clearing its card and entry time.
	// Returns ErrSlotNotFound if the slot does not exist.
	Release(ctx context.Context, slotID int) error

	// Seed inserts missing slot rows 1..total. Existing rows are untouched,
	// so re-running at startup is safe.
	Seed(ctx context.Context, total int) error
}

// SQLiteSlotRepository implements SlotRepository using SQLite.
type SQLiteSlotRepository struct {
	db *sql.DB
}

// NewSlotRepository creates a new SQLite-backed slot repository.
func NewSlotRepository(db *sql.DB) *SQLiteSlotRepository {
	return &SQLiteSlotRepository{db: db}
}

const slotColumns = "slot_id, status, current_card_uid, entry_time, exit_time, updated_at"

// Get retrieves a slot by its ID.
func (r *SQLiteSlotRepository) Get(ctx context.Context, slotID int) (*Slot, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+slotColumns+" FROM parking_slots WHERE slot_id = ?", slotID)
	return scanSlot(row)
}

// List retrieves all slots ordered by slot ID.
func (r *SQLiteSlotRepository) List(ctx context.Context) ([]Slot, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+slotColumns+" FROM parking_slots ORDER BY slot_id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	defer rows.Close()

	slots := []Slot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slots: %w", err)
	}
	return slots, nil
}

// CountOccupied returns the number of occupied slots.
func (r *SQLiteSlotRepository) CountOccupied(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM parking_slots WHERE status = ?", SlotOccupied).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting occupied slots: %w", err)
	}
	return count, nil
}

// Count returns the total number of slots.
func (r *SQLiteSlotRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parking_slots").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting slots: %w", err)
	}
	return count, nil
}

// Release resets a slot to available, clearing its card and entry time.
// Used by the admin API to fix a slot left stale by a missed exit event.
func (r *SQLiteSlotRepository) Release(ctx context.Context, slotID int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE parking_slots
		 SET status = ?, current_card_uid = NULL, entry_time = NULL,
		     exit_time = ?, updated_at = ?
		 WHERE slot_id = ?`,
		SlotAvailable,
		time.Now().UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		slotID,
	)
	if err != nil {
		return fmt.Errorf("releasing slot %d: %w", slotID, err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// Seed inserts missing slot rows 1..total.
func (r *SQLiteSlotRepository) Seed(ctx context.Context, total int) error {
	for id := 1; id <= total; id++ {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO parking_slots (slot_id, status, updated_at)
			 VALUES (?, ?, ?)`,
			id, SlotAvailable, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("seeding slot %d: %w", id, err)
		}
	}
	return nil
}

// scanSlot scans a slot from a row or rows cursor.
func scanSlot(s scanner) (*Slot, error) {
	var slot Slot
	var cardUID, entryTime, exitTime sql.NullString
	var updatedAt string

	err := s.Scan(&slot.SlotID, &slot.Status, &cardUID, &entryTime, &exitTime, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("scanning slot: %w", err)
	}

	if cardUID.Valid {
		slot.CurrentCardUID = cardUID.String
	}
	if entryTime.Valid {
		if t, err := time.Parse(time.RFC3339, entryTime.String); err == nil {
			slot.EntryTime = &t
		}
	}
	if exitTime.Valid {
		if t, err := time.Parse(time.RFC3339, exitTime.String); err == nil {
			slot.ExitTime = &t
		}
	}
	slot.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &slot, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}
