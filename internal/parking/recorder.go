package parking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GateEvent is a validated, normalised event from the gate controller.
// The ingest layer builds these from MQTT payloads.
type GateEvent struct {
	CardUID   string
	SlotID    int // <= 0 means "no slot reported"
	Gate      string
	Status    string
	Timestamp time.Time
}

// EntryResult describes the outcome of applying an entry event.
type EntryResult struct {
	LogID        int64
	SlotOccupied bool // true when the slot was marked occupied
}

// ExitResult describes the outcome of applying an exit event.
type ExitResult struct {
	LogID           int64
	Measured        bool // true when the stay could be measured
	DurationMinutes int
	Fee             float64
}

// Recorder applies gate controller events to the database.
//
// Each event runs in a single transaction: the log insert and the slot
// update commit together or not at all. The recorder never rejects an
// event for business reasons: a denied entry or an exit from a slot with
// no recorded entry still produces a log row. Hardware already made the
// access decision; the backend's job is to remember what happened.
type Recorder struct {
	db      *sql.DB
	pricing PricingRepository
}

// NewRecorder creates a recorder writing through the given database.
// The pricing repository supplies the fee policy at exit time.
func NewRecorder(db *sql.DB, pricing PricingRepository) *Recorder {
	return &Recorder{db: db, pricing: pricing}
}

// RecordEntry applies an entry event.
//
// The event is always logged. On a successful entry with a slot number the
// slot is marked occupied unconditionally, overwriting any stale occupancy:
// the controller's sensors are the ground truth, and a slot left occupied
// by a missed exit event heals on its next entry. The slot table itself is
// fixed at seed time; a slot number outside the configured range is logged
// but never creates a row.
func (r *Recorder) RecordEntry(ctx context.Context, ev GateEvent) (*EntryResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning entry transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	logID, err := insertLog(ctx, tx, ev, ActionEntry, nil, nil)
	if err != nil {
		return nil, err
	}

	result := &EntryResult{LogID: logID}

	if ev.Status == StatusSuccess && ev.SlotID > 0 {
		ts := ev.Timestamp.UTC().Format(time.RFC3339)
		res, err := tx.ExecContext(ctx,
			`UPDATE parking_slots
			 SET status = ?, current_card_uid = ?, entry_time = ?,
			     exit_time = NULL, updated_at = ?
			 WHERE slot_id = ?`,
			SlotOccupied, ev.CardUID, ts, ts, ev.SlotID,
		)
		if err != nil {
			return nil, fmt.Errorf("occupying slot %d: %w", ev.SlotID, err)
		}
		rows, _ := res.RowsAffected() //nolint:errcheck // always succeeds on SQLite
		result.SlotOccupied = rows > 0
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing entry: %w", err)
	}
	return result, nil
}

// RecordExit applies an exit event.
//
// The event is always logged. On a successful exit from a slot with a
// recorded entry time, the stay is measured, the fee computed from the
// pricing policy in force at exit time, and the slot released. Exits from
// slots with no entry time (backend restarted mid-stay, manual release)
// still release the slot but record no duration or fee.
func (r *Recorder) RecordExit(ctx context.Context, ev GateEvent) (*ExitResult, error) {
	// Read the policy outside the write transaction; it may lazily seed
	// its row, and fee policy changes mid-event are a non-problem.
	pricing, err := r.pricing.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading pricing: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning exit transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result := &ExitResult{}
	var durationPtr *int
	var feePtr *float64

	if ev.Status == StatusSuccess && ev.SlotID > 0 {
		entryTime, slotExists, err := slotEntryTime(ctx, tx, ev.SlotID)
		if err != nil {
			return nil, err
		}

		if slotExists {
			if entryTime != nil {
				minutes := int(ev.Timestamp.Sub(*entryTime).Minutes())
				if minutes < 0 {
					minutes = 0
				}
				fee := CalculateFee(*pricing, minutes)
				result.Measured = true
				result.DurationMinutes = minutes
				result.Fee = fee

				if minutes > 0 {
					durationPtr = &minutes
				}
				if fee > 0 {
					feePtr = &fee
				}
			}

			ts := ev.Timestamp.UTC().Format(time.RFC3339)
			_, err = tx.ExecContext(ctx,
				`UPDATE parking_slots
				 SET status = ?, current_card_uid = NULL, entry_time = NULL,
				     exit_time = ?, updated_at = ?
				 WHERE slot_id = ?`,
				SlotAvailable, ts, ts, ev.SlotID,
			)
			if err != nil {
				return nil, fmt.Errorf("releasing slot %d: %w", ev.SlotID, err)
			}
		}
	}

	logID, err := insertLog(ctx, tx, ev, ActionExit, durationPtr, feePtr)
	if err != nil {
		return nil, err
	}
	result.LogID = logID

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing exit: %w", err)
	}
	return result, nil
}

// insertLog writes one entry_exit_logs row within the transaction.
func insertLog(ctx context.Context, tx *sql.Tx, ev GateEvent, action string, duration *int, fee *float64) (int64, error) {
	var slotID any
	if ev.SlotID > 0 {
		slotID = ev.SlotID
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO entry_exit_logs (card_uid, slot_id, action, gate, status, timestamp, duration_minutes, fee_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.CardUID, slotID, action, ev.Gate, ev.Status,
		ev.Timestamp.UTC().Format(time.RFC3339),
		nullableInt(duration), nullableFloat(fee),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting %s log: %w", action, err)
	}

	logID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading log ID: %w", err)
	}
	return logID, nil
}

// slotEntryTime reads a slot's entry time within the transaction.
// Returns (nil, false, nil) when the slot row does not exist.
func slotEntryTime(ctx context.Context, tx *sql.Tx, slotID int) (*time.Time, bool, error) {
	var entryTime sql.NullString
	err := tx.QueryRowContext(ctx,
		"SELECT entry_time FROM parking_slots WHERE slot_id = ?", slotID,
	).Scan(&entryTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading slot %d: %w", slotID, err)
	}

	if !entryTime.Valid {
		return nil, true, nil
	}

	t, err := time.Parse(time.RFC3339, entryTime.String)
	if err != nil {
		// Unparseable entry time: treat as unmeasurable rather than failing
		// the whole exit.
		return nil, true, nil //nolint:nilerr // deliberate degradation
	}
	return &t, true, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
