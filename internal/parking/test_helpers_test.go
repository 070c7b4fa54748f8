package parking

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the parking schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "parking-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schemaSQL := `
		CREATE TABLE parking_slots (
			slot_id INTEGER PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'available',
			current_card_uid TEXT,
			entry_time TEXT,
			exit_time TEXT,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE rfid_cards (
			card_uid TEXT PRIMARY KEY,
			owner_name TEXT NOT NULL,
			owner_email TEXT,
			phone TEXT,
			vehicle_plate TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			access_level TEXT NOT NULL DEFAULT 'regular',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE entry_exit_logs (
			log_id INTEGER PRIMARY KEY AUTOINCREMENT,
			card_uid TEXT NOT NULL,
			slot_id INTEGER REFERENCES parking_slots(slot_id),
			action TEXT NOT NULL,
			gate TEXT NOT NULL,
			status TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			duration_minutes INTEGER,
			fee_amount REAL
		) STRICT;

		CREATE TABLE parking_pricing (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hourly_rate REAL NOT NULL,
			daily_max_rate REAL NOT NULL,
			grace_period_minutes INTEGER NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("creating parking schema: %v", err)
	}

	return db
}

// testPricing is the default fee policy used throughout the tests:
// 5.00/hour, 50.00 daily cap, 15 minute grace.
func testPricing() Pricing {
	return Pricing{HourlyRate: 5.0, DailyMaxRate: 50.0, GracePeriodMinutes: 15}
}

// newTestRecorder builds a recorder with seeded slots and the test policy.
func newTestRecorder(t *testing.T, db *sql.DB, totalSlots int) *Recorder {
	t.Helper()

	slots := NewSlotRepository(db)
	if err := slots.Seed(context.Background(), totalSlots); err != nil {
		t.Fatalf("seeding slots: %v", err)
	}

	pricing := NewPricingRepository(db, 5.0, 50.0, 15)
	return NewRecorder(db, pricing)
}

// mustRecordEntry applies a successful entry for test setup.
func mustRecordEntry(t *testing.T, rec *Recorder, cardUID string, slotID int, at time.Time) {
	t.Helper()

	_, err := rec.RecordEntry(context.Background(), GateEvent{
		CardUID:   cardUID,
		SlotID:    slotID,
		Gate:      GateEntrance,
		Status:    StatusSuccess,
		Timestamp: at,
	})
	if err != nil {
		t.Fatalf("recording entry: %v", err)
	}
}
