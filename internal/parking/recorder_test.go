package parking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecordEntry_SuccessOccupiesSlot(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	at := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	result, err := rec.RecordEntry(ctx, GateEvent{
		CardUID:   "A1B2C3D4",
		SlotID:    3,
		Gate:      GateEntrance,
		Status:    StatusSuccess,
		Timestamp: at,
	})
	if err != nil {
		t.Fatalf("RecordEntry() error = %v", err)
	}
	if result.LogID == 0 {
		t.Error("LogID should be set")
	}
	if !result.SlotOccupied {
		t.Error("SlotOccupied = false, want true")
	}

	slot, err := NewSlotRepository(db).Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get(slot 3) error = %v", err)
	}
	if slot.Status != SlotOccupied {
		t.Errorf("slot status = %q, want occupied", slot.Status)
	}
	if slot.CurrentCardUID != "A1B2C3D4" {
		t.Errorf("slot card = %q, want A1B2C3D4", slot.CurrentCardUID)
	}
	if slot.EntryTime == nil || !slot.EntryTime.Equal(at) {
		t.Errorf("slot entry time = %v, want %v", slot.EntryTime, at)
	}
}

func TestRecordEntry_DeniedLogsWithoutOccupying(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	result, err := rec.RecordEntry(ctx, GateEvent{
		CardUID:   "DEADBEEF",
		SlotID:    3,
		Gate:      GateEntrance,
		Status:    StatusDeniedUnauthorized,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordEntry() error = %v", err)
	}
	if result.SlotOccupied {
		t.Error("denied entry must not occupy a slot")
	}

	slot, err := NewSlotRepository(db).Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get(slot 3) error = %v", err)
	}
	if slot.Status != SlotAvailable {
		t.Errorf("slot status = %q, want available", slot.Status)
	}

	logs, err := NewLogRepository(db).Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(logs) != 1 || logs[0].Status != StatusDeniedUnauthorized {
		t.Errorf("logs = %+v, want one denied entry", logs)
	}
}

func TestRecordEntry_DeniedFullKeepsReportedStatus(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	// The controller distinguishes denial reasons; the log keeps the
	// reported string untouched.
	if _, err := rec.RecordEntry(ctx, GateEvent{
		CardUID:   "DEADBEEF",
		Gate:      GateEntrance,
		Status:    StatusDeniedFull,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("RecordEntry() error = %v", err)
	}

	logs, err := NewLogRepository(db).Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(logs) != 1 || logs[0].Status != StatusDeniedFull {
		t.Errorf("logs = %+v, want one denied_full entry", logs)
	}
}

func TestRecordEntry_NoSlotReported(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	result, err := rec.RecordEntry(ctx, GateEvent{
		CardUID:   "A1B2C3D4",
		SlotID:    0,
		Gate:      GateEntrance,
		Status:    StatusSuccess,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordEntry() error = %v", err)
	}
	if result.SlotOccupied {
		t.Error("entry without a slot must not occupy anything")
	}

	logs, err := NewLogRepository(db).Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if logs[0].SlotID != nil {
		t.Errorf("log slot = %v, want nil", *logs[0].SlotID)
	}
}

func TestRecordEntry_OverwritesStaleOccupancy(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	// First car enters slot 5 and its exit event is lost.
	mustRecordEntry(t, rec, "AAAA1111", 5, time.Now().UTC().Add(-2*time.Hour))

	// Second car is assigned the same slot by the controller.
	at := time.Now().UTC()
	mustRecordEntry(t, rec, "BBBB2222", 5, at)

	slot, err := NewSlotRepository(db).Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get(slot 5) error = %v", err)
	}
	if slot.CurrentCardUID != "BBBB2222" {
		t.Errorf("slot card = %q, want BBBB2222 (controller is ground truth)", slot.CurrentCardUID)
	}
	if slot.EntryTime == nil || !slot.EntryTime.Equal(at.Truncate(time.Second)) {
		t.Errorf("slot entry time = %v, want %v", slot.EntryTime, at.Truncate(time.Second))
	}
}

func TestRecordEntry_UnknownSlotLogsWithoutCreatingRow(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	// Controller reports slot 42, outside the seeded range. The event is
	// logged as reported but the fixed slot table must not grow.
	result, err := rec.RecordEntry(ctx, GateEvent{
		CardUID:   "A1B2C3D4",
		SlotID:    42,
		Gate:      GateEntrance,
		Status:    StatusSuccess,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordEntry() error = %v", err)
	}
	if result.SlotOccupied {
		t.Error("SlotOccupied = true for a slot that does not exist")
	}

	if _, err := NewSlotRepository(db).Get(ctx, 42); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("Get(slot 42) error = %v, want ErrSlotNotFound", err)
	}

	logs, err := NewLogRepository(db).Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(logs) != 1 || logs[0].SlotID == nil || *logs[0].SlotID != 42 {
		t.Errorf("logs = %+v, want one entry for slot 42", logs)
	}
}

func TestRecordExit_ComputesDurationAndFee(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	entry := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	mustRecordEntry(t, rec, "A1B2C3D4", 3, entry)

	// 65 minutes later: 2 billable hours at 5.00.
	result, err := rec.RecordExit(ctx, GateEvent{
		CardUID:   "A1B2C3D4",
		SlotID:    3,
		Gate:      GateExit,
		Status:    StatusSuccess,
		Timestamp: entry.Add(65 * time.Minute),
	})
	if err != nil {
		t.Fatalf("RecordExit() error = %v", err)
	}
	if !result.Measured {
		t.Fatal("exit should be measured")
	}
	if result.DurationMinutes != 65 {
		t.Errorf("duration = %d, want 65", result.DurationMinutes)
	}
	if result.Fee != 10.00 {
		t.Errorf("fee = %.2f, want 10.00", result.Fee)
	}

	slot, err := NewSlotRepository(db).Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get(slot 3) error = %v", err)
	}
	if slot.Status != SlotAvailable || slot.CurrentCardUID != "" || slot.EntryTime != nil {
		t.Errorf("slot not released: %+v", slot)
	}

	logs, err := NewLogRepository(db).List(ctx, LogFilter{Action: ActionExit})
	if err != nil {
		t.Fatalf("List(exits) error = %v", err)
	}
	if len(logs.Logs) != 1 {
		t.Fatalf("exit logs = %d, want 1", len(logs.Logs))
	}
	exit := logs.Logs[0]
	if exit.DurationMinutes == nil || *exit.DurationMinutes != 65 {
		t.Errorf("logged duration = %v, want 65", exit.DurationMinutes)
	}
	if exit.FeeAmount == nil || *exit.FeeAmount != 10.00 {
		t.Errorf("logged fee = %v, want 10.00", exit.FeeAmount)
	}
}

func TestRecordExit_WithinGraceIsFree(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	entry := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	mustRecordEntry(t, rec, "A1B2C3D4", 3, entry)

	result, err := rec.RecordExit(ctx, GateEvent{
		CardUID:   "A1B2C3D4",
		SlotID:    3,
		Gate:      GateExit,
		Status:    StatusSuccess,
		Timestamp: entry.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("RecordExit() error = %v", err)
	}
	if result.Fee != 0 {
		t.Errorf("fee = %.2f, want 0 within grace", result.Fee)
	}

	// Zero fee is not recorded on the log row.
	logs, err := NewLogRepository(db).List(ctx, LogFilter{Action: ActionExit})
	if err != nil {
		t.Fatalf("List(exits) error = %v", err)
	}
	if logs.Logs[0].FeeAmount != nil {
		t.Errorf("logged fee = %v, want nil for free stay", *logs.Logs[0].FeeAmount)
	}
}

func TestRecordExit_NoEntryTimeReleasesWithoutFee(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	// Slot 3 has no recorded entry (backend restarted mid-stay).
	result, err := rec.RecordExit(ctx, GateEvent{
		CardUID:   "A1B2C3D4",
		SlotID:    3,
		Gate:      GateExit,
		Status:    StatusSuccess,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordExit() error = %v", err)
	}
	if result.Measured {
		t.Error("exit without entry time must not be measured")
	}

	logs, err := NewLogRepository(db).List(ctx, LogFilter{Action: ActionExit})
	if err != nil {
		t.Fatalf("List(exits) error = %v", err)
	}
	if len(logs.Logs) != 1 {
		t.Fatalf("exit logs = %d, want 1 (exits are always logged)", len(logs.Logs))
	}
	if logs.Logs[0].DurationMinutes != nil || logs.Logs[0].FeeAmount != nil {
		t.Error("unmeasured exit must not record duration or fee")
	}
}

func TestRecordExit_ClockSkewClampsToZero(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	entry := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	mustRecordEntry(t, rec, "A1B2C3D4", 3, entry)

	// Exit reported before entry (controller clock drift).
	result, err := rec.RecordExit(ctx, GateEvent{
		CardUID:   "A1B2C3D4",
		SlotID:    3,
		Gate:      GateExit,
		Status:    StatusSuccess,
		Timestamp: entry.Add(-5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("RecordExit() error = %v", err)
	}
	if result.DurationMinutes != 0 || result.Fee != 0 {
		t.Errorf("skewed exit = %d min / %.2f, want 0 / 0", result.DurationMinutes, result.Fee)
	}
}

func TestRecordExit_DeniedLogsOnly(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	entry := time.Now().UTC().Add(-time.Hour)
	mustRecordEntry(t, rec, "A1B2C3D4", 3, entry)

	_, err := rec.RecordExit(ctx, GateEvent{
		CardUID:   "DEADBEEF",
		SlotID:    3,
		Gate:      GateExit,
		Status:    StatusDeniedUnauthorized,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordExit() error = %v", err)
	}

	// The occupied slot is untouched by a denied exit.
	slot, err := NewSlotRepository(db).Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get(slot 3) error = %v", err)
	}
	if slot.Status != SlotOccupied {
		t.Errorf("slot status = %q, want occupied after denied exit", slot.Status)
	}
}

