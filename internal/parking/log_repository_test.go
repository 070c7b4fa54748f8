package parking

import (
	"context"
	"errors"
	"testing"
	"time"
)

// seedLogs records a small mixed history for filter tests.
func seedLogs(t *testing.T, rec *Recorder) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)

	mustRecordEntry(t, rec, "AAAA1111", 1, base)
	mustRecordEntry(t, rec, "BBBB2222", 2, base.Add(10*time.Minute))

	if _, err := rec.RecordExit(ctx, GateEvent{
		CardUID: "AAAA1111", SlotID: 1, Gate: GateExit,
		Status: StatusSuccess, Timestamp: base.Add(90 * time.Minute),
	}); err != nil {
		t.Fatalf("RecordExit() error = %v", err)
	}

	if _, err := rec.RecordEntry(ctx, GateEvent{
		CardUID: "DEADBEEF", Gate: GateEntrance,
		Status: StatusDeniedUnauthorized, Timestamp: base.Add(2 * time.Hour),
	}); err != nil {
		t.Fatalf("RecordEntry(denied) error = %v", err)
	}
}

func TestLogRepository_ListAll(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 5)
	seedLogs(t, rec)

	repo := NewLogRepository(db)
	result, err := repo.List(context.Background(), LogFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 4 {
		t.Errorf("Total = %d, want 4", result.Total)
	}
	if len(result.Logs) != 4 {
		t.Errorf("Logs = %d, want 4", len(result.Logs))
	}

	// Most recent first.
	if result.Logs[0].Status != StatusDeniedUnauthorized {
		t.Errorf("first log = %+v, want the denied entry (most recent)", result.Logs[0])
	}
}

func TestLogRepository_Filters(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 5)
	seedLogs(t, rec)

	repo := NewLogRepository(db)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter LogFilter
		want   int
	}{
		{"by card", LogFilter{CardUID: "aaaa1111"}, 2}, // lookup normalises case
		{"by action entry", LogFilter{Action: ActionEntry}, 3},
		{"by action exit", LogFilter{Action: ActionExit}, 1},
		{"by status denied", LogFilter{Status: StatusDeniedUnauthorized}, 1},
		{"by slot", LogFilter{SlotID: 2}, 1},
		{"by gate", LogFilter{Gate: GateExit}, 1},
		{"combined", LogFilter{CardUID: "AAAA1111", Action: ActionEntry}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.want {
				t.Errorf("Total = %d, want %d", result.Total, tt.want)
			}
		})
	}
}

func TestLogRepository_TimeWindow(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 5)
	seedLogs(t, rec)

	repo := NewLogRepository(db)

	from := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	result, err := repo.List(context.Background(), LogFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	// Only the 09:30 exit falls inside [09:00, 10:00).
	if result.Total != 1 || result.Logs[0].Action != ActionExit {
		t.Errorf("windowed result = %+v, want only the exit", result.Logs)
	}
}

func TestLogRepository_Pagination(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 5)
	seedLogs(t, rec)

	repo := NewLogRepository(db)
	ctx := context.Background()

	page1, err := repo.List(ctx, LogFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List(page 1) error = %v", err)
	}
	if len(page1.Logs) != 2 || page1.Total != 4 {
		t.Errorf("page 1 = %d logs / total %d, want 2 / 4", len(page1.Logs), page1.Total)
	}

	page2, err := repo.List(ctx, LogFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List(page 2) error = %v", err)
	}
	if len(page2.Logs) != 2 {
		t.Errorf("page 2 = %d logs, want 2", len(page2.Logs))
	}
	if page1.Logs[0].LogID == page2.Logs[0].LogID {
		t.Error("pages overlap")
	}
}

func TestLogRepository_Get(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 5)
	seedLogs(t, rec)

	repo := NewLogRepository(db)
	ctx := context.Background()

	recent, err := repo.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}

	got, err := repo.Get(ctx, recent[0].LogID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CardUID != recent[0].CardUID {
		t.Errorf("Get() = %+v, want %+v", got, recent[0])
	}

	if _, err := repo.Get(ctx, 99999); !errors.Is(err, ErrLogNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrLogNotFound", err)
	}
}
