package parking

import (
	"context"
	"testing"
	"time"
)

func TestStatsRepository_Occupancy(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	mustRecordEntry(t, rec, "AAAA1111", 1, time.Now().UTC())
	mustRecordEntry(t, rec, "BBBB2222", 2, time.Now().UTC())

	occ, err := NewStatsRepository(db).Occupancy(ctx)
	if err != nil {
		t.Fatalf("Occupancy() error = %v", err)
	}
	if occ.Total != 10 || occ.Occupied != 2 || occ.Available != 8 {
		t.Errorf("occupancy = %+v, want 10/2/8", occ)
	}
	if occ.Rate != 0.2 {
		t.Errorf("rate = %v, want 0.2", occ.Rate)
	}
}

func TestStatsRepository_OccupancyEmptyLot(t *testing.T) {
	occ, err := NewStatsRepository(testDB(t)).Occupancy(context.Background())
	if err != nil {
		t.Fatalf("Occupancy() error = %v", err)
	}
	if occ.Total != 0 || occ.Rate != 0 {
		t.Errorf("empty lot occupancy = %+v, want zeros", occ)
	}
}

func TestStatsRepository_Dashboard(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	// A completed paid stay plus a denial, anchored just after midnight so
	// every event lands in "today" regardless of when the test runs.
	midnight := startOfDayUTC(time.Now().UTC())
	mustRecordEntry(t, rec, "AAAA1111", 1, midnight.Add(10*time.Minute))
	if _, err := rec.RecordExit(ctx, GateEvent{
		CardUID: "AAAA1111", SlotID: 1, Gate: GateExit,
		Status: StatusSuccess, Timestamp: midnight.Add(75 * time.Minute),
	}); err != nil {
		t.Fatalf("RecordExit() error = %v", err)
	}
	if _, err := rec.RecordEntry(ctx, GateEvent{
		CardUID: "DEADBEEF", Gate: GateEntrance,
		Status: StatusDeniedFull, Timestamp: midnight.Add(80 * time.Minute),
	}); err != nil {
		t.Fatalf("RecordEntry(denied) error = %v", err)
	}

	cards := NewCardRepository(db)
	if err := cards.Create(ctx, newCard("AAAA1111", "Owner")); err != nil {
		t.Fatalf("Create(card) error = %v", err)
	}

	stats, err := NewStatsRepository(db).Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	if stats.EntriesToday != 1 {
		t.Errorf("EntriesToday = %d, want 1 (denied entries do not count)", stats.EntriesToday)
	}
	if stats.ExitsToday != 1 {
		t.Errorf("ExitsToday = %d, want 1", stats.ExitsToday)
	}
	if stats.DeniedToday != 1 {
		t.Errorf("DeniedToday = %d, want 1", stats.DeniedToday)
	}
	// 65 minutes billed as 2 hours at 5.00.
	if stats.RevenueToday != 10.00 {
		t.Errorf("RevenueToday = %.2f, want 10.00", stats.RevenueToday)
	}
	if stats.ActiveCards != 1 {
		t.Errorf("ActiveCards = %d, want 1", stats.ActiveCards)
	}
	if stats.Occupancy.Occupied != 0 {
		t.Errorf("Occupied = %d, want 0 after the exit", stats.Occupancy.Occupied)
	}
}

func TestStatsRepository_PeakHours(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	// Two entries at 08:xx UTC, one at 17:xx UTC, yesterday.
	day := time.Now().UTC().AddDate(0, 0, -1)
	at := func(hour int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, 30, 0, 0, time.UTC)
	}
	mustRecordEntry(t, rec, "AAAA1111", 1, at(8))
	mustRecordEntry(t, rec, "BBBB2222", 2, at(8))
	mustRecordEntry(t, rec, "CCCC3333", 3, at(17))

	// Denied activity must not count.
	if _, err := rec.RecordEntry(ctx, GateEvent{
		CardUID: "DEADBEEF", Gate: GateEntrance,
		Status: StatusDeniedUnauthorized, Timestamp: at(8),
	}); err != nil {
		t.Fatalf("RecordEntry(denied) error = %v", err)
	}

	buckets, err := NewStatsRepository(db).PeakHours(ctx, 7)
	if err != nil {
		t.Fatalf("PeakHours() error = %v", err)
	}
	if len(buckets) != 24 {
		t.Fatalf("PeakHours() returned %d buckets, want 24", len(buckets))
	}
	if buckets[8].Entries != 2 {
		t.Errorf("08:00 entries = %d, want 2", buckets[8].Entries)
	}
	if buckets[17].Entries != 1 {
		t.Errorf("17:00 entries = %d, want 1", buckets[17].Entries)
	}
	if buckets[3].Entries != 0 {
		t.Errorf("03:00 entries = %d, want 0", buckets[3].Entries)
	}
}

func TestStatsRepository_DailyTrend(t *testing.T) {
	db := testDB(t)
	rec := newTestRecorder(t, db, 10)
	ctx := context.Background()

	// Paid stay two days ago, entry yesterday. Anchored mid-day so the
	// 65-minute stay cannot straddle a day boundary.
	twoDaysAgo := startOfDayUTC(time.Now().UTC().AddDate(0, 0, -2)).Add(12 * time.Hour)
	yesterday := startOfDayUTC(time.Now().UTC().AddDate(0, 0, -1)).Add(12 * time.Hour)

	mustRecordEntry(t, rec, "AAAA1111", 1, twoDaysAgo)
	if _, err := rec.RecordExit(ctx, GateEvent{
		CardUID: "AAAA1111", SlotID: 1, Gate: GateExit,
		Status: StatusSuccess, Timestamp: twoDaysAgo.Add(65 * time.Minute),
	}); err != nil {
		t.Fatalf("RecordExit() error = %v", err)
	}
	mustRecordEntry(t, rec, "BBBB2222", 2, yesterday)

	trend, err := NewStatsRepository(db).DailyTrend(ctx, 7)
	if err != nil {
		t.Fatalf("DailyTrend() error = %v", err)
	}
	if len(trend) != 2 {
		t.Fatalf("DailyTrend() = %d days, want 2", len(trend))
	}

	// Oldest first.
	if trend[0].Date >= trend[1].Date {
		t.Errorf("trend not ordered oldest first: %+v", trend)
	}
	if trend[0].Entries != 1 || trend[0].Exits != 1 || trend[0].Revenue != 10.00 {
		t.Errorf("day 1 = %+v, want 1 entry / 1 exit / 10.00", trend[0])
	}
	if trend[1].Entries != 1 || trend[1].Exits != 0 {
		t.Errorf("day 2 = %+v, want 1 entry / 0 exits", trend[1])
	}
}
