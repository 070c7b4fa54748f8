package parking

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Occupancy is the current state of the lot.
type Occupancy struct {
	Total     int     `json:"total"`
	Occupied  int     `json:"occupied"`
	Available int     `json:"available"`
	Rate      float64 `json:"occupancy_rate"` // 0..1
}

// DashboardStats is the summary block for the admin dashboard.
type DashboardStats struct {
	Occupancy    Occupancy `json:"occupancy"`
	EntriesToday int       `json:"entries_today"`
	ExitsToday   int       `json:"exits_today"`
	DeniedToday  int       `json:"denied_today"`
	RevenueToday float64   `json:"revenue_today"`
	ActiveCards  int       `json:"active_cards"`
	AverageStay  int       `json:"average_stay_minutes"` // over today's measured exits
	GeneratedAt  time.Time `json:"generated_at"`
}

// HourBucket is an aggregate of gate activity for one hour of the day.
type HourBucket struct {
	Hour    int `json:"hour"` // 0..23
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
}

// DayBucket is an aggregate of gate activity for one calendar day.
type DayBucket struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Entries int     `json:"entries"`
	Exits   int     `json:"exits"`
	Revenue float64 `json:"revenue"`
}

// StatsRepository computes reporting aggregates from slots and logs.
type StatsRepository interface {
	Occupancy(ctx context.Context) (*Occupancy, error)
	Dashboard(ctx context.Context) (*DashboardStats, error)

	// PeakHours aggregates successful entries/exits by hour of day over the
	// trailing window.
	PeakHours(ctx context.Context, days int) ([]HourBucket, error)

	// DailyTrend aggregates activity and revenue per day over the trailing
	// window, oldest day first.
	DailyTrend(ctx context.Context, days int) ([]DayBucket, error)
}

// SQLiteStatsRepository implements StatsRepository using SQLite.
type SQLiteStatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new SQLite-backed stats repository.
func NewStatsRepository(db *sql.DB) *SQLiteStatsRepository {
	return &SQLiteStatsRepository{db: db}
}

// Occupancy returns the current state of the lot.
func (r *SQLiteStatsRepository) Occupancy(ctx context.Context) (*Occupancy, error) {
	var occ Occupancy
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM parking_slots`, SlotOccupied,
	).Scan(&occ.Total, &occ.Occupied)
	if err != nil {
		return nil, fmt.Errorf("querying occupancy: %w", err)
	}

	occ.Available = occ.Total - occ.Occupied
	if occ.Total > 0 {
		occ.Rate = float64(occ.Occupied) / float64(occ.Total)
	}
	return &occ, nil
}

// Dashboard returns the summary block for the admin dashboard.
func (r *SQLiteStatsRepository) Dashboard(ctx context.Context) (*DashboardStats, error) {
	occ, err := r.Occupancy(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Occupancy:   *occ,
		GeneratedAt: time.Now().UTC(),
	}

	midnight := startOfDayUTC(time.Now().UTC()).Format(time.RFC3339)

	err = r.db.QueryRowContext(ctx,
		`SELECT
		     COALESCE(SUM(CASE WHEN action = ? AND status = ? THEN 1 ELSE 0 END), 0),
		     COALESCE(SUM(CASE WHEN action = ? AND status = ? THEN 1 ELSE 0 END), 0),
		     COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0),
		     COALESCE(SUM(CASE WHEN fee_amount IS NOT NULL THEN fee_amount ELSE 0 END), 0),
		     CAST(COALESCE(AVG(duration_minutes), 0) AS INTEGER)
		 FROM entry_exit_logs
		 WHERE timestamp >= ?`,
		ActionEntry, StatusSuccess,
		ActionExit, StatusSuccess,
		StatusSuccess,
		midnight,
	).Scan(&stats.EntriesToday, &stats.ExitsToday, &stats.DeniedToday,
		&stats.RevenueToday, &stats.AverageStay)
	if err != nil {
		return nil, fmt.Errorf("querying daily stats: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rfid_cards WHERE is_active = 1",
	).Scan(&stats.ActiveCards)
	if err != nil {
		return nil, fmt.Errorf("counting active cards: %w", err)
	}

	return stats, nil
}

// PeakHours aggregates successful entries and exits by hour of day.
// Buckets with no activity are included with zero counts so charts get a
// full 24-hour axis.
func (r *SQLiteStatsRepository) PeakHours(ctx context.Context, days int) ([]HourBucket, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%H', timestamp) AS INTEGER) AS hour,
		     SUM(CASE WHEN action = ? THEN 1 ELSE 0 END),
		     SUM(CASE WHEN action = ? THEN 1 ELSE 0 END)
		 FROM entry_exit_logs
		 WHERE status = ? AND timestamp >= ?
		 GROUP BY hour`,
		ActionEntry, ActionExit, StatusSuccess, since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying peak hours: %w", err)
	}
	defer rows.Close()

	buckets := make([]HourBucket, 24)
	for i := range buckets {
		buckets[i].Hour = i
	}

	for rows.Next() {
		var hour, entries, exits int
		if err := rows.Scan(&hour, &entries, &exits); err != nil {
			return nil, fmt.Errorf("scanning hour bucket: %w", err)
		}
		if hour >= 0 && hour < 24 {
			buckets[hour].Entries = entries
			buckets[hour].Exits = exits
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hour buckets: %w", err)
	}

	return buckets, nil
}

// DailyTrend aggregates activity and revenue per day, oldest first.
// Only days with activity are returned.
func (r *SQLiteStatsRepository) DailyTrend(ctx context.Context, days int) ([]DayBucket, error) {
	if days <= 0 {
		days = 30
	}
	since := startOfDayUTC(time.Now().UTC().AddDate(0, 0, -(days - 1))).Format(time.RFC3339)

	rows, err := r.db.QueryContext(ctx,
		`SELECT date(timestamp) AS day,
		     SUM(CASE WHEN action = ? AND status = ? THEN 1 ELSE 0 END),
		     SUM(CASE WHEN action = ? AND status = ? THEN 1 ELSE 0 END),
		     COALESCE(SUM(CASE WHEN fee_amount IS NOT NULL THEN fee_amount ELSE 0 END), 0)
		 FROM entry_exit_logs
		 WHERE timestamp >= ?
		 GROUP BY day
		 ORDER BY day ASC`,
		ActionEntry, StatusSuccess,
		ActionExit, StatusSuccess,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying daily trend: %w", err)
	}
	defer rows.Close()

	trend := []DayBucket{}
	for rows.Next() {
		var b DayBucket
		if err := rows.Scan(&b.Date, &b.Entries, &b.Exits, &b.Revenue); err != nil {
			return nil, fmt.Errorf("scanning day bucket: %w", err)
		}
		trend = append(trend, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating day buckets: %w", err)
	}

	return trend, nil
}

// startOfDayUTC truncates a time to midnight UTC.
func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
