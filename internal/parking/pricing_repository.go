package parking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PricingRepository defines the interface for the fee policy.
type PricingRepository interface {
	// Get returns the active pricing policy, creating it from the supplied
	// defaults if no row exists yet.
	Get(ctx context.Context) (*Pricing, error)

	// Update replaces the active policy's values. Historical log rows keep
	// the fees they were charged.
	Update(ctx context.Context, p *Pricing) error
}

// SQLitePricingRepository implements PricingRepository using SQLite.
// The parking_pricing table holds a single row; Get creates it lazily.
type SQLitePricingRepository struct {
	db *sql.DB

	// Defaults used when creating the initial row.
	defaultHourlyRate   float64
	defaultDailyMaxRate float64
	defaultGraceMinutes int
}

// NewPricingRepository creates a new SQLite-backed pricing repository with
// the deployment's default policy.
func NewPricingRepository(db *sql.DB, hourlyRate, dailyMaxRate float64, graceMinutes int) *SQLitePricingRepository {
	return &SQLitePricingRepository{
		db:                  db,
		defaultHourlyRate:   hourlyRate,
		defaultDailyMaxRate: dailyMaxRate,
		defaultGraceMinutes: graceMinutes,
	}
}

// Get returns the active pricing policy, creating it on first read.
func (r *SQLitePricingRepository) Get(ctx context.Context) (*Pricing, error) {
	p, err := r.fetch(ctx)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// First read: seed from defaults. A concurrent seed loses the race
	// harmlessly; both writers insert the same default values and the
	// ORDER BY id LIMIT 1 read settles on one row.
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO parking_pricing (hourly_rate, daily_max_rate, grace_period_minutes, updated_at)
		 VALUES (?, ?, ?, ?)`,
		r.defaultHourlyRate, r.defaultDailyMaxRate, r.defaultGraceMinutes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("seeding pricing: %w", err)
	}

	return r.fetch(ctx)
}

// Update replaces the active policy's values.
func (r *SQLitePricingRepository) Update(ctx context.Context, p *Pricing) error {
	if err := p.Validate(); err != nil {
		return err
	}

	// Ensure the row exists before updating it.
	current, err := r.Get(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.ID = current.ID
	p.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`UPDATE parking_pricing
		 SET hourly_rate = ?, daily_max_rate = ?, grace_period_minutes = ?, updated_at = ?
		 WHERE id = ?`,
		p.HourlyRate, p.DailyMaxRate, p.GracePeriodMinutes, now.Format(time.RFC3339), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating pricing: %w", err)
	}
	return nil
}

// fetch reads the policy row, returning sql.ErrNoRows when absent.
func (r *SQLitePricingRepository) fetch(ctx context.Context) (*Pricing, error) {
	var p Pricing
	var updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, hourly_rate, daily_max_rate, grace_period_minutes, updated_at
		 FROM parking_pricing ORDER BY id ASC LIMIT 1`,
	).Scan(&p.ID, &p.HourlyRate, &p.DailyMaxRate, &p.GracePeriodMinutes, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("querying pricing: %w", err)
	}

	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &p, nil
}
