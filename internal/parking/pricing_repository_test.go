package parking

import (
	"context"
	"errors"
	"testing"
)

func TestPricingRepository_GetSeedsDefaults(t *testing.T) {
	repo := NewPricingRepository(testDB(t), 5.0, 50.0, 15)
	ctx := context.Background()

	p, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.HourlyRate != 5.0 || p.DailyMaxRate != 50.0 || p.GracePeriodMinutes != 15 {
		t.Errorf("seeded pricing = %+v, want 5.0/50.0/15", p)
	}

	// Second read returns the same row, not a new one.
	p2, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if p2.ID != p.ID {
		t.Errorf("second Get() ID = %d, want %d", p2.ID, p.ID)
	}
}

func TestPricingRepository_Update(t *testing.T) {
	repo := NewPricingRepository(testDB(t), 5.0, 50.0, 15)
	ctx := context.Background()

	update := &Pricing{HourlyRate: 7.5, DailyMaxRate: 60.0, GracePeriodMinutes: 30}
	if err := repo.Update(ctx, update); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	p, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.HourlyRate != 7.5 || p.DailyMaxRate != 60.0 || p.GracePeriodMinutes != 30 {
		t.Errorf("updated pricing = %+v, want 7.5/60.0/30", p)
	}
}

func TestPricingRepository_UpdateRejectsNegatives(t *testing.T) {
	repo := NewPricingRepository(testDB(t), 5.0, 50.0, 15)

	err := repo.Update(context.Background(), &Pricing{HourlyRate: -1})
	if !errors.Is(err, ErrInvalidPricing) {
		t.Errorf("Update(negative) error = %v, want ErrInvalidPricing", err)
	}
}
