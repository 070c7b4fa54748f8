package parking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSlotRepository_SeedIdempotent(t *testing.T) {
	db := testDB(t)
	repo := NewSlotRepository(db)
	ctx := context.Background()

	if err := repo.Seed(ctx, 10); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	// Occupy a slot, then re-seed: the occupied slot must survive.
	rec := NewRecorder(db, NewPricingRepository(db, 5.0, 50.0, 15))
	mustRecordEntry(t, rec, "A1B2C3D4", 4, time.Now().UTC())

	if err := repo.Seed(ctx, 10); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 10 {
		t.Errorf("Count() = %d, want 10", count)
	}

	slot, err := repo.Get(ctx, 4)
	if err != nil {
		t.Fatalf("Get(4) error = %v", err)
	}
	if slot.Status != SlotOccupied {
		t.Errorf("slot 4 status = %q after re-seed, want occupied", slot.Status)
	}
}

func TestSlotRepository_SeedGrowsLot(t *testing.T) {
	db := testDB(t)
	repo := NewSlotRepository(db)
	ctx := context.Background()

	if err := repo.Seed(ctx, 5); err != nil {
		t.Fatalf("Seed(5) error = %v", err)
	}
	if err := repo.Seed(ctx, 8); err != nil {
		t.Fatalf("Seed(8) error = %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 8 {
		t.Errorf("Count() = %d, want 8", count)
	}
}

func TestSlotRepository_ListOrdered(t *testing.T) {
	db := testDB(t)
	repo := NewSlotRepository(db)
	ctx := context.Background()

	if err := repo.Seed(ctx, 3); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	slots, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("List() returned %d slots, want 3", len(slots))
	}
	for i, s := range slots {
		if s.SlotID != i+1 {
			t.Errorf("slots[%d].SlotID = %d, want %d", i, s.SlotID, i+1)
		}
		if s.Status != SlotAvailable {
			t.Errorf("slots[%d].Status = %q, want available", i, s.Status)
		}
	}
}

func TestSlotRepository_Release(t *testing.T) {
	db := testDB(t)
	repo := NewSlotRepository(db)
	ctx := context.Background()

	if err := repo.Seed(ctx, 5); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	rec := NewRecorder(db, NewPricingRepository(db, 5.0, 50.0, 15))
	mustRecordEntry(t, rec, "A1B2C3D4", 2, time.Now().UTC())

	if err := repo.Release(ctx, 2); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	slot, err := repo.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get(2) error = %v", err)
	}
	if slot.Status != SlotAvailable || slot.CurrentCardUID != "" || slot.EntryTime != nil {
		t.Errorf("released slot = %+v, want available and cleared", slot)
	}

	if err := repo.Release(ctx, 99); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("Release(missing) error = %v, want ErrSlotNotFound", err)
	}
}

func TestSlotRepository_GetMissing(t *testing.T) {
	repo := NewSlotRepository(testDB(t))

	if _, err := repo.Get(context.Background(), 1); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSlotNotFound", err)
	}
}
