package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedAdmin_CreatesAccount(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	cfg := config.AdminConfig{
		Username: "admin",
		Email:    "admin@parking.local",
		Password: "configured-password",
	}

	generated, err := SeedAdmin(ctx, repo, cfg, discardLogger())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if generated != "" {
		t.Error("SeedAdmin() should not generate a password when one is configured")
	}

	admin, err := repo.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername(admin) error = %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Errorf("Role = %q, want admin", admin.Role)
	}

	ok, err := VerifyPassword("configured-password", admin.PasswordHash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("seeded password should verify")
	}
}

func TestSeedAdmin_GeneratesPasswordWhenUnset(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	cfg := config.AdminConfig{Username: "admin", Email: "admin@parking.local"}

	generated, err := SeedAdmin(context.Background(), repo, cfg, discardLogger())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if generated == "" {
		t.Fatal("SeedAdmin() should generate a password when none is configured")
	}
	if len(generated) != seedPasswordBytes*2 {
		t.Errorf("generated password length = %d, want %d hex chars", len(generated), seedPasswordBytes*2)
	}
}

func TestSeedAdmin_SkipsWhenUsersExist(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	mustCreateUser(t, repo, "existing", "e@parking.local", RoleAdmin)

	cfg := config.AdminConfig{Username: "admin", Email: "admin@parking.local"}
	generated, err := SeedAdmin(ctx, repo, cfg, discardLogger())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if generated != "" {
		t.Error("SeedAdmin() should skip when users already exist")
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d after skipped seed, want 1", count)
	}
}
