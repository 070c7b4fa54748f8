package auth

import (
	"context"
	"errors"
	"testing"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	created := mustCreateUser(t, repo, "attendant", "attendant@parking.local", RoleOperator)

	if created.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	byID, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Username != "attendant" {
		t.Errorf("Username = %q, want attendant", byID.Username)
	}
	if byID.Role != RoleOperator {
		t.Errorf("Role = %q, want operator", byID.Role)
	}
	if !byID.IsActive {
		t.Error("IsActive = false, want true")
	}
	if byID.LastLogin != nil {
		t.Error("LastLogin should be nil for a fresh account")
	}

	byName, err := repo.GetByUsername(ctx, "attendant")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetByUsername().ID = %q, want %q", byName.ID, created.ID)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	mustCreateUser(t, repo, "attendant", "a@parking.local", RoleOperator)

	dup := &User{
		Username:     "attendant",
		Email:        "b@parking.local",
		PasswordHash: "x",
		Role:         RoleViewer,
		IsActive:     true,
	}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("Create(duplicate) error = %v, want ErrUsernameExists", err)
	}
}

func TestUserRepository_GetMissing(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "usr-nope"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByUsername(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByUsername(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	u := mustCreateUser(t, repo, "attendant", "a@parking.local", RoleOperator)

	u.Email = "new@parking.local"
	u.Role = RoleAdmin
	u.IsActive = false
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "new@parking.local" || got.Role != RoleAdmin || got.IsActive {
		t.Errorf("updated user = %+v, want new email/admin/inactive", got)
	}
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	err := repo.Update(context.Background(), &User{ID: "usr-nope", Role: RoleViewer})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_TouchLastLogin(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	u := mustCreateUser(t, repo, "attendant", "a@parking.local", RoleOperator)

	if err := repo.TouchLastLogin(ctx, u.ID); err != nil {
		t.Fatalf("TouchLastLogin() error = %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastLogin == nil {
		t.Error("LastLogin should be set after TouchLastLogin")
	}
}

func TestUserRepository_DeleteAndCount(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	u := mustCreateUser(t, repo, "attendant", "a@parking.local", RoleOperator)
	mustCreateUser(t, repo, "viewer", "v@parking.local", RoleViewer)

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}

	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second Delete() error = %v, want ErrUserNotFound", err)
	}

	users, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 1 {
		t.Errorf("List() returned %d users, want 1", len(users))
	}
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		username string
		want     bool
	}{
		{"admin", true},
		{"first.last", true},
		{"user_01-x", true},
		{"", false},
		{"has space", false},
		{"emoji💥", false},
	}

	for _, tt := range tests {
		if got := IsValidUsername(tt.username); got != tt.want {
			t.Errorf("IsValidUsername(%q) = %v, want %v", tt.username, got, tt.want)
		}
	}
}
