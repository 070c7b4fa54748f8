package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/config"
)

// seedPasswordBytes is the number of random bytes for a generated admin password.
const seedPasswordBytes = 16

// SeedAdmin creates the initial admin account on first boot if no users exist.
// The password comes from config (PARKGATE_ADMIN_PASSWORD); if unset, a random
// one is generated and logged, and must be changed immediately.
// Returns the generated password (empty string if seeding was skipped or the
// password was supplied via config).
func SeedAdmin(ctx context.Context, userRepo UserRepository, cfg config.AdminConfig, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Debug("users exist, skipping admin seed")
		return "", nil
	}

	password := cfg.Password
	generated := ""
	if password == "" {
		raw := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(raw); err != nil { //nolint:govet // shadow: err re-declared in nested scope
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		password = hex.EncodeToString(raw)
		generated = password
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		Username:     cfg.Username,
		Email:        cfg.Email,
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	if generated != "" {
		logger.Warn("seed admin account created with generated password",
			"username", cfg.Username,
			"password", generated,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("seed admin account created", "username", cfg.Username)
	}

	return generated, nil
}
