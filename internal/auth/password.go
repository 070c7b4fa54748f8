package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for dashboard account passwords. The backend runs on
// small boards next to the gate hardware, so parallelism stays at 1 and
// memory at 64 MiB; logins are rare enough that 3 iterations is fine.
const (
	argonIterations  = 3
	argonMemoryKiB   = 64 * 1024
	argonParallelism = 1
	argonKeyLen      = 32
	argonSaltLen     = 16
)

// HashPassword derives an Argon2id hash for storage in the users table.
//
// The result is a PHC-formatted string ($argon2id$v=19$m=...,t=...,p=...$
// salt$hash) so the parameters travel with the hash and can be raised later
// without invalidating existing accounts.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt,
		argonIterations, argonMemoryKiB, argonParallelism, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemoryKiB, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword checks a login attempt against a stored PHC hash.
// The derivation uses the parameters recorded in the hash, not the current
// constants, so old hashes keep verifying after a parameter bump.
func VerifyPassword(password, stored string) (bool, error) {
	salt, key, params, err := parsePHC(stored)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt,
		params.iterations, params.memoryKiB, params.parallelism, uint32(len(key))) //nolint:gosec // G115: key length always fits uint32

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

type phcParams struct {
	iterations  uint32
	memoryKiB   uint32
	parallelism uint8
}

// parsePHC splits a $argon2id$...$ string into salt, key, and parameters.
func parsePHC(stored string) (salt, key []byte, params phcParams, err error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("malformed password hash")
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported hash algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing hash version: %w", err)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.memoryKiB, &params.iterations, &params.parallelism); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing hash parameters: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}

	return salt, key, params, nil
}
