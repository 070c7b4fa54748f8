// Package auth provides authentication for the Parkgate admin API.
//
// It implements a 3-tier role model (viewer → operator → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Stateless JWT access tokens (HS256, signature-only validation)
//   - Single-use short-lived tickets for WebSocket upgrades, where the
//     Authorization header is not available
//   - First-boot admin seeding from configuration
//
// There is no self-service registration: accounts are created by an admin
// (or seeded on first boot). The dashboard is an operations tool, not a
// public surface.
package auth
