// Package config loads and validates Parkgate Core configuration.
//
// Configuration is read from a YAML file with defaults applied first and
// PARKGATE_* environment variables applied last, so secrets (MQTT password,
// JWT secret, admin password) never need to live in the file.
package config
