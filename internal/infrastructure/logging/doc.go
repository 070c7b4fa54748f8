// Package logging provides structured logging for Parkgate Core.
//
// It wraps log/slog with configuration-driven level and format selection
// and stamps every record with the service name and build version.
package logging
