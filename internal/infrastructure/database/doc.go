// Package database manages the SQLite connection for Parkgate Core.
//
// It wraps database/sql with WAL-mode configuration tuned for a single
// writer (the MQTT ingest worker) plus concurrent API readers, and applies
// embedded, versioned schema migrations at startup.
package database
