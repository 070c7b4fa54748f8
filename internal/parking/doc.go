// Package parking holds the domain model for the lot: slots, RFID cards,
// entry/exit logs, pricing, and statistics.
//
// The package is organised as SQLite-backed repositories (one per table)
// plus a transactional Recorder that applies gate controller events. The
// Recorder is the only component that mutates slots and logs together; it
// wraps each event in a single transaction so a crash mid-event never
// leaves a log row without its slot update or vice versa.
//
// Card UIDs are normalised to uppercase hex on the way in, so "a1b2c3d4"
// and "A1B2C3D4" are the same card everywhere.
package parking
