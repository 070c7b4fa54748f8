// Package influxdb provides optional time-series telemetry for Parkgate.
//
// It wraps the official influxdb-client-go v2 library with patterns for
// connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Lot occupancy over time
//   - Gate events (entries, exits, scans, denials)
//   - Revenue per exit
//
// The relational source of truth stays in SQLite; InfluxDB only receives
// derived telemetry for dashboards (Grafana). The system runs fine with
// telemetry disabled.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off, continue without it
//	}
//	defer client.Close()
//
//	client.WriteOccupancy(7, 10)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
