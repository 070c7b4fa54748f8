// Package ingest consumes gate controller events from MQTT and applies
// them to the database, and publishes commands back to the controller.
//
// Inbound messages are decoded and validated, then queued onto a bounded
// channel consumed by a single worker goroutine, so broker callbacks never
// block on database transactions. After a message is applied, a
// notification is fanned out to registered listeners (the websocket hub,
// telemetry).
package ingest
