package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

// deviceEvent is the wire format the controller publishes on the
// parking/events/* topics.
type deviceEvent struct {
	CardUID        string `json:"card_uid"`
	SlotID         int    `json:"slot_id"`
	Gate           string `json:"gate"`
	Status         string `json:"status"`
	Timestamp      int64  `json:"timestamp"`       // epoch seconds, 0 = not reported
	AvailableSlots int    `json:"available_slots"` // informational only
}

// ParseGateEvent decodes and validates an entry/exit payload.
//
// card_uid, gate, and status are required; the card UID is normalised to
// uppercase hex. The status string is stored as reported: the firmware
// distinguishes denial reasons ("denied_unauthorized", "denied_full") and
// the set is open, so anything non-empty passes through. A missing
// timestamp defaults to the ingestion time. Any violation returns
// ErrMalformedPayload and the message must be dropped.
func ParseGateEvent(payload []byte, now time.Time) (parking.GateEvent, error) {
	var raw deviceEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return parking.GateEvent{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	uid, err := parking.NormalizeCardUID(raw.CardUID)
	if err != nil {
		return parking.GateEvent{}, fmt.Errorf("%w: card_uid %q: %w", ErrMalformedPayload, raw.CardUID, err)
	}
	if !parking.IsValidGate(raw.Gate) {
		return parking.GateEvent{}, fmt.Errorf("%w: gate %q", ErrMalformedPayload, raw.Gate)
	}
	if raw.Status == "" {
		return parking.GateEvent{}, fmt.Errorf("%w: missing status", ErrMalformedPayload)
	}

	ts := now.UTC()
	if raw.Timestamp > 0 {
		ts = time.Unix(raw.Timestamp, 0).UTC()
	}

	return parking.GateEvent{
		CardUID:   uid,
		SlotID:    raw.SlotID,
		Gate:      raw.Gate,
		Status:    raw.Status,
		Timestamp: ts,
	}, nil
}

// ParseScanEvent decodes a scan-mode payload from parking/events/scan.
//
// Scan payloads carry no status and no slot: the reader only reports which
// card was held up at which gate. card_uid and gate are required.
func ParseScanEvent(payload []byte, now time.Time) (parking.GateEvent, error) {
	var raw deviceEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return parking.GateEvent{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	uid, err := parking.NormalizeCardUID(raw.CardUID)
	if err != nil {
		return parking.GateEvent{}, fmt.Errorf("%w: card_uid %q: %w", ErrMalformedPayload, raw.CardUID, err)
	}
	if !parking.IsValidGate(raw.Gate) {
		return parking.GateEvent{}, fmt.Errorf("%w: gate %q", ErrMalformedPayload, raw.Gate)
	}

	ts := now.UTC()
	if raw.Timestamp > 0 {
		ts = time.Unix(raw.Timestamp, 0).UTC()
	}

	return parking.GateEvent{
		CardUID:   uid,
		Gate:      raw.Gate,
		Timestamp: ts,
	}, nil
}

// SystemStatus is the controller's periodic heartbeat on parking/system.
// It is informational; the backend logs and forwards it without touching
// slot state.
type SystemStatus struct {
	Status         string `json:"status"`
	AvailableSlots int    `json:"available_slots"`
	Emergency      bool   `json:"emergency"`
	Timestamp      int64  `json:"timestamp"`
}

// ParseSystemStatus decodes a parking/system payload.
func ParseSystemStatus(payload []byte) (SystemStatus, error) {
	var status SystemStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return SystemStatus{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return status, nil
}
