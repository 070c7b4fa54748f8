package parking

import (
	"regexp"
	"strings"
	"time"
)

// Slot status values.
const (
	SlotAvailable = "available"
	SlotOccupied  = "occupied"
)

// Log action values. These mirror what the gate controller reports.
const (
	ActionEntry = "entry"
	ActionExit  = "exit"
)

// Gate identifiers. The controller has exactly two readers.
const (
	GateEntrance = "entrance"
	GateExit     = "exit"
)

// Event status values reported by the controller. The set is open: the
// firmware distinguishes denial reasons ("denied_unauthorized",
// "denied_full", ...) and may grow new ones, so statuses are stored as
// reported. Only StatusSuccess carries meaning for the backend; anything
// else is a denial.
const (
	StatusSuccess            = "success"
	StatusDeniedUnauthorized = "denied_unauthorized"
	StatusDeniedFull         = "denied_full"
)

// Card access levels.
const (
	AccessRegular   = "regular"
	AccessAdmin     = "admin"
	AccessTemporary = "temporary"
)

// ValidAccessLevels is the set of accepted card access levels.
var ValidAccessLevels = []string{AccessRegular, AccessAdmin, AccessTemporary}

// IsValidAccessLevel returns true for a recognised card access level.
func IsValidAccessLevel(level string) bool {
	for _, v := range ValidAccessLevels {
		if level == v {
			return true
		}
	}
	return false
}

// IsValidGate returns true for the two physical gates.
func IsValidGate(gate string) bool {
	return gate == GateEntrance || gate == GateExit
}

// cardUIDPattern matches normalised card UIDs: 8-20 uppercase hex characters.
// MIFARE Classic UIDs are 4 bytes (8 hex), DESFire are 7 bytes (14 hex);
// the upper bound leaves room for 10-byte UIDs.
var cardUIDPattern = regexp.MustCompile(`^[0-9A-F]{8,20}$`)

// NormalizeCardUID uppercases and trims a card UID, returning an error for
// UIDs that are not valid hex of plausible length. All storage and lookups
// go through this so readers reporting lowercase hex still match.
func NormalizeCardUID(uid string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(uid))
	if !cardUIDPattern.MatchString(normalized) {
		return "", ErrInvalidCardUID
	}
	return normalized, nil
}

// Slot represents one physical parking space.
type Slot struct {
	SlotID         int        `json:"slot_id"`
	Status         string     `json:"status"`
	CurrentCardUID string     `json:"current_card_uid,omitempty"`
	EntryTime      *time.Time `json:"entry_time,omitempty"`
	ExitTime       *time.Time `json:"exit_time,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Card represents a registered RFID card.
type Card struct {
	CardUID      string    `json:"card_uid"`
	OwnerName    string    `json:"owner_name"`
	OwnerEmail   string    `json:"owner_email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	VehiclePlate string    `json:"vehicle_plate,omitempty"`
	IsActive     bool      `json:"is_active"`
	AccessLevel  string    `json:"access_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LogEntry represents one row in the entry/exit history.
//
// DurationMinutes and FeeAmount are set only on successful exits where the
// stay could be measured.
type LogEntry struct {
	LogID           int64     `json:"log_id"`
	CardUID         string    `json:"card_uid"`
	SlotID          *int      `json:"slot_id,omitempty"`
	Action          string    `json:"action"`
	Gate            string    `json:"gate"`
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	FeeAmount       *float64  `json:"fee_amount,omitempty"`
}

// Pricing is the active fee policy. A single row in parking_pricing; updates
// replace its values in place so historical logs keep their recorded fees.
type Pricing struct {
	ID                 int64     `json:"id"`
	HourlyRate         float64   `json:"hourly_rate"`
	DailyMaxRate       float64   `json:"daily_max_rate"`
	GracePeriodMinutes int       `json:"grace_period_minutes"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate checks pricing values for sanity.
func (p Pricing) Validate() error {
	if p.HourlyRate < 0 || p.DailyMaxRate < 0 || p.GracePeriodMinutes < 0 {
		return ErrInvalidPricing
	}
	return nil
}
