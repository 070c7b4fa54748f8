package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/mqtt"
	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

// Publisher is the broker surface the commander publishes through.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Commander sends commands to the gate controller on parking/commands.
//
// Publishing is fire-and-forget with the transport's timeout: when the
// broker is unreachable the error surfaces immediately and nothing is
// queued or retried. The controller does not acknowledge commands.
type Commander struct {
	publisher Publisher
	qos       byte
}

// NewCommander creates a commander publishing at the given QoS.
func NewCommander(publisher Publisher, qos byte) *Commander {
	return &Commander{publisher: publisher, qos: qos}
}

// OpenBarrier asks the controller to open one barrier manually.
func (c *Commander) OpenBarrier(gate string) error {
	if !parking.IsValidGate(gate) {
		return fmt.Errorf("%w: %q", ErrInvalidGate, gate)
	}
	return c.send(map[string]any{
		"command": "open_barrier",
		"gate":    gate,
	})
}

// SetEmergency enables or disables emergency mode (both barriers open,
// access checks suspended).
func (c *Commander) SetEmergency(enable bool) error {
	return c.send(map[string]any{
		"command": "emergency",
		"enable":  enable,
	})
}

// RequestStatus asks the controller to publish a status message on
// parking/system.
func (c *Commander) RequestStatus() error {
	return c.send(map[string]any{
		"command": "get_status",
	})
}

// SetScanMode toggles scan mode on one gate's reader: scanned cards are
// reported on parking/events/scan instead of operating the barrier. Used
// when registering new cards.
func (c *Commander) SetScanMode(enable bool, gate string) error {
	if !parking.IsValidGate(gate) {
		return fmt.Errorf("%w: %q", ErrInvalidGate, gate)
	}
	return c.send(map[string]any{
		"command": "scan_mode",
		"enable":  enable,
		"gate":    gate,
	})
}

// whitelistCard is the wire shape of one whitelist entry. The controller
// keeps the owner name and access level for its offline display.
type whitelistCard struct {
	CardUID     string `json:"card_uid"`
	OwnerName   string `json:"owner_name"`
	AccessLevel string `json:"access_level"`
	IsActive    bool   `json:"is_active"`
}

// SyncWhitelist pushes the full set of active cards to the controller so it
// can grant access offline. An empty set is a valid sync: deactivating the
// last card must clear the controller's whitelist too.
func (c *Commander) SyncWhitelist(cards []parking.Card) error {
	entries := make([]whitelistCard, 0, len(cards))
	for _, card := range cards {
		owner := card.OwnerName
		if owner == "" {
			owner = "Unknown"
		}
		entries = append(entries, whitelistCard{
			CardUID:     card.CardUID,
			OwnerName:   owner,
			AccessLevel: card.AccessLevel,
			IsActive:    card.IsActive,
		})
	}
	return c.send(map[string]any{
		"command": "sync_whitelist",
		"cards":   entries,
	})
}

func (c *Commander) send(command map[string]any) error {
	payload, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	topics := mqtt.Topics{}
	if err := c.publisher.Publish(topics.Commands(), payload, c.qos, false); err != nil {
		return fmt.Errorf("publishing %v command: %w", command["command"], err)
	}
	return nil
}
