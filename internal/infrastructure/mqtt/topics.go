package mqtt

import "fmt"

// Topic prefixes for the parking MQTT namespace.
//
// The gate controller firmware publishes under parking/events/{kind} and
// parking/system, and listens on parking/commands. These names are fixed by
// the firmware; changing them here breaks the deployed controllers.
const (
	// TopicPrefixEvents is the base for all gate controller event topics.
	TopicPrefixEvents = "parking/events"

	// TopicSystem carries controller lifecycle and status messages.
	TopicSystem = "parking/system"

	// TopicCommands is where the backend publishes commands to the controller.
	TopicCommands = "parking/commands"

	// TopicBackendStatus is where the backend announces its own presence
	// (online/offline, LWT on crash).
	TopicBackendStatus = "parking/backend/status"
)

// Topics provides builders for parking MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// EntryEvents returns the topic for vehicle entry events.
//
// Example: parking/events/entry
func (Topics) EntryEvents() string {
	return fmt.Sprintf("%s/entry", TopicPrefixEvents)
}

// ExitEvents returns the topic for vehicle exit events.
//
// Example: parking/events/exit
func (Topics) ExitEvents() string {
	return fmt.Sprintf("%s/exit", TopicPrefixEvents)
}

// ScanEvents returns the topic for scan-mode card detections.
//
// Example: parking/events/scan
func (Topics) ScanEvents() string {
	return fmt.Sprintf("%s/scan", TopicPrefixEvents)
}

// AllEvents returns a pattern matching every gate controller event.
//
// Pattern: parking/events/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvents)
}

// System returns the controller status topic.
func (Topics) System() string {
	return TopicSystem
}

// Commands returns the topic the controller listens to for commands.
func (Topics) Commands() string {
	return TopicCommands
}
