package cup

import "time"

// EventType names a change emitted by the connection layer.
type EventType string

const (
	EventDiscovered   EventType = "cup_discovered"
	EventStateChanged EventType = "cup_state_changed"
	EventBattery      EventType = "cup_battery"
	EventScanStarted  EventType = "scan_started"
	EventScanStopped  EventType = "scan_stopped"
)

// Event describes a single registry mutation made by the connection layer.
// Listeners receive events synchronously, after the registry reflects them.
type Event struct {
	Type      EventType       `json:"type"`
	DeviceID  string          `json:"device_id"`
	State     ConnectionState `json:"state,omitempty"`
	Previous  ConnectionState `json:"previous,omitempty"`
	Battery   int             `json:"battery_level,omitempty"`
	Err       error           `json:"-"`
	Timestamp time.Time       `json:"timestamp"`
}

// Listener consumes connection events.
type Listener func(Event)
