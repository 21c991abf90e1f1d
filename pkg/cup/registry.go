package cup

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Registry is the single source of truth for cup identity and attributes.
//
// Ownership of fields is split by writer: the connection layer calls
// Observe, Transition and SetBattery; the dispatcher calls Apply. Reads
// return copies and are safe from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Observe records a discovery sighting. A new id is added in the Discovered
// state; a known id only has its name and telemetry refreshed.
// It reports whether the device was newly created.
func (r *Registry) Observe(id, name string, rssi int16, at time.Time) (Device, bool) {
	id = NormalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		if name != "" {
			d.Name = name
		}
		d.RSSI = rssi
		d.LastSeenAt = at
		return *d, false
	}

	d := &Device{
		ID:         id,
		Name:       name,
		State:      StateDiscovered,
		Color:      DefaultColor,
		Brightness: DefaultBrightness,
		Mode:       DefaultMode,
		Battery:    BatteryUnknown,
		RSSI:       rssi,
		LastSeenAt: at,
	}
	if d.Name == "" {
		d.Name = id
	}
	r.devices[id] = d
	return *d, true
}

// Get returns a copy of the device with the given id.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[NormalizeID(id)]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return *d, nil
}

// List returns copies of every device, ordered by id.
func (r *Registry) List() []Device {
	r.mu.RLock()
	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d)
	}
	r.mu.RUnlock()

	slices.SortFunc(devices, func(a, b Device) int { return strings.Compare(a.ID, b.ID) })
	return devices
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// IsConnected reports whether id is known and Connected.
func (r *Registry) IsConnected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[NormalizeID(id)]
	return ok && d.State == StateConnected
}

// ConnectedIDs returns the sorted ids of every Connected device.
func (r *Registry) ConnectedIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.devices))
	for id, d := range r.devices {
		if d.State == StateConnected {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Transition moves a device to next, enforcing the state machine.
// It returns the previous state.
func (r *Registry) Transition(id string, next ConnectionState) (ConnectionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[NormalizeID(id)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	prev := d.State
	if !prev.CanTransition(next) {
		return prev, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, prev, next)
	}
	d.State = next
	return prev, nil
}

// SetBattery stores a battery report. level must be 0-100 or BatteryUnknown.
func (r *Registry) SetBattery(id string, level int) error {
	if level != BatteryUnknown && (level < 0 || level > 100) {
		return fmt.Errorf("%w: battery level %d", ErrProtocol, level)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[NormalizeID(id)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	d.Battery = level
	return nil
}

// Apply records a command the device has confirmed. Values outside their
// valid range are rejected so stored state can never leave it.
func (r *Registry) Apply(id string, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[NormalizeID(id)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	switch cmd.Kind {
	case CommandSetColor:
		d.Color = cmd.Color
	case CommandSetBrightness:
		d.Brightness = cmd.Brightness
	case CommandSetMode:
		d.Mode = cmd.Mode
	}
	return nil
}

// NormalizeID canonicalizes a BLE address so lookups are case-insensitive.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
