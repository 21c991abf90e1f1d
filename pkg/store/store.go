// Package store aggregates registry, selection and command state into
// versioned snapshots for observers.
package store

import (
	"sync"
	"time"

	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/dispatch"
)

// Selection is the read side of the selection model.
type Selection interface {
	IDs() []string
}

// Status reports adapter activity.
type Status interface {
	IsConnecting() bool
	Scanning() bool
}

// Snapshot is an immutable view of the whole control state.
type Snapshot struct {
	Version           uint64       `json:"version"`
	Devices           []cup.Device `json:"cups"`
	Selection         []string     `json:"selected_cups"`
	LastCommand       *cup.Command `json:"last_command,omitempty"`
	IsConnecting      bool         `json:"is_connecting"`
	IsScanning        bool         `json:"is_scanning"`
	CurrentColor      cup.Color    `json:"current_color"`
	CurrentBrightness int          `json:"current_brightness"`
	CurrentMode       cup.Mode     `json:"current_mode"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Store republishes a Snapshot after every mutation it is told about.
// It observes only and never writes to the registry or selection.
type Store struct {
	registry  *cup.Registry
	selection Selection
	status    Status

	mu          sync.Mutex
	current     Snapshot
	lastCommand *cup.Command
	color       cup.Color
	brightness  int
	mode        cup.Mode
	subscribers map[chan Snapshot]struct{}
}

// New creates a Store and builds its first snapshot.
func New(registry *cup.Registry, selection Selection, status Status) *Store {
	s := &Store{
		registry:    registry,
		selection:   selection,
		status:      status,
		color:       cup.DefaultColor,
		brightness:  cup.DefaultBrightness,
		mode:        cup.DefaultMode,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	s.current = s.build(0)
	return s
}

// Snapshot returns the latest published snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// HandleEvent is a cup.Listener.
func (s *Store) HandleEvent(cup.Event) { s.Publish() }

// HandleSelection is a selection change callback.
func (s *Store) HandleSelection([]string) { s.Publish() }

// HandleDispatch records the command of a completed dispatch. Values
// only become current once at least one cup confirmed them. Battery
// queries are not lighting commands and leave LastCommand alone.
func (s *Store) HandleDispatch(rec dispatch.Record) {
	s.mu.Lock()
	cmd := rec.Command
	if cmd.Kind != cup.CommandQueryBattery {
		s.lastCommand = &cmd
	}
	if rec.Outcomes.Succeeded() > 0 {
		switch cmd.Kind {
		case cup.CommandSetColor:
			s.color = cmd.Color
		case cup.CommandSetBrightness:
			s.brightness = cmd.Brightness
		case cup.CommandSetMode:
			s.mode = cmd.Mode
		}
	}
	s.mu.Unlock()

	s.Publish()
}

// Publish builds a new snapshot and delivers it to subscribers.
func (s *Store) Publish() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.build(s.current.Version + 1)
	for ch := range s.subscribers {
		offer(ch, s.current)
	}
	return s.current
}

// build assembles a snapshot; s.mu must be held.
func (s *Store) build(version uint64) Snapshot {
	devices := s.registry.List()
	selected := connectedOnly(devices, s.selection.IDs())

	snap := Snapshot{
		Version:           version,
		Devices:           devices,
		Selection:         selected,
		IsConnecting:      s.status.IsConnecting(),
		IsScanning:        s.status.Scanning(),
		CurrentColor:      s.color,
		CurrentBrightness: s.brightness,
		CurrentMode:       s.mode,
		UpdatedAt:         time.Now(),
	}
	if s.lastCommand != nil {
		cmd := *s.lastCommand
		snap.LastCommand = &cmd
	}

	targets := effectiveTargets(devices, selected)
	if len(targets) == 0 {
		return snap
	}
	first := targets[0]
	uniformColor, uniformBrightness, uniformMode := true, true, true
	for _, d := range targets[1:] {
		uniformColor = uniformColor && d.Color == first.Color
		uniformBrightness = uniformBrightness && d.Brightness == first.Brightness
		uniformMode = uniformMode && d.Mode == first.Mode
	}
	if uniformColor {
		snap.CurrentColor = first.Color
	}
	if uniformBrightness {
		snap.CurrentBrightness = first.Brightness
	}
	if uniformMode {
		snap.CurrentMode = first.Mode
	}
	return snap
}

// connectedOnly drops selected ids that are not Connected in devices.
// The registry and selection are read separately, so a transition can
// land between the two reads.
func connectedOnly(devices []cup.Device, selected []string) []string {
	connected := make(map[string]bool, len(devices))
	for _, d := range devices {
		if d.Connected() {
			connected[d.ID] = true
		}
	}
	out := make([]string, 0, len(selected))
	for _, id := range selected {
		if connected[id] {
			out = append(out, id)
		}
	}
	return out
}

// effectiveTargets mirrors what a dispatch without explicit targets
// would reach: the selected connected cups, or every connected cup.
func effectiveTargets(devices []cup.Device, selected []string) []cup.Device {
	isSelected := make(map[string]bool, len(selected))
	for _, id := range selected {
		isSelected[id] = true
	}

	var chosen, connected []cup.Device
	for _, d := range devices {
		if !d.Connected() {
			continue
		}
		connected = append(connected, d)
		if isSelected[d.ID] {
			chosen = append(chosen, d)
		}
	}
	if len(chosen) > 0 {
		return chosen
	}
	return connected
}

// Subscribe returns a channel that receives the current snapshot and
// then every newer one. A slow reader only ever sees the latest.
func (s *Store) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[ch] = struct{}{}
	ch <- s.current
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Store) Unsubscribe(ch chan Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// offer replaces any unread value in ch with v.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
