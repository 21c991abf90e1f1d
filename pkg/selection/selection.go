// Package selection tracks which connected cups commands are aimed at.
package selection

import (
	"slices"
	"sync"

	"github.com/urmzd/glowcup/pkg/cup"
)

// Model is the set of selected cup ids. Every id in it is Connected in
// the registry: Select refuses other ids and HandleEvent drops ids whose
// connection ends.
type Model struct {
	registry *cup.Registry

	mu       sync.Mutex
	ids      map[string]struct{}
	onChange []func([]string)
}

// New creates an empty selection bound to registry.
func New(registry *cup.Registry) *Model {
	return &Model{registry: registry, ids: make(map[string]struct{})}
}

// OnChange registers fn to receive the new selection after each change.
func (m *Model) OnChange(fn func([]string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Select adds id if it is connected. It reports whether id is selected
// afterwards.
func (m *Model) Select(id string) bool {
	id = cup.NormalizeID(id)

	m.mu.Lock()
	if !m.registry.IsConnected(id) {
		m.mu.Unlock()
		return false
	}
	if _, ok := m.ids[id]; ok {
		m.mu.Unlock()
		return true
	}
	m.ids[id] = struct{}{}
	m.notifyLocked()
	return true
}

// Deselect removes id. Removing an unselected id is a no-op.
func (m *Model) Deselect(id string) {
	id = cup.NormalizeID(id)

	m.mu.Lock()
	if _, ok := m.ids[id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.ids, id)
	m.notifyLocked()
}

// SelectAll replaces the selection with every cup connected right now.
func (m *Model) SelectAll() []string {
	m.mu.Lock()
	connected := m.registry.ConnectedIDs()
	next := make(map[string]struct{}, len(connected))
	for _, id := range connected {
		next[id] = struct{}{}
	}
	if sameKeys(m.ids, next) {
		m.mu.Unlock()
		return connected
	}
	m.ids = next
	m.notifyLocked()
	return connected
}

// DeselectAll clears the selection.
func (m *Model) DeselectAll() {
	m.mu.Lock()
	if len(m.ids) == 0 {
		m.mu.Unlock()
		return
	}
	m.ids = make(map[string]struct{})
	m.notifyLocked()
}

// IDs returns the selected ids, sorted.
func (m *Model) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked()
}

// Contains reports whether id is selected.
func (m *Model) Contains(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[cup.NormalizeID(id)]
	return ok
}

// Len returns the number of selected cups.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids)
}

// HandleEvent is a cup.Listener. Any transition away from Connected
// removes the cup before the event reaches later listeners.
func (m *Model) HandleEvent(e cup.Event) {
	if e.Type != cup.EventStateChanged || e.State == cup.StateConnected {
		return
	}
	m.Deselect(e.DeviceID)
}

func (m *Model) sortedLocked() []string {
	ids := make([]string, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// notifyLocked releases m.mu and runs the change callbacks.
func (m *Model) notifyLocked() {
	ids := m.sortedLocked()
	callbacks := slices.Clone(m.onChange)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(ids)
	}
}

func sameKeys(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
