// Package bletest provides a programmable in-memory ble.Transport.
package bletest

import (
	"context"
	"slices"
	"sync"

	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/cup"
)

// ConnectFunc decides the result of a Connect call.
type ConnectFunc func(ctx context.Context, id string) error

// WriteFunc decides the result of a WriteCharacteristic call. It runs
// before the write is recorded; a non-nil error means nothing was written.
type WriteFunc func(ctx context.Context, id string, payload []byte) error

// Write is one accepted characteristic write.
type Write struct {
	ID      string
	Payload []byte
}

// Transport is a fake radio. All methods are safe for concurrent use.
type Transport struct {
	mu          sync.Mutex
	enabled     bool
	scanHandler func(ble.Advertisement)
	connected   map[string]bool
	streams     map[string]chan []byte
	writes      []Write
	attempts    map[string]int
	onConnect   ConnectFunc
	onWrite     WriteFunc
	stopScans   int
	disconnects map[string]int
}

// New returns an enabled transport where every operation succeeds.
func New() *Transport {
	return &Transport{
		enabled:     true,
		connected:   make(map[string]bool),
		streams:     make(map[string]chan []byte),
		attempts:    make(map[string]int),
		disconnects: make(map[string]int),
	}
}

// SetEnabled powers the fake adapter on or off.
func (t *Transport) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// OnConnect installs a hook deciding Connect results.
func (t *Transport) OnConnect(fn ConnectFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnect = fn
}

// OnWrite installs a hook deciding WriteCharacteristic results.
func (t *Transport) OnWrite(fn WriteFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onWrite = fn
}

// Advertise delivers an advertisement to the running scan, if any.
// It reports whether a scan received it.
func (t *Transport) Advertise(adv ble.Advertisement) bool {
	t.mu.Lock()
	handler := t.scanHandler
	t.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(adv)
	return true
}

// Scanning reports whether a scan is running.
func (t *Transport) Scanning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scanHandler != nil
}

// StopScanCalls returns how many times a running scan was stopped.
func (t *Transport) StopScanCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopScans
}

// Notify pushes a notification to id's stream. It reports whether the
// stream accepted it.
func (t *Transport) Notify(id string, payload []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	stream, ok := t.streams[id]
	if !ok {
		return false
	}
	select {
	case stream <- payload:
		return true
	default:
		return false
	}
}

// DropLink simulates the peripheral vanishing: the link is lost and the
// notification stream closes without a Disconnect call.
func (t *Transport) DropLink(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected[id] = false
	t.closeStreamLocked(id)
}

// IsLinked reports whether the fake holds an open link to id.
func (t *Transport) IsLinked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected[id]
}

// Writes returns every accepted write in acceptance order.
func (t *Transport) Writes() []Write {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.writes)
}

// WritesTo returns the payloads accepted for id in order.
func (t *Transport) WritesTo(id string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out [][]byte
	for _, w := range t.writes {
		if w.ID == id {
			out = append(out, w.Payload)
		}
	}
	return out
}

// Attempts returns how many writes were attempted for id, including failures.
func (t *Transport) Attempts(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts[id]
}

// Disconnects returns how many times Disconnect was called for id.
func (t *Transport) Disconnects(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disconnects[id]
}

func (t *Transport) closeStreamLocked(id string) {
	if stream, ok := t.streams[id]; ok {
		close(stream)
		delete(t.streams, id)
	}
}

func (t *Transport) IsAdapterEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *Transport) StartScan(handler func(ble.Advertisement)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return cup.ErrAdapterDisabled
	}
	if t.scanHandler != nil {
		return cup.ErrScanInProgress
	}
	t.scanHandler = handler
	return nil
}

func (t *Transport) StopScan() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.scanHandler != nil {
		t.stopScans++
	}
	t.scanHandler = nil
	return nil
}

func (t *Transport) Connect(ctx context.Context, id string) error {
	t.mu.Lock()
	enabled, hook := t.enabled, t.onConnect
	t.mu.Unlock()

	if !enabled {
		return cup.ErrAdapterDisabled
	}
	if hook != nil {
		if err := hook(ctx, id); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected[id] = true
	return nil
}

func (t *Transport) Disconnect(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnects[id]++
	t.connected[id] = false
	t.closeStreamLocked(id)
	return nil
}

func (t *Transport) WriteCharacteristic(ctx context.Context, id string, payload []byte) error {
	t.mu.Lock()
	linked, hook := t.connected[id], t.onWrite
	t.attempts[id]++
	t.mu.Unlock()

	if !linked {
		return cup.ErrNotConnected
	}
	if hook != nil {
		if err := hook(ctx, id, payload); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, Write{ID: id, Payload: slices.Clone(payload)})
	return nil
}

func (t *Transport) SubscribeNotifications(ctx context.Context, id string) (<-chan []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected[id] {
		return nil, cup.ErrNotConnected
	}
	stream := make(chan []byte, 16)
	t.streams[id] = stream
	return stream, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.streams {
		t.closeStreamLocked(id)
	}
	t.scanHandler = nil
	return nil
}

var _ ble.Transport = (*Transport)(nil)
