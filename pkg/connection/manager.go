// Package connection owns the BLE transport: scanning, per-cup connect
// and disconnect, and the connection state machine.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/protocol"
)

// scanBuffer bounds discovered devices waiting for the scan consumer.
const scanBuffer = 64

// Config holds connection timing.
type Config struct {
	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns the stock timeouts.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    10 * time.Second,
		DisconnectTimeout: 5 * time.Second,
	}
}

// Manager drives a ble.Transport on behalf of the registry. It is the
// only writer of cup connection state.
type Manager struct {
	transport ble.Transport
	registry  *cup.Registry
	cfg       Config

	// adapterMu single-flights radio operations
	adapterMu sync.Mutex

	mu        sync.Mutex
	inflight  map[string]struct{}
	sessions  map[string]*Session
	scan      *scanState
	listeners []cup.Listener
}

type scanState struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	out    chan cup.Device
	closed bool
}

// NewManager creates a Manager. Zero durations in cfg fall back to defaults.
func NewManager(transport ble.Transport, registry *cup.Registry, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = def.DisconnectTimeout
	}
	return &Manager{
		transport: transport,
		registry:  registry,
		cfg:       cfg,
		inflight:  make(map[string]struct{}),
		sessions:  make(map[string]*Session),
	}
}

// AddListener registers l for connection events. Listeners run
// synchronously, in registration order, after the registry is updated.
func (m *Manager) AddListener(l cup.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) emit(e cup.Event) {
	e.Timestamp = time.Now()
	m.mu.Lock()
	listeners := make([]cup.Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(e)
	}
}

// transition moves id to next and publishes the change.
func (m *Manager) transition(id string, next cup.ConnectionState, cause error) error {
	prev, err := m.registry.Transition(id, next)
	if err != nil {
		return err
	}
	log.Debug().Str("cup", id).Str("from", string(prev)).Str("to", string(next)).Msg("Cup state changed")
	m.emit(cup.Event{
		Type:     cup.EventStateChanged,
		DeviceID: id,
		State:    next,
		Previous: prev,
		Err:      cause,
	})
	return nil
}

// IsConnecting reports whether any connect is in flight.
func (m *Manager) IsConnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight) > 0
}

// Scanning reports whether a scan is running.
func (m *Manager) Scanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scan != nil
}

// Session returns the live session of a connected cup.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[cup.NormalizeID(id)]
	return s, ok
}

// Scan discovers cups until timeout elapses or ctx is cancelled, then
// closes the returned channel. Only cups new to the registry are sent;
// sightings of known cups refresh their telemetry in place.
func (m *Manager) Scan(ctx context.Context, timeout time.Duration) (<-chan cup.Device, error) {
	if !m.transport.IsAdapterEnabled() {
		return nil, cup.ErrAdapterDisabled
	}

	m.mu.Lock()
	if m.scan != nil {
		m.mu.Unlock()
		return nil, cup.ErrScanInProgress
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	sc := &scanState{
		cancel: cancel,
		done:   make(chan struct{}),
		out:    make(chan cup.Device, scanBuffer),
	}
	m.scan = sc
	m.mu.Unlock()

	m.adapterMu.Lock()
	err := m.transport.StartScan(func(adv ble.Advertisement) { m.observe(sc, adv) })
	m.adapterMu.Unlock()
	if err != nil {
		cancel()
		m.mu.Lock()
		m.scan = nil
		m.mu.Unlock()
		return nil, fmt.Errorf("start scan: %w", err)
	}

	log.Info().Dur("timeout", timeout).Msg("Scanning for cups")
	m.emit(cup.Event{Type: cup.EventScanStarted})

	go func() {
		<-sctx.Done()

		m.adapterMu.Lock()
		if err := m.transport.StopScan(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop scan")
		}
		m.adapterMu.Unlock()

		m.mu.Lock()
		if m.scan == sc {
			m.scan = nil
		}
		m.mu.Unlock()

		sc.mu.Lock()
		sc.closed = true
		close(sc.out)
		sc.mu.Unlock()

		close(sc.done)
		log.Info().Msg("Scan finished")
		m.emit(cup.Event{Type: cup.EventScanStopped})
	}()

	return sc.out, nil
}

// observe records an advertisement. Only cups new to the registry go on
// the scan stream; known cups are refreshed in place and read via List.
func (m *Manager) observe(sc *scanState, adv ble.Advertisement) {
	d, created := m.registry.Observe(adv.ID, adv.Name, adv.RSSI, time.Now())
	if !created {
		return
	}

	log.Info().Str("cup", d.ID).Str("name", d.Name).Int16("rssi", d.RSSI).Msg("Discovered cup")
	m.emit(cup.Event{Type: cup.EventDiscovered, DeviceID: d.ID, State: d.State})

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return
	}
	select {
	case sc.out <- d:
	default:
		log.Warn().Str("cup", d.ID).Msg("Scan consumer is behind, dropping discovery")
	}
}

// StopScan ends a running scan and waits for its channel to close.
func (m *Manager) StopScan() {
	m.mu.Lock()
	sc := m.scan
	m.mu.Unlock()
	if sc == nil {
		return
	}
	sc.cancel()
	<-sc.done
}

// Connect opens a link to a discovered cup and subscribes to its
// notifications. Connecting an already connected cup is a no-op.
func (m *Manager) Connect(ctx context.Context, id string) (cup.Device, error) {
	id = cup.NormalizeID(id)

	d, err := m.registry.Get(id)
	if err != nil {
		return cup.Device{}, err
	}
	if d.Connected() {
		return d, nil
	}
	if !m.transport.IsAdapterEnabled() {
		return cup.Device{}, cup.ErrAdapterDisabled
	}

	m.mu.Lock()
	if _, busy := m.inflight[id]; busy {
		m.mu.Unlock()
		return cup.Device{}, fmt.Errorf("%w: %s", cup.ErrAlreadyConnecting, id)
	}
	m.inflight[id] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, id)
		m.mu.Unlock()
	}()

	// A concurrent connect may have finished between the read and the claim.
	if d, err = m.registry.Get(id); err == nil && d.Connected() {
		return d, nil
	}

	if err := m.transition(id, cup.StateConnecting, nil); err != nil {
		return cup.Device{}, err
	}

	if m.Scanning() {
		log.Info().Str("cup", id).Msg("Stopping scan to connect")
		m.StopScan()
	}

	start := time.Now()
	stream, err := m.open(ctx, id)
	if err != nil {
		_ = m.transition(id, cup.StateFailed, err)
		log.Warn().Err(err).Str("cup", id).Msg("Failed to connect cup")
		return cup.Device{}, err
	}

	sess := newSession()
	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	if err := m.transition(id, cup.StateConnected, nil); err != nil {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		sess.end(false)
		return cup.Device{}, err
	}

	go m.watch(id, sess, stream)

	log.Info().Str("cup", id).Dur("took", time.Since(start)).Msg("Connected to cup")
	return m.registry.Get(id)
}

// open connects and subscribes under the adapter lock, bounded by the
// connect timeout.
func (m *Manager) open(ctx context.Context, id string) (<-chan []byte, error) {
	m.adapterMu.Lock()
	defer m.adapterMu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	err := m.transport.Connect(cctx, id)
	if err == nil {
		var stream <-chan []byte
		stream, err = m.transport.SubscribeNotifications(cctx, id)
		if err == nil {
			return stream, nil
		}
		// Leave no half-open link behind.
		dctx, dcancel := context.WithTimeout(context.Background(), m.cfg.DisconnectTimeout)
		_ = m.transport.Disconnect(dctx, id)
		dcancel()
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s after %s", cup.ErrConnectionTimeout, id, m.cfg.ConnectTimeout)
	}
	return nil, fmt.Errorf("connect %s: %w", id, err)
}

// watch consumes the notification stream of one connection until the
// session ends or the stream closes.
func (m *Manager) watch(id string, sess *Session, stream <-chan []byte) {
	for {
		select {
		case <-sess.Context().Done():
			return
		case data, ok := <-stream:
			if !ok {
				m.linkLost(id, sess)
				return
			}
			m.handleNotification(id, data)
		}
	}
}

func (m *Manager) handleNotification(id string, data []byte) {
	if !protocol.IsBatteryNotification(data) {
		log.Debug().Str("cup", id).Hex("payload", data).Msg("Ignoring unknown notification")
		return
	}

	level, err := protocol.DecodeBatteryNotification(data)
	if err != nil {
		log.Warn().Err(err).Str("cup", id).Hex("payload", data).Msg("Malformed battery report")
		return
	}
	if err := m.registry.SetBattery(id, level); err != nil {
		log.Warn().Err(err).Str("cup", id).Msg("Failed to store battery level")
		return
	}
	m.emit(cup.Event{Type: cup.EventBattery, DeviceID: id, Battery: level})
}

// linkLost fails a connection whose stream closed without a disconnect
// request.
func (m *Manager) linkLost(id string, sess *Session) {
	m.mu.Lock()
	if m.sessions[id] != sess {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	sess.end(false)
	log.Warn().Str("cup", id).Msg("Lost link to cup")
	if err := m.transition(id, cup.StateFailed, cup.ErrNotConnected); err != nil {
		log.Error().Err(err).Str("cup", id).Msg("Failed to record link loss")
	}
}

// Disconnect closes the link to a connected cup. In-flight writes are
// cancelled and awaited before the transport is told to disconnect.
// Disconnecting a cup that is not connected is a no-op.
func (m *Manager) Disconnect(ctx context.Context, id string) error {
	id = cup.NormalizeID(id)

	d, err := m.registry.Get(id)
	if err != nil {
		return err
	}
	switch d.State {
	case cup.StateDiscovered, cup.StateDisconnected, cup.StateFailed, cup.StateDisconnecting:
		return nil
	case cup.StateConnecting:
		return fmt.Errorf("%w: %s", cup.ErrAlreadyConnecting, id)
	}

	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		// The link was lost concurrently and is already Failed.
		return nil
	}

	if err := m.transition(id, cup.StateDisconnecting, nil); err != nil {
		sess.end(false)
		return err
	}

	sess.end(true)

	m.adapterMu.Lock()
	dctx, cancel := context.WithTimeout(ctx, m.cfg.DisconnectTimeout)
	err = m.transport.Disconnect(dctx, id)
	cancel()
	m.adapterMu.Unlock()

	if err != nil {
		_ = m.transition(id, cup.StateFailed, err)
		return fmt.Errorf("disconnect %s: %w", id, err)
	}

	log.Info().Str("cup", id).Msg("Disconnected from cup")
	return m.transition(id, cup.StateDisconnected, nil)
}

// Close stops any scan and disconnects every connected cup.
func (m *Manager) Close(ctx context.Context) error {
	m.StopScan()

	var errs []error
	for _, id := range m.registry.ConnectedIDs() {
		if err := m.Disconnect(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
