// Package core wires the cup registry, connection manager, selection,
// dispatcher and state store into the single service the outer surfaces
// (REST, MCP) talk to.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/connection"
	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/dispatch"
	"github.com/urmzd/glowcup/pkg/selection"
	"github.com/urmzd/glowcup/pkg/store"
)

// batteryQueryTimeout bounds the best-effort query issued after connect.
const batteryQueryTimeout = 5 * time.Second

// Options configures a Service.
type Options struct {
	Connection       connection.Config
	Dispatch         dispatch.Config
	EventLogCapacity int
	// QueryBatteryOnConnect asks each cup for its battery right after it
	// connects.
	QueryBatteryOnConnect bool
}

// DefaultOptions returns the stock service options.
func DefaultOptions() Options {
	return Options{
		Connection:            connection.DefaultConfig(),
		Dispatch:              dispatch.DefaultConfig(),
		EventLogCapacity:      store.DefaultEventLogCapacity,
		QueryBatteryOnConnect: true,
	}
}

// Service is the control surface for a fleet of cups. Construct one per
// transport with New and share it.
type Service struct {
	transport  ble.Transport
	registry   *cup.Registry
	connection *connection.Manager
	selection  *selection.Model
	dispatcher *dispatch.Dispatcher
	store      *store.Store
	events     *store.EventLog
	opts       Options

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Service on top of transport.
//
// Connection events reach listeners in a fixed order: selection first,
// then the event log, then the state store, so a published snapshot never
// shows a cup selected after it left Connected.
func New(transport ble.Transport, opts Options) *Service {
	registry := cup.NewRegistry()
	manager := connection.NewManager(transport, registry, opts.Connection)
	sel := selection.New(registry)
	dispatcher := dispatch.New(transport, registry, manager, sel, opts.Dispatch)
	st := store.New(registry, sel, manager)
	events := store.NewEventLog(opts.EventLogCapacity)

	manager.AddListener(sel.HandleEvent)
	manager.AddListener(events.HandleEvent)
	manager.AddListener(st.HandleEvent)
	sel.OnChange(st.HandleSelection)
	dispatcher.AddListener(events.HandleDispatch)
	dispatcher.AddListener(st.HandleDispatch)

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		transport:  transport,
		registry:   registry,
		connection: manager,
		selection:  sel,
		dispatcher: dispatcher,
		store:      st,
		events:     events,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Registry exposes the cup registry for read access.
func (s *Service) Registry() *cup.Registry { return s.registry }

// Store exposes the state store.
func (s *Service) Store() *store.Store { return s.store }

// Events exposes the diagnostic event log.
func (s *Service) Events() *store.EventLog { return s.events }

// OnDispatch registers fn to receive every completed dispatch.
func (s *Service) OnDispatch(fn func(dispatch.Record)) { s.dispatcher.AddListener(fn) }

// AdapterEnabled reports whether the radio is usable.
func (s *Service) AdapterEnabled() bool { return s.transport.IsAdapterEnabled() }

// Cups returns every known cup.
func (s *Service) Cups() []cup.Device { return s.registry.List() }

// Cup returns a single cup by id.
func (s *Service) Cup(id string) (cup.Device, error) { return s.registry.Get(id) }

// SelectedCups returns the selected cup ids.
func (s *Service) SelectedCups() []string { return s.selection.IDs() }

// Snapshot returns the latest state snapshot.
func (s *Service) Snapshot() store.Snapshot { return s.store.Snapshot() }

// Scan discovers cups for up to timeout. The channel carries cups new to
// the registry and closes when the scan ends.
func (s *Service) Scan(ctx context.Context, timeout time.Duration) (<-chan cup.Device, error) {
	return s.connection.Scan(ctx, timeout)
}

// StopScan ends a running scan.
func (s *Service) StopScan() { s.connection.StopScan() }

// ConnectToCup connects a discovered cup. When enabled, a battery query
// follows in the background; its failure does not affect the connect.
func (s *Service) ConnectToCup(ctx context.Context, id string) (cup.Device, error) {
	d, err := s.connection.Connect(ctx, id)
	s.store.Publish()
	if err != nil {
		return d, err
	}

	if s.opts.QueryBatteryOnConnect {
		go s.queryBatteryAfterConnect(d.ID)
	}
	return d, nil
}

func (s *Service) queryBatteryAfterConnect(id string) {
	ctx, cancel := context.WithTimeout(s.ctx, batteryQueryTimeout)
	defer cancel()
	if _, err := s.dispatcher.Dispatch(ctx, cup.QueryBattery(), []string{id}); err != nil {
		log.Debug().Err(err).Str("cup", id).Msg("Battery query after connect failed")
	}
}

// DisconnectFromCup disconnects a cup; it leaves the selection as part
// of the transition.
func (s *Service) DisconnectFromCup(ctx context.Context, id string) error {
	return s.connection.Disconnect(ctx, id)
}

// SelectCup adds a connected cup to the selection. It reports whether
// the cup is selected afterwards.
func (s *Service) SelectCup(id string) (bool, error) {
	if _, err := s.registry.Get(id); err != nil {
		return false, err
	}
	return s.selection.Select(id), nil
}

// DeselectCup removes a cup from the selection.
func (s *Service) DeselectCup(id string) { s.selection.Deselect(id) }

// SelectAllCups selects exactly the cups connected right now.
func (s *Service) SelectAllCups() []string { return s.selection.SelectAll() }

// DeselectAllCups clears the selection.
func (s *Service) DeselectAllCups() { s.selection.DeselectAll() }

// SetColor sends a color to targets, or to the current selection when
// targets is empty.
func (s *Service) SetColor(ctx context.Context, c cup.Color, targets ...string) (cup.Outcomes, error) {
	return s.dispatcher.Dispatch(ctx, cup.SetColor(c), targets)
}

// SetBrightness sends a brightness level (0-100).
func (s *Service) SetBrightness(ctx context.Context, level int, targets ...string) (cup.Outcomes, error) {
	return s.dispatcher.Dispatch(ctx, cup.SetBrightness(level), targets)
}

// SetMode sends a lighting mode.
func (s *Service) SetMode(ctx context.Context, m cup.Mode, targets ...string) (cup.Outcomes, error) {
	return s.dispatcher.Dispatch(ctx, cup.SetMode(m), targets)
}

// QueryBattery asks cups to report their battery. Levels arrive later
// as notifications.
func (s *Service) QueryBattery(ctx context.Context, targets ...string) (cup.Outcomes, error) {
	return s.dispatcher.Dispatch(ctx, cup.QueryBattery(), targets)
}

// Dispatch sends an arbitrary command.
func (s *Service) Dispatch(ctx context.Context, cmd cup.Command, targets ...string) (cup.Outcomes, error) {
	return s.dispatcher.Dispatch(ctx, cmd, targets)
}

// Close stops scanning, disconnects every cup and releases the transport.
func (s *Service) Close(ctx context.Context) error {
	s.cancel()
	err := s.connection.Close(ctx)
	if cerr := s.transport.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.store.Publish()
	return err
}
