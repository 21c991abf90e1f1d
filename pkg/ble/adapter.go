package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"tinygo.org/x/bluetooth"

	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/protocol"
)

// notificationBuffer bounds how many unread notifications a link holds
// before new ones are dropped.
const notificationBuffer = 16

// Adapter is the native Transport backed by the host's BLE radio.
type Adapter struct {
	adapter    *bluetooth.Adapter
	namePrefix string

	serviceUUID bluetooth.UUID
	commandUUID bluetooth.UUID
	notifyUUID  bluetooth.UUID

	enabled bool

	mu       sync.Mutex
	scanning bool
	seen     map[string]bluetooth.Address
	links    map[string]*link
}

type link struct {
	device  bluetooth.Device
	command bluetooth.DeviceCharacteristic
	notify  bluetooth.DeviceCharacteristic

	mu     sync.Mutex
	stream chan []byte
	closed bool
}

func (l *link) deliver(buf []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.stream == nil {
		return
	}
	payload := make([]byte, len(buf))
	copy(payload, buf)
	select {
	case l.stream <- payload:
	default:
		log.Warn().Msg("Dropping cup notification, consumer is behind")
	}
}

func (l *link) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.stream != nil {
		close(l.stream)
	}
}

// NewAdapter enables the default adapter. A cup matches a scan when it
// advertises the cup service or its local name starts with namePrefix.
func NewAdapter(namePrefix string) (*Adapter, error) {
	a := &Adapter{
		adapter:    bluetooth.DefaultAdapter,
		namePrefix: strings.ToLower(namePrefix),
		seen:       make(map[string]bluetooth.Address),
		links:      make(map[string]*link),
	}

	var err error
	if a.serviceUUID, err = bluetooth.ParseUUID(protocol.ServiceUUID); err != nil {
		return nil, fmt.Errorf("parse service uuid: %w", err)
	}
	if a.commandUUID, err = bluetooth.ParseUUID(protocol.CommandCharUUID); err != nil {
		return nil, fmt.Errorf("parse command uuid: %w", err)
	}
	if a.notifyUUID, err = bluetooth.ParseUUID(protocol.NotifyCharUUID); err != nil {
		return nil, fmt.Errorf("parse notify uuid: %w", err)
	}

	if err := a.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: %v", cup.ErrAdapterDisabled, err)
	}
	a.enabled = true

	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		id := cup.NormalizeID(device.Address.String())
		a.mu.Lock()
		l, ok := a.links[id]
		delete(a.links, id)
		a.mu.Unlock()
		if ok {
			log.Info().Str("cup", id).Msg("BLE link dropped")
			l.close()
		}
	})

	return a, nil
}

func (a *Adapter) IsAdapterEnabled() bool { return a.enabled }

func (a *Adapter) matches(result bluetooth.ScanResult) bool {
	if result.HasServiceUUID(a.serviceUUID) {
		return true
	}
	name := strings.ToLower(result.LocalName())
	return a.namePrefix != "" && strings.HasPrefix(name, a.namePrefix)
}

func (a *Adapter) StartScan(handler func(Advertisement)) error {
	if !a.enabled {
		return cup.ErrAdapterDisabled
	}

	a.mu.Lock()
	if a.scanning {
		a.mu.Unlock()
		return cup.ErrScanInProgress
	}
	a.scanning = true
	a.mu.Unlock()

	go func() {
		err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !a.matches(result) {
				return
			}
			id := cup.NormalizeID(result.Address.String())
			a.mu.Lock()
			a.seen[id] = result.Address
			a.mu.Unlock()

			handler(Advertisement{ID: id, Name: result.LocalName(), RSSI: result.RSSI})
		})
		if err != nil {
			log.Error().Err(err).Msg("BLE scan ended with error")
		}

		a.mu.Lock()
		a.scanning = false
		a.mu.Unlock()
	}()

	return nil
}

func (a *Adapter) StopScan() error {
	a.mu.Lock()
	scanning := a.scanning
	a.mu.Unlock()
	if !scanning {
		return nil
	}
	return a.adapter.StopScan()
}

func (a *Adapter) Connect(ctx context.Context, id string) error {
	if !a.enabled {
		return cup.ErrAdapterDisabled
	}

	a.mu.Lock()
	addr, ok := a.seen[id]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s has not been seen by this adapter", cup.ErrDeviceNotFound, id)
	}

	type result struct {
		link *link
		err  error
	}
	done := make(chan result, 1)

	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		if err != nil {
			done <- result{err: err}
			return
		}
		l, err := a.resolve(device)
		if err != nil {
			_ = device.Disconnect()
			done <- result{err: err}
			return
		}
		done <- result{link: l}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("connect %s: %w", id, r.err)
		}
		a.mu.Lock()
		a.links[id] = r.link
		a.mu.Unlock()
		return nil
	case <-ctx.Done():
		// The stack has no cancellable connect; tear the link down if it
		// completes after the caller gave up.
		go func() {
			if r := <-done; r.err == nil {
				_ = r.link.device.Disconnect()
			}
		}()
		return ctx.Err()
	}
}

// resolve finds the fixed cup service and its two characteristics.
func (a *Adapter) resolve(device bluetooth.Device) (*link, error) {
	services, err := device.DiscoverServices([]bluetooth.UUID{a.serviceUUID})
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("%w: cup service missing", cup.ErrProtocol)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{a.commandUUID, a.notifyUUID})
	if err != nil {
		return nil, fmt.Errorf("discover characteristics: %w", err)
	}

	l := &link{device: device}
	var haveCommand, haveNotify bool
	for i := range chars {
		switch chars[i].UUID() {
		case a.commandUUID:
			l.command = chars[i]
			haveCommand = true
		case a.notifyUUID:
			l.notify = chars[i]
			haveNotify = true
		}
	}
	if !haveCommand || !haveNotify {
		return nil, fmt.Errorf("%w: cup characteristics missing", cup.ErrProtocol)
	}
	return l, nil
}

func (a *Adapter) linkFor(id string) (*link, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.links[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", cup.ErrNotConnected, id)
	}
	return l, nil
}

func (a *Adapter) Disconnect(ctx context.Context, id string) error {
	a.mu.Lock()
	l, ok := a.links[id]
	delete(a.links, id)
	a.mu.Unlock()
	if !ok {
		return nil
	}

	l.close()
	if err := l.device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect %s: %w", id, err)
	}
	return nil
}

func (a *Adapter) WriteCharacteristic(ctx context.Context, id string, payload []byte) error {
	l, err := a.linkFor(id)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		_, err := l.command.WriteWithoutResponse(payload)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write %s: %w", id, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) SubscribeNotifications(ctx context.Context, id string) (<-chan []byte, error) {
	l, err := a.linkFor(id)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.stream == nil {
		l.stream = make(chan []byte, notificationBuffer)
	}
	stream := l.stream
	l.mu.Unlock()

	if err := l.notify.EnableNotifications(l.deliver); err != nil {
		return nil, fmt.Errorf("enable notifications %s: %w", id, err)
	}
	return stream, nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	links := a.links
	a.links = make(map[string]*link)
	a.mu.Unlock()

	for id, l := range links {
		l.close()
		if err := l.device.Disconnect(); err != nil {
			log.Warn().Err(err).Str("cup", id).Msg("Failed to disconnect cup on close")
		}
	}
	return a.StopScan()
}
