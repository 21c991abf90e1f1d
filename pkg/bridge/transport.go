// Package bridge drives cups through a USB serial dongle that runs the
// BLE central role and speaks a small framed request/response protocol.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/cup"
)

const (
	resetTimeout       = 5 * time.Second
	scanControlTimeout = 2 * time.Second
	notificationBuffer = 16
)

// Transport implements ble.Transport over a bridge dongle.
type Transport struct {
	link *link

	mu          sync.Mutex
	enabled     bool
	scanHandler func(ble.Advertisement)
	streams     map[string]chan []byte
}

// Open opens the serial port and performs the reset handshake. An empty
// portPath autodetects the dongle.
func Open(portPath string, baud int) (*Transport, error) {
	if portPath == "" {
		detected, err := DetectPort()
		if err != nil {
			return nil, err
		}
		portPath = detected
	}

	port, err := OpenSerial(portPath, baud)
	if err != nil {
		return nil, err
	}

	t, err := New(port)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// New runs the bridge protocol over rw and resets the dongle.
func New(rw io.ReadWriteCloser) (*Transport, error) {
	t := &Transport{streams: make(map[string]chan []byte)}
	t.link = newLink(rw, t.handleEvent)
	t.link.start()
	go t.watchLink()

	ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
	defer cancel()

	_, err := t.link.request(ctx, opReset, nil)
	switch {
	case err == nil:
		t.mu.Lock()
		t.enabled = true
		t.mu.Unlock()
	case errors.Is(err, cup.ErrAdapterDisabled):
		log.Warn().Msg("Bridge reports its radio is off")
	default:
		_ = t.link.close()
		return nil, fmt.Errorf("bridge reset: %w", err)
	}

	log.Info().Bool("radio", t.IsAdapterEnabled()).Msg("Bridge ready")
	return t, nil
}

// watchLink closes every stream once the serial link goes away.
func (t *Transport) watchLink() {
	<-t.link.done

	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
	t.scanHandler = nil
	for id, stream := range t.streams {
		close(stream)
		delete(t.streams, id)
	}
}

func (t *Transport) handleEvent(m message) {
	switch m.op {
	case evtAdvertisement:
		id, name, rssi, err := decodeAdvertisement(m.body)
		if err != nil {
			log.Warn().Err(err).Msg("Bridge advertisement dropped")
			return
		}
		t.mu.Lock()
		handler := t.scanHandler
		t.mu.Unlock()
		if handler != nil {
			handler(ble.Advertisement{ID: id, Name: name, RSSI: rssi})
		}

	case evtNotification:
		id, err := decodeAddress(m.body)
		if err != nil {
			log.Warn().Err(err).Msg("Bridge notification dropped")
			return
		}
		payload := make([]byte, len(m.body)-6)
		copy(payload, m.body[6:])

		t.mu.Lock()
		defer t.mu.Unlock()
		if stream, ok := t.streams[id]; ok {
			select {
			case stream <- payload:
			default:
				log.Warn().Str("cup", id).Msg("Dropping cup notification, consumer is behind")
			}
		}

	case evtDisconnected:
		id, err := decodeAddress(m.body)
		if err != nil {
			log.Warn().Err(err).Msg("Bridge disconnect event dropped")
			return
		}
		log.Info().Str("cup", id).Msg("Bridge reports link dropped")
		t.closeStream(id)

	default:
		log.Debug().Uint8("op", m.op).Msg("Bridge RX unknown event")
	}
}

func (t *Transport) closeStream(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stream, ok := t.streams[id]; ok {
		close(stream)
		delete(t.streams, id)
	}
}

func (t *Transport) IsAdapterEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && t.link.alive()
}

func (t *Transport) StartScan(handler func(ble.Advertisement)) error {
	if !t.IsAdapterEnabled() {
		return cup.ErrAdapterDisabled
	}

	t.mu.Lock()
	if t.scanHandler != nil {
		t.mu.Unlock()
		return cup.ErrScanInProgress
	}
	t.scanHandler = handler
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), scanControlTimeout)
	defer cancel()
	if _, err := t.link.request(ctx, opScanStart, nil); err != nil {
		t.mu.Lock()
		t.scanHandler = nil
		t.mu.Unlock()
		return err
	}
	return nil
}

func (t *Transport) StopScan() error {
	t.mu.Lock()
	scanning := t.scanHandler != nil
	t.scanHandler = nil
	t.mu.Unlock()
	if !scanning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), scanControlTimeout)
	defer cancel()
	_, err := t.link.request(ctx, opScanStop, nil)
	return err
}

func (t *Transport) Connect(ctx context.Context, id string) error {
	addr, err := encodeAddress(id)
	if err != nil {
		return err
	}
	_, err = t.link.request(ctx, opConnect, addr)
	return err
}

func (t *Transport) Disconnect(ctx context.Context, id string) error {
	addr, err := encodeAddress(id)
	if err != nil {
		return err
	}
	t.closeStream(cup.NormalizeID(id))
	_, err = t.link.request(ctx, opDisconnect, addr)
	return err
}

func (t *Transport) WriteCharacteristic(ctx context.Context, id string, payload []byte) error {
	addr, err := encodeAddress(id)
	if err != nil {
		return err
	}
	body := append(addr, payload...)
	_, err = t.link.request(ctx, opWrite, body)
	return err
}

func (t *Transport) SubscribeNotifications(ctx context.Context, id string) (<-chan []byte, error) {
	addr, err := encodeAddress(id)
	if err != nil {
		return nil, err
	}

	id = cup.NormalizeID(id)
	t.mu.Lock()
	stream, ok := t.streams[id]
	if !ok {
		stream = make(chan []byte, notificationBuffer)
		t.streams[id] = stream
	}
	t.mu.Unlock()

	if _, err := t.link.request(ctx, opSubscribe, addr); err != nil {
		t.closeStream(id)
		return nil, err
	}
	return stream, nil
}

func (t *Transport) Close() error {
	return t.link.close()
}

var _ ble.Transport = (*Transport)(nil)
