package ble

import (
	"context"

	"github.com/urmzd/glowcup/pkg/cup"
)

// NullTransport stands in when no adapter could be opened. It lets the
// service run in limited mode: the registry and REST surface work, every
// radio operation reports the adapter as disabled.
type NullTransport struct{}

// NewNullTransport creates a new NullTransport.
func NewNullTransport() *NullTransport {
	return &NullTransport{}
}

func (t *NullTransport) IsAdapterEnabled() bool { return false }

func (t *NullTransport) StartScan(handler func(Advertisement)) error {
	return cup.ErrAdapterDisabled
}

func (t *NullTransport) StopScan() error { return nil }

func (t *NullTransport) Connect(ctx context.Context, id string) error {
	return cup.ErrAdapterDisabled
}

func (t *NullTransport) Disconnect(ctx context.Context, id string) error {
	return nil
}

func (t *NullTransport) WriteCharacteristic(ctx context.Context, id string, payload []byte) error {
	return cup.ErrNotConnected
}

func (t *NullTransport) SubscribeNotifications(ctx context.Context, id string) (<-chan []byte, error) {
	return nil, cup.ErrNotConnected
}

func (t *NullTransport) Close() error { return nil }
