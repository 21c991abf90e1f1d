// Package ble defines the narrow transport boundary the connection layer
// drives, along with its implementations.
package ble

import "context"

// Advertisement is one scan sighting of a cup peripheral.
type Advertisement struct {
	ID   string
	Name string
	RSSI int16
}

// Transport abstracts the platform BLE central role. Implementations
// only ever talk to cups, so the GATT profile is implied.
type Transport interface {
	// IsAdapterEnabled reports whether the radio is powered and usable
	IsAdapterEnabled() bool

	// StartScan begins scanning and returns immediately. handler is called
	// from the transport's goroutine for each matching advertisement.
	StartScan(handler func(Advertisement)) error

	// StopScan ends a running scan. Stopping an idle adapter is not an error.
	StopScan() error

	// Connect opens a link to id and resolves the cup characteristics.
	// It returns once the link is usable or ctx is done.
	Connect(ctx context.Context, id string) error

	// Disconnect closes the link to id and its notification stream.
	Disconnect(ctx context.Context, id string) error

	// WriteCharacteristic writes payload to the command characteristic of id.
	WriteCharacteristic(ctx context.Context, id string, payload []byte) error

	// SubscribeNotifications enables notifications on the notify
	// characteristic. The channel is closed when the link goes away.
	SubscribeNotifications(ctx context.Context, id string) (<-chan []byte, error)

	// Close releases the adapter
	Close() error
}
