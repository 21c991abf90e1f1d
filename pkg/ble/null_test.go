package ble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urmzd/glowcup/pkg/cup"
)

func TestNullTransport_ReportsAdapterDisabled(t *testing.T) {
	var tr Transport = NewNullTransport()
	ctx := context.Background()

	assert.False(t, tr.IsAdapterEnabled())
	assert.ErrorIs(t, tr.StartScan(func(Advertisement) {}), cup.ErrAdapterDisabled)
	assert.ErrorIs(t, tr.Connect(ctx, "A"), cup.ErrAdapterDisabled)
	assert.ErrorIs(t, tr.WriteCharacteristic(ctx, "A", []byte{0x04}), cup.ErrNotConnected)

	_, err := tr.SubscribeNotifications(ctx, "A")
	assert.ErrorIs(t, err, cup.ErrNotConnected)

	assert.NoError(t, tr.StopScan())
	assert.NoError(t, tr.Disconnect(ctx, "A"))
	assert.NoError(t, tr.Close())
}
