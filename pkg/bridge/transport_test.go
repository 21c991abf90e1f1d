package bridge

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/cup"
)

// dongle is a scripted bridge on the far end of a pipe.
type dongle struct {
	conn net.Conn

	mu       sync.Mutex
	requests []message
	status   map[uint8]uint8
	silent   map[uint8]bool
}

func startDongle(t *testing.T) (*dongle, net.Conn) {
	t.Helper()
	host, dev := net.Pipe()
	d := &dongle{conn: dev, status: make(map[uint8]uint8), silent: make(map[uint8]bool)}
	go d.serve()
	t.Cleanup(func() { _ = dev.Close() })
	return d, host
}

func (d *dongle) setStatus(op, status uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status[op] = status
}

func (d *dongle) ignore(op uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent[op] = true
}

func (d *dongle) seen(op uint8) []message {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []message
	for _, m := range d.requests {
		if m.op == op {
			out = append(out, m)
		}
	}
	return out
}

func (d *dongle) serve() {
	var dec decoder
	buf := make([]byte, 256)
	for {
		n, err := d.conn.Read(buf)
		for _, b := range buf[:n] {
			body, _ := dec.feed(b)
			if body == nil {
				continue
			}
			m, perr := parseMessage(body)
			if perr != nil {
				continue
			}
			d.mu.Lock()
			d.requests = append(d.requests, m)
			status, silent := d.status[m.op], d.silent[m.op]
			d.mu.Unlock()
			if silent {
				continue
			}
			resp := message{seq: m.seq, op: m.op | opResponseBit, body: []byte{status}}
			if _, err := d.conn.Write(encodeFrame(resp.marshal())); err != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (d *dongle) event(t *testing.T, op uint8, body []byte) {
	t.Helper()
	m := message{seq: eventSeq, op: op, body: body}
	_, err := d.conn.Write(encodeFrame(m.marshal()))
	require.NoError(t, err)
}

var testAddr = []byte{0xAA, 0xBB, 0xCC, 0x00, 0x11, 0x22}

const testID = "AA:BB:CC:00:11:22"

func newTestTransport(t *testing.T) (*Transport, *dongle) {
	t.Helper()
	d, host := startDongle(t)
	tr, err := New(host)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, d
}

func TestNew_ResetHandshake(t *testing.T) {
	tr, d := newTestTransport(t)
	assert.True(t, tr.IsAdapterEnabled())
	assert.Len(t, d.seen(opReset), 1)
}

func TestNew_RadioOff(t *testing.T) {
	d, host := startDongle(t)
	d.setStatus(opReset, statusAdapterOff)

	tr, err := New(host)
	require.NoError(t, err)
	defer tr.Close()

	assert.False(t, tr.IsAdapterEnabled())
	assert.ErrorIs(t, tr.StartScan(func(ble.Advertisement) {}), cup.ErrAdapterDisabled)
}

func TestConnectAndWrite(t *testing.T) {
	tr, d := newTestTransport(t)
	ctx := context.Background()

	require.NoError(t, tr.Connect(ctx, "aa:bb:cc:00:11:22"))
	require.NoError(t, tr.WriteCharacteristic(ctx, testID, []byte{0x02, 0x32}))

	connects := d.seen(opConnect)
	require.Len(t, connects, 1)
	assert.Equal(t, testAddr, connects[0].body)

	writes := d.seen(opWrite)
	require.Len(t, writes, 1)
	assert.Equal(t, append(append([]byte{}, testAddr...), 0x02, 0x32), writes[0].body)
}

func TestStatusMapsToSentinels(t *testing.T) {
	tr, d := newTestTransport(t)
	ctx := context.Background()

	d.setStatus(opConnect, statusNotFound)
	assert.ErrorIs(t, tr.Connect(ctx, testID), cup.ErrDeviceNotFound)

	d.setStatus(opWrite, statusNotConnected)
	assert.ErrorIs(t, tr.WriteCharacteristic(ctx, testID, []byte{0x04}), cup.ErrNotConnected)

	d.setStatus(opWrite, statusGATTError)
	assert.ErrorIs(t, tr.WriteCharacteristic(ctx, testID, []byte{0x04}), cup.ErrProtocol)

	assert.ErrorIs(t, tr.Connect(ctx, "not-an-address"), cup.ErrDeviceNotFound)
}

func TestRequestHonoursContext(t *testing.T) {
	tr, d := newTestTransport(t)
	d.ignore(opWrite)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := tr.WriteCharacteristic(ctx, testID, []byte{0x04})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestDeadlineComesFromContext(t *testing.T) {
	tr, d := newTestTransport(t)
	d.ignore(opWrite)
	tr.link.responseTimeout = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := tr.WriteCharacteristic(ctx, testID, []byte{0x04})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	start = time.Now()
	err = tr.WriteCharacteristic(context.Background(), testID, []byte{0x04})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestScanDeliversAdvertisements(t *testing.T) {
	tr, d := newTestTransport(t)

	got := make(chan ble.Advertisement, 1)
	require.NoError(t, tr.StartScan(func(a ble.Advertisement) { got <- a }))
	assert.ErrorIs(t, tr.StartScan(func(ble.Advertisement) {}), cup.ErrScanInProgress)

	name := "GlowCup 7"
	body := append(append([]byte{}, testAddr...), byte(0xC4), byte(len(name)))
	d.event(t, evtAdvertisement, append(body, name...))

	select {
	case a := <-got:
		assert.Equal(t, testID, a.ID)
		assert.Equal(t, name, a.Name)
		assert.Equal(t, int16(-60), a.RSSI)
	case <-time.After(time.Second):
		t.Fatal("advertisement not delivered")
	}

	require.NoError(t, tr.StopScan())
	assert.Len(t, d.seen(opScanStop), 1)
	require.NoError(t, tr.StopScan())
	assert.Len(t, d.seen(opScanStop), 1)
}

func TestNotificationsAndLinkDrop(t *testing.T) {
	tr, d := newTestTransport(t)
	ctx := context.Background()

	require.NoError(t, tr.Connect(ctx, testID))
	stream, err := tr.SubscribeNotifications(ctx, testID)
	require.NoError(t, err)

	d.event(t, evtNotification, append(append([]byte{}, testAddr...), 0x81, 0x50))
	select {
	case payload := <-stream:
		assert.Equal(t, []byte{0x81, 0x50}, payload)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	d.event(t, evtDisconnected, testAddr)
	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream not closed on disconnect event")
	}
}

func TestSerialLossDisablesTransport(t *testing.T) {
	tr, d := newTestTransport(t)
	ctx := context.Background()

	require.NoError(t, tr.Connect(ctx, testID))
	stream, err := tr.SubscribeNotifications(ctx, testID)
	require.NoError(t, err)

	require.NoError(t, d.conn.Close())

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream not closed when serial link dropped")
	}
	assert.False(t, tr.IsAdapterEnabled())
	assert.ErrorIs(t, tr.Connect(ctx, testID), ErrLinkClosed)
}
