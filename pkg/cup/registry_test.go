package cup

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ObserveCreatesOnce(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	d, created := r.Observe("aa:bb:cc:dd:ee:01", "Cup 1", -60, now)
	require.True(t, created)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", d.ID)
	assert.Equal(t, StateDiscovered, d.State)
	assert.Equal(t, BatteryUnknown, d.Battery)
	assert.Equal(t, DefaultBrightness, d.Brightness)

	later := now.Add(time.Second)
	d, created = r.Observe("AA:BB:CC:DD:EE:01", "", -40, later)
	assert.False(t, created)
	assert.Equal(t, "Cup 1", d.Name)
	assert.Equal(t, int16(-40), d.RSSI)
	assert.Equal(t, later, d.LastSeenAt)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_NameDefaultsToID(t *testing.T) {
	r := NewRegistry()
	d, _ := r.Observe("AA:01", "", 0, time.Now())
	assert.Equal(t, "AA:01", d.Name)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestRegistry_TransitionFollowsStateMachine(t *testing.T) {
	r := NewRegistry()
	r.Observe("A", "a", 0, time.Now())

	_, err := r.Transition("A", StateConnected)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	steps := []ConnectionState{StateConnecting, StateConnected, StateDisconnecting, StateDisconnected, StateConnecting}
	for _, next := range steps {
		_, err := r.Transition("A", next)
		require.NoError(t, err, "to %s", next)
	}

	prev, err := r.Transition("A", StateFailed)
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, prev)

	_, err = r.Transition("A", StateDisconnecting)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = r.Transition("A", StateConnecting)
	assert.NoError(t, err)
}

func TestRegistry_ConnectedIDs(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"C", "A", "B"} {
		r.Observe(id, "", 0, time.Now())
		_, _ = r.Transition(id, StateConnecting)
	}
	_, _ = r.Transition("C", StateConnected)
	_, _ = r.Transition("A", StateConnected)

	assert.Equal(t, []string{"A", "C"}, r.ConnectedIDs())
	assert.True(t, r.IsConnected("a"))
	assert.False(t, r.IsConnected("B"))
	assert.False(t, r.IsConnected("missing"))
}

func TestRegistry_ApplyRejectsOutOfRangeBrightness(t *testing.T) {
	r := NewRegistry()
	r.Observe("A", "", 0, time.Now())

	for _, level := range []int{-5, -1, 101, 1 << 20} {
		err := r.Apply("A", SetBrightness(level))
		assert.True(t, errors.Is(err, ErrInvalidCommand), "level %d", level)
	}
	for _, level := range []int{0, 37, 100} {
		require.NoError(t, r.Apply("A", SetBrightness(level)))
		d, _ := r.Get("A")
		assert.Equal(t, level, d.Brightness)
	}
}

func TestRegistry_ApplyColorAndMode(t *testing.T) {
	r := NewRegistry()
	r.Observe("A", "", 0, time.Now())

	require.NoError(t, r.Apply("A", SetColor(Color{R: 1, G: 2, B: 3})))
	require.NoError(t, r.Apply("A", SetMode(ModeRainbow)))
	require.NoError(t, r.Apply("A", QueryBattery()))

	d, _ := r.Get("A")
	assert.Equal(t, Color{R: 1, G: 2, B: 3}, d.Color)
	assert.Equal(t, ModeRainbow, d.Mode)

	assert.ErrorIs(t, r.Apply("missing", SetMode(ModePulse)), ErrDeviceNotFound)
}

func TestRegistry_SetBattery(t *testing.T) {
	r := NewRegistry()
	r.Observe("A", "", 0, time.Now())

	require.NoError(t, r.SetBattery("A", 64))
	require.NoError(t, r.SetBattery("A", BatteryUnknown))
	assert.ErrorIs(t, r.SetBattery("A", 101), ErrProtocol)
	assert.ErrorIs(t, r.SetBattery("B", 10), ErrDeviceNotFound)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	r.Observe("B", "", 0, time.Now())
	r.Observe("A", "", 0, time.Now())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.Equal(t, "B", list[1].ID)
}
