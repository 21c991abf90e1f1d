package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/ble/bletest"
	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/dispatch"
	"github.com/urmzd/glowcup/pkg/store"
)

func newTestService(t *testing.T, ids ...string) (*Service, *bletest.Transport) {
	t.Helper()
	tr := bletest.New()
	opts := DefaultOptions()
	opts.QueryBatteryOnConnect = false
	opts.Dispatch.RetryBackoff = 5 * time.Millisecond
	s := New(tr, opts)

	if len(ids) > 0 {
		ch, err := s.Scan(context.Background(), time.Minute)
		require.NoError(t, err)
		for _, id := range ids {
			tr.Advertise(ble.Advertisement{ID: id, Name: "Cup " + id, RSSI: -50})
		}
		s.StopScan()
		for range ch {
		}
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, tr
}

func connectAll(t *testing.T, s *Service, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := s.ConnectToCup(context.Background(), id)
		require.NoError(t, err)
	}
}

func TestService_SetColorOnThreeCups(t *testing.T) {
	s, tr := newTestService(t, "A", "B", "C")
	connectAll(t, s, "A", "B", "C")

	assert.Equal(t, []string{"A", "B", "C"}, s.SelectAllCups())

	red := cup.Color{R: 255}
	outcomes, err := s.SetColor(context.Background(), red)
	require.NoError(t, err)
	assert.Equal(t, 3, outcomes.Succeeded())

	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, [][]byte{{0x01, 0xFF, 0x00, 0x00}}, tr.WritesTo(id))
	}
	snap := s.Snapshot()
	assert.Equal(t, red, snap.CurrentColor)
	require.NotNil(t, snap.LastCommand)
	assert.Equal(t, cup.CommandSetColor, snap.LastCommand.Kind)
}

func TestService_SelectAllWithNothingConnected(t *testing.T) {
	s, tr := newTestService(t, "A")

	assert.Empty(t, s.SelectAllCups())
	outcomes, err := s.SetBrightness(context.Background(), 50)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Empty(t, tr.Writes())
}

func TestService_InvalidBrightnessRejectedBeforeWrite(t *testing.T) {
	s, tr := newTestService(t, "A")
	connectAll(t, s, "A")
	s.SelectAllCups()

	_, err := s.SetBrightness(context.Background(), -5)
	assert.ErrorIs(t, err, cup.ErrInvalidCommand)
	assert.Empty(t, tr.Writes())

	d, _ := s.Cup("A")
	assert.Equal(t, cup.DefaultBrightness, d.Brightness)
}

func TestService_SelectRequiresConnection(t *testing.T) {
	s, _ := newTestService(t, "A", "B")
	connectAll(t, s, "A")

	ok, err := s.SelectCup("B")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.SelectCup("A")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.SelectCup("Z")
	assert.ErrorIs(t, err, cup.ErrDeviceNotFound)

	s.DeselectCup("A")
	assert.Empty(t, s.SelectedCups())
}

func TestService_SnapshotsNeverSelectDisconnectedCups(t *testing.T) {
	s, _ := newTestService(t, "A", "B")
	connectAll(t, s, "A", "B")
	s.SelectAllCups()

	var (
		mu        sync.Mutex
		snapshots []store.Snapshot
	)
	ch := s.Store().Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range ch {
			mu.Lock()
			snapshots = append(snapshots, snap)
			mu.Unlock()
		}
	}()

	require.NoError(t, s.DisconnectFromCup(context.Background(), "A"))
	assert.Equal(t, []string{"B"}, s.SelectedCups())

	s.Store().Unsubscribe(ch)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snapshots)
	for _, snap := range snapshots {
		states := make(map[string]cup.ConnectionState)
		for _, d := range snap.Devices {
			states[d.ID] = d.State
		}
		for _, id := range snap.Selection {
			assert.Equal(t, cup.StateConnected, states[id], "snapshot %d selects %s", snap.Version, id)
		}
	}

	final := s.Snapshot()
	assert.Equal(t, []string{"B"}, final.Selection)
}

func TestService_ConcurrentPublishesNeverSelectDisconnectedCups(t *testing.T) {
	s, _ := newTestService(t, "A")

	var stop atomic.Bool
	var violations atomic.Int64
	var wg sync.WaitGroup
	defer func() {
		stop.Store(true)
		wg.Wait()
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				snap := s.Store().Publish()
				connected := make(map[string]bool)
				for _, d := range snap.Devices {
					connected[d.ID] = d.Connected()
				}
				for _, id := range snap.Selection {
					if !connected[id] {
						violations.Add(1)
					}
				}
			}
		}()
	}

	ctx := context.Background()
	for range 300 {
		_, err := s.ConnectToCup(ctx, "A")
		require.NoError(t, err)
		s.SelectAllCups()
		require.NoError(t, s.DisconnectFromCup(ctx, "A"))
	}
	stop.Store(true)
	wg.Wait()
	assert.Zero(t, violations.Load())
}

func TestService_BatteryQueryAfterConnectKeepsLastCommand(t *testing.T) {
	tr := bletest.New()
	s := New(tr, DefaultOptions())
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	queried := make(chan string, 4)
	s.OnDispatch(func(rec dispatch.Record) {
		if rec.Command.Kind == cup.CommandQueryBattery {
			for _, id := range rec.Targets {
				queried <- id
			}
		}
	})

	ch, err := s.Scan(context.Background(), time.Minute)
	require.NoError(t, err)
	tr.Advertise(ble.Advertisement{ID: "A"})
	tr.Advertise(ble.Advertisement{ID: "B"})
	s.StopScan()
	for range ch {
	}

	_, err = s.ConnectToCup(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", <-queried)

	_, err = s.SetColor(context.Background(), cup.Color{B: 255}, "A")
	require.NoError(t, err)

	_, err = s.ConnectToCup(context.Background(), "B")
	require.NoError(t, err)
	select {
	case id := <-queried:
		assert.Equal(t, "B", id)
	case <-time.After(time.Second):
		t.Fatal("no battery query after connecting B")
	}

	snap := s.Snapshot()
	require.NotNil(t, snap.LastCommand)
	assert.Equal(t, cup.CommandSetColor, snap.LastCommand.Kind)
	assert.Equal(t, cup.Color{B: 255}, snap.CurrentColor)
}

func TestService_QueriesBatteryAfterConnect(t *testing.T) {
	tr := bletest.New()
	s := New(tr, DefaultOptions())
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	ch, err := s.Scan(context.Background(), time.Minute)
	require.NoError(t, err)
	tr.Advertise(ble.Advertisement{ID: "A"})
	s.StopScan()
	for range ch {
	}

	_, err = s.ConnectToCup(context.Background(), "A")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(tr.WritesTo("A")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte{0x04}, tr.WritesTo("A")[0])

	tr.Notify("A", []byte{0x81, 42})
	require.Eventually(t, func() bool {
		d, _ := s.Cup("A")
		return d.Battery == 42
	}, time.Second, 5*time.Millisecond)
}

func TestService_EventLogRecordsActivity(t *testing.T) {
	s, _ := newTestService(t, "A")
	connectAll(t, s, "A")
	_, err := s.SetMode(context.Background(), cup.ModePulse)
	require.NoError(t, err)

	var sources []string
	for _, e := range s.Events().Recent(0) {
		sources = append(sources, e.Source)
	}
	assert.Contains(t, sources, "connection")
	assert.Contains(t, sources, "dispatch")
}

func TestService_CloseDisconnectsEverything(t *testing.T) {
	s, tr := newTestService(t, "A", "B")
	connectAll(t, s, "A", "B")

	require.NoError(t, s.Close(context.Background()))
	assert.False(t, tr.IsLinked("A"))
	assert.False(t, tr.IsLinked("B"))
	for _, d := range s.Cups() {
		assert.Equal(t, cup.StateDisconnected, d.State)
	}
}
