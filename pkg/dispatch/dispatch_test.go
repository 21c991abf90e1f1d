package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/glowcup/pkg/ble/bletest"
	"github.com/urmzd/glowcup/pkg/connection"
	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/selection"
)

type fixture struct {
	registry  *cup.Registry
	transport *bletest.Transport
	manager   *connection.Manager
	selection *selection.Model
	dispatch  *Dispatcher
}

func newFixture(t *testing.T, cfg Config, connected []string, discovered ...string) *fixture {
	t.Helper()
	f := &fixture{registry: cup.NewRegistry(), transport: bletest.New()}
	for _, id := range append(append([]string{}, connected...), discovered...) {
		f.registry.Observe(id, "", 0, time.Now())
	}
	f.manager = connection.NewManager(f.transport, f.registry, connection.Config{ConnectTimeout: time.Second})
	f.selection = selection.New(f.registry)
	f.manager.AddListener(f.selection.HandleEvent)
	f.dispatch = New(f.transport, f.registry, f.manager, f.selection, cfg)

	for _, id := range connected {
		_, err := f.manager.Connect(context.Background(), id)
		require.NoError(t, err)
	}
	return f
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WriteTimeout = time.Second
	cfg.RetryBackoff = 5 * time.Millisecond
	return cfg
}

func TestDispatch_SetColorToThreeSelectedCups(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A", "B", "C"})
	f.selection.SelectAll()

	red := cup.Color{R: 255}
	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetColor(red), nil)
	require.NoError(t, err)
	assert.Equal(t, cup.Outcomes{
		"A": cup.OutcomeSuccess,
		"B": cup.OutcomeSuccess,
		"C": cup.OutcomeSuccess,
	}, outcomes)

	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, [][]byte{{0x01, 0xFF, 0x00, 0x00}}, f.transport.WritesTo(id), id)
		d, _ := f.registry.Get(id)
		assert.Equal(t, red, d.Color, id)
	}
}

func TestDispatch_InvalidCommandWritesNothing(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A"})
	f.selection.SelectAll()

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetBrightness(-5), nil)
	assert.ErrorIs(t, err, cup.ErrInvalidCommand)
	assert.Nil(t, outcomes)
	assert.Equal(t, 0, f.transport.Attempts("A"))

	d, _ := f.registry.Get("A")
	assert.Equal(t, cup.DefaultBrightness, d.Brightness)
}

func TestDispatch_ExplicitTargetsReportEveryID(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A"}, "B")

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetMode(cup.ModePulse), []string{"A", "a", "Z", "B"})

	var pf *cup.PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, outcomes, pf.Outcomes)
	assert.Equal(t, cup.Outcomes{
		"A": cup.OutcomeSuccess,
		"B": cup.OutcomeNotConnected,
		"Z": cup.OutcomeNotConnected,
	}, outcomes)
	assert.Len(t, f.transport.WritesTo("A"), 1)
}

func TestDispatch_NoConnectedCups(t *testing.T) {
	f := newFixture(t, testConfig(), nil, "A")
	f.selection.SelectAll()

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetColor(cup.Color{G: 1}), nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Empty(t, f.transport.Writes())
}

func TestDispatch_AutoExpandEmptySelection(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A", "B"})

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetBrightness(30), nil)
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)

	cfg := testConfig()
	cfg.AutoExpand = false
	g := newFixture(t, cfg, []string{"A", "B"})
	outcomes, err = g.dispatch.Dispatch(context.Background(), cup.SetBrightness(30), nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestDispatch_SelectionWinsOverAutoExpand(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A", "B"})
	f.selection.Select("B")

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetBrightness(30), nil)
	require.NoError(t, err)
	assert.Equal(t, cup.Outcomes{"B": cup.OutcomeSuccess}, outcomes)
}

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatch_RetriesOnceOnTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.WriteTimeout = 20 * time.Millisecond
	f := newFixture(t, cfg, []string{"A"})

	var calls atomic.Int32
	f.transport.OnWrite(func(ctx context.Context, id string, payload []byte) error {
		if calls.Add(1) == 1 {
			return blockUntilDone(ctx)
		}
		return nil
	})

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetBrightness(70), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, cup.OutcomeSuccess, outcomes["A"])
	assert.Equal(t, 2, f.transport.Attempts("A"))

	d, _ := f.registry.Get("A")
	assert.Equal(t, 70, d.Brightness)
}

func TestDispatch_TimeoutAfterRetry(t *testing.T) {
	cfg := testConfig()
	cfg.WriteTimeout = 20 * time.Millisecond
	f := newFixture(t, cfg, []string{"A", "B"})

	f.transport.OnWrite(func(ctx context.Context, id string, payload []byte) error {
		if id == "A" {
			return blockUntilDone(ctx)
		}
		return nil
	})

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetBrightness(70), nil)
	assert.ErrorIs(t, err, cup.ErrPartialFailure)
	assert.Equal(t, cup.Outcomes{"A": cup.OutcomeTimeout, "B": cup.OutcomeSuccess}, outcomes)
	assert.Equal(t, 2, f.transport.Attempts("A"))

	a, _ := f.registry.Get("A")
	assert.Equal(t, cup.DefaultBrightness, a.Brightness)
	b, _ := f.registry.Get("B")
	assert.Equal(t, 70, b.Brightness)
}

func TestDispatch_ProtocolErrorIsNotRetried(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A"})
	f.transport.OnWrite(func(ctx context.Context, id string, payload []byte) error {
		return errors.New("gatt: write rejected")
	})

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetMode(cup.ModeStrobe), nil)
	assert.ErrorIs(t, err, cup.ErrPartialFailure)
	assert.Equal(t, cup.OutcomeProtocolError, outcomes["A"])
	assert.Equal(t, 1, f.transport.Attempts("A"))
}

func TestDispatch_DisconnectDuringWrite(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A", "B", "C"})
	f.selection.SelectAll()

	entered := make(chan struct{})
	f.transport.OnWrite(func(ctx context.Context, id string, payload []byte) error {
		if id == "B" {
			close(entered)
			return blockUntilDone(ctx)
		}
		return nil
	})

	type result struct {
		outcomes cup.Outcomes
		err      error
	}
	done := make(chan result, 1)
	go func() {
		outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetColor(cup.Color{B: 200}), nil)
		done <- result{outcomes, err}
	}()

	<-entered
	require.NoError(t, f.manager.Disconnect(context.Background(), "B"))

	r := <-done
	assert.ErrorIs(t, r.err, cup.ErrPartialFailure)
	assert.Equal(t, cup.Outcomes{
		"A": cup.OutcomeSuccess,
		"B": cup.OutcomeNotConnected,
		"C": cup.OutcomeSuccess,
	}, r.outcomes)
	assert.Equal(t, 1, f.transport.Attempts("B"))
	assert.Equal(t, []string{"A", "C"}, f.selection.IDs())
}

func TestDispatch_SameCupIsFIFO(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A"})

	entered := make(chan struct{})
	var once sync.Once
	f.transport.OnWrite(func(ctx context.Context, id string, payload []byte) error {
		if payload[1] == 10 {
			once.Do(func() { close(entered) })
			time.Sleep(30 * time.Millisecond)
		}
		return nil
	})

	first := make(chan error, 1)
	go func() {
		_, err := f.dispatch.Dispatch(context.Background(), cup.SetBrightness(10), []string{"A"})
		first <- err
	}()
	<-entered

	_, err := f.dispatch.Dispatch(context.Background(), cup.SetBrightness(20), []string{"A"})
	require.NoError(t, err)
	require.NoError(t, <-first)

	assert.Equal(t, [][]byte{{0x02, 10}, {0x02, 20}}, f.transport.WritesTo("A"))
	d, _ := f.registry.Get("A")
	assert.Equal(t, 20, d.Brightness)
}

func TestDispatch_BoundsInFlightWrites(t *testing.T) {
	cfg := testConfig()
	cfg.MaxInFlight = 2
	ids := []string{"A", "B", "C", "D", "E"}
	f := newFixture(t, cfg, ids)

	var current, peak atomic.Int32
	f.transport.OnWrite(func(ctx context.Context, id string, payload []byte) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return nil
	})

	outcomes, err := f.dispatch.Dispatch(context.Background(), cup.SetMode(cup.ModeRainbow), ids)
	require.NoError(t, err)
	assert.Equal(t, 5, outcomes.Succeeded())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatch_PublishesRecord(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"A"})

	var records []Record
	f.dispatch.AddListener(func(r Record) { records = append(records, r) })

	_, err := f.dispatch.Dispatch(context.Background(), cup.QueryBattery(), nil)
	require.NoError(t, err)

	require.Len(t, records, 1)
	r := records[0]
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, cup.CommandQueryBattery, r.Command.Kind)
	assert.Equal(t, []string{"A"}, r.Targets)
	assert.Equal(t, cup.Outcomes{"A": cup.OutcomeSuccess}, r.Outcomes)
	assert.Equal(t, [][]byte{{0x04}}, f.transport.WritesTo("A"))
}
