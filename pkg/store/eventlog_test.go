package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/dispatch"
)

func TestEventLog_RingEvictsOldest(t *testing.T) {
	l := NewEventLog(3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		l.Append(Entry{Message: msg})
	}

	assert.Equal(t, 3, l.Len())
	recent := l.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Message)
	assert.Equal(t, "e", recent[2].Message)
	assert.Equal(t, uint64(5), recent[2].Seq)

	last := l.Recent(2)
	assert.Equal(t, []string{"d", "e"}, []string{last[0].Message, last[1].Message})
	assert.Len(t, l.Recent(10), 3)
}

func TestEventLog_Defaults(t *testing.T) {
	l := NewEventLog(0)
	e := l.Append(Entry{Message: "x"})
	assert.Equal(t, "info", e.Level)
	assert.False(t, e.Time.IsZero())
}

func TestEventLog_Subscribe(t *testing.T) {
	l := NewEventLog(10)
	ch := l.Subscribe()

	l.Append(Entry{Message: "hello"})
	got := <-ch
	assert.Equal(t, "hello", got.Message)

	l.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestEventLog_HandleEvent(t *testing.T) {
	l := NewEventLog(10)
	l.HandleEvent(cup.Event{
		Type:     cup.EventStateChanged,
		DeviceID: "A",
		Previous: cup.StateConnected,
		State:    cup.StateFailed,
		Err:      errors.New("link lost"),
	})
	l.HandleEvent(cup.Event{Type: cup.EventBattery, DeviceID: "A", Battery: 80})

	entries := l.Recent(0)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "connected -> failed: link lost", entries[0].Message)
	assert.Equal(t, "battery 80%", entries[1].Message)
}

func TestEventLog_HandleDispatch(t *testing.T) {
	l := NewEventLog(10)
	id := uuid.New()
	l.HandleDispatch(dispatch.Record{
		ID:       id,
		Command:  cup.SetBrightness(5),
		Outcomes: cup.Outcomes{"A": cup.OutcomeSuccess, "B": cup.OutcomeTimeout},
	})

	e := l.Recent(1)[0]
	assert.Equal(t, id.String(), e.CorrelationID)
	assert.Equal(t, "warn", e.Level)
	assert.Equal(t, "brightness 5: 1/2 succeeded", e.Message)
}

func TestEventLog_Hook(t *testing.T) {
	l := NewEventLog(10)
	logger := zerolog.Nop().Hook(l.Hook(zerolog.WarnLevel))
	logger = logger.Level(zerolog.DebugLevel)

	logger.Info().Msg("ignored")
	logger.Warn().Msg("adapter missing")

	entries := l.Recent(0)
	require.Len(t, entries, 1)
	assert.Equal(t, "log", entries[0].Source)
	assert.Equal(t, "adapter missing", entries[0].Message)
}
