package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/glowcup/pkg/api/types"
	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/ble/bletest"
	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/cup/schema"
	"github.com/urmzd/glowcup/pkg/db"
	"github.com/urmzd/glowcup/pkg/store"
)

const (
	cupA = "AA:BB:CC:DD:EE:01"
	cupB = "AA:BB:CC:DD:EE:02"
)

type fixture struct {
	svc     *core.Service
	radio   *bletest.Transport
	handler http.Handler
	db      *db.DB
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	radio := bletest.New()
	opts := core.DefaultOptions()
	opts.QueryBatteryOnConnect = false
	opts.Dispatch.RetryBackoff = 5 * time.Millisecond
	svc := core.New(radio, opts)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	database, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.Migrate(context.Background()))
	svc.OnDispatch(database.RecordDispatches(time.Second))

	if len(ids) > 0 {
		ch, err := svc.Scan(context.Background(), time.Minute)
		require.NoError(t, err)
		for _, id := range ids {
			radio.Advertise(ble.Advertisement{ID: id, Name: "GlowCup", RSSI: -55})
		}
		svc.StopScan()
		for range ch {
		}
	}

	router := NewRouter(svc, database.Dispatches(), schema.NewValidator())
	return &fixture{svc: svc, radio: radio, handler: router.Handler(), db: database}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "enabled", decode[types.HealthResponse](t, w).Adapter)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	f.radio.SetEnabled(false)
	w = f.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode[types.HealthResponse](t, w).Status)
}

func TestCupsListAndGet(t *testing.T) {
	f := newFixture(t, cupA, cupB)

	w := f.do(t, http.MethodGet, "/api/v1/cups", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[types.ListCupsResponse](t, w)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, cup.StateDiscovered, list.Cups[0].State)

	w = f.do(t, http.MethodGet, "/api/v1/cups/aa:bb:cc:dd:ee:01", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cupA, decode[types.CupResponse](t, w).ID)

	w = f.do(t, http.MethodGet, "/api/v1/cups/00:00:00:00:00:00", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[types.ErrorResponse](t, w).Error)
}

func TestConnectSelectDisconnect(t *testing.T) {
	f := newFixture(t, cupA, cupB)

	w := f.do(t, http.MethodPost, "/api/v1/cups/"+cupB+"/select", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/connect", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cup.StateConnected, decode[types.CupResponse](t, w).State)

	w = f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/select", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{cupA}, decode[types.SelectionResponse](t, w).Selected)

	w = f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/disconnect", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cup.StateDisconnected, decode[types.CupResponse](t, w).State)

	w = f.do(t, http.MethodGet, "/api/v1/selection", "")
	assert.Equal(t, 0, decode[types.SelectionResponse](t, w).Count)
}

func TestConnectAdapterDisabled(t *testing.T) {
	f := newFixture(t, cupA)
	f.radio.SetEnabled(false)

	w := f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/connect", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "adapter_disabled", decode[types.ErrorResponse](t, w).Error)
}

func TestSelectAllAndDeselectAll(t *testing.T) {
	f := newFixture(t, cupA, cupB)
	f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/connect", "")

	w := f.do(t, http.MethodPost, "/api/v1/selection/all", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{cupA}, decode[types.SelectionResponse](t, w).Selected)

	w = f.do(t, http.MethodDelete, "/api/v1/selection", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[types.SelectionResponse](t, w).Selected)
}

func TestColorCommandPartialFailure(t *testing.T) {
	f := newFixture(t, cupA, cupB)
	f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/connect", "")
	f.do(t, http.MethodPost, "/api/v1/cups/"+cupB+"/connect", "")
	f.radio.OnWrite(func(_ context.Context, id string, _ []byte) error {
		if id == cupB {
			return cup.ErrProtocol
		}
		return nil
	})

	w := f.do(t, http.MethodPost, "/api/v1/commands/color", `{"hex": "#00FF00"}`)
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	resp := decode[types.CommandResponse](t, w)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, []string{cupB}, resp.Failed)
	assert.Equal(t, cup.OutcomeProtocolError, resp.Outcomes[cupB])

	w = f.do(t, http.MethodGet, "/api/v1/cups/"+cupA, "")
	assert.Equal(t, cup.Color{G: 255}, decode[types.CupResponse](t, w).Color)
}

func TestCommandWithExplicitTargets(t *testing.T) {
	f := newFixture(t, cupA, cupB)
	f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/connect", "")

	w := f.do(t, http.MethodPost, "/api/v1/commands/mode", `{"mode": "pulse", "targets": ["`+cupA+`"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[types.CommandResponse](t, w)
	assert.Equal(t, cup.Outcomes{cupA: cup.OutcomeSuccess}, resp.Outcomes)
	assert.Empty(t, resp.Failed)
}

func TestInvalidCommandWritesNothing(t *testing.T) {
	f := newFixture(t, cupA)
	f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/connect", "")

	w := f.do(t, http.MethodPost, "/api/v1/commands/brightness", `{"level": 150}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_command", decode[types.ErrorResponse](t, w).Error)

	w = f.do(t, http.MethodPost, "/api/v1/commands/color", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, f.radio.Writes())
}

func TestCommandWithNothingConnected(t *testing.T) {
	f := newFixture(t, cupA)

	w := f.do(t, http.MethodPost, "/api/v1/commands/battery", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[types.CommandResponse](t, w).Outcomes)
}

func TestStateAndEvents(t *testing.T) {
	f := newFixture(t, cupA)
	f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/connect", "")
	f.do(t, http.MethodPost, "/api/v1/commands/brightness", `{"level": 30}`)

	w := f.do(t, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[store.Snapshot](t, w)
	assert.Equal(t, 30, snap.CurrentBrightness)
	require.Len(t, snap.Devices, 1)
	require.NotNil(t, snap.LastCommand)

	w = f.do(t, http.MethodGet, "/api/v1/events?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[types.EventsResponse](t, w)
	assert.Equal(t, 2, events.Count)
	assert.Contains(t, events.Events[1].Message, "brightness 30")
}

func TestDispatchHistory(t *testing.T) {
	f := newFixture(t, cupA)
	f.do(t, http.MethodPost, "/api/v1/cups/"+cupA+"/connect", "")
	f.do(t, http.MethodPost, "/api/v1/commands/color", `{"r": 1, "g": 2, "b": 3}`)

	w := f.do(t, http.MethodGet, "/api/v1/dispatches", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[types.DispatchesResponse](t, w)
	require.Equal(t, 1, list.Count)
	rec := list.Dispatches[0]
	assert.Equal(t, cup.CommandSetColor, rec.Command.Kind)
	assert.Equal(t, cup.OutcomeSuccess, rec.Outcomes[cupA])

	w = f.do(t, http.MethodGet, "/api/v1/dispatches/"+rec.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/dispatches/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScan(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/scan", `{"duration_seconds": 30}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, f.radio.Scanning())

	w = f.do(t, http.MethodPost, "/api/v1/scan", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/scan", `{"duration_seconds": 500}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/scan", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, f.radio.Scanning())
}
