package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/glowcup/pkg/api/types"
	"github.com/urmzd/glowcup/pkg/store"
)

// EventsHandler serves the in-memory event log
type EventsHandler struct {
	log *store.EventLog
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(log *store.EventLog) *EventsHandler {
	return &EventsHandler{log: log}
}

// queryLimit parses ?limit=, falling back to def for missing or bad values.
func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// List handles GET /events
// @Summary      Recent events
// @Description  Returns the most recent event log entries, oldest first
// @Tags         events
// @Produce      json
// @Param        limit  query     int  false  "Maximum entries (default 100)"
// @Success      200    {object}  types.EventsResponse
// @Router       /events [get]
func (h *EventsHandler) List(c *gin.Context) {
	entries := h.log.Recent(queryLimit(c, 100))
	if entries == nil {
		entries = []store.Entry{}
	}
	c.JSON(http.StatusOK, types.EventsResponse{
		Events: entries,
		Count:  len(entries),
	})
}

// Stream handles GET /events/stream (SSE stream)
// @Summary      Subscribe to events
// @Description  Server-Sent Events stream of new event log entries
// @Tags         events
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /events/stream [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	ch := h.log.Subscribe()
	defer h.log.Unsubscribe(ch)

	startSSE(c)
	streamSSE[store.Entry](c, "log", ch)
}
