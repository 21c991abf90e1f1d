package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/store"
)

// StateHandler serves the aggregated controller snapshot
type StateHandler struct {
	svc *core.Service
}

// NewStateHandler creates a new state handler
func NewStateHandler(svc *core.Service) *StateHandler {
	return &StateHandler{svc: svc}
}

// GetState handles GET /state
// @Summary      Get state
// @Description  Returns the latest snapshot: cups, selection, last command and current values
// @Tags         state
// @Produce      json
// @Success      200  {object}  store.Snapshot
// @Router       /state [get]
func (h *StateHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Snapshot())
}

// Events handles GET /state/events (SSE stream)
// @Summary      Subscribe to state
// @Description  Server-Sent Events stream of snapshots. The current snapshot is sent first; intermediate snapshots may be skipped.
// @Tags         state
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /state/events [get]
func (h *StateHandler) Events(c *gin.Context) {
	st := h.svc.Store()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	startSSE(c)
	streamSSE[store.Snapshot](c, "state", ch)
}
