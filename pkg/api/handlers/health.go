package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/glowcup/pkg/api/types"
	"github.com/urmzd/glowcup/pkg/core"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	svc *core.Service
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(svc *core.Service) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health status of the API and the Bluetooth adapter
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Adapter is enabled"
// @Failure      503  {object}  types.HealthResponse  "Adapter is disabled"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	adapter := "disabled"
	status := "degraded"
	httpStatus := http.StatusServiceUnavailable
	if h.svc.AdapterEnabled() {
		adapter = "enabled"
		status = "healthy"
		httpStatus = http.StatusOK
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:        status,
		Adapter:       adapter,
		ConnectedCups: len(h.svc.Registry().ConnectedIDs()),
		Timestamp:     time.Now(),
	})
}
