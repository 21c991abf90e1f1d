package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/glowcup/pkg/api/types"
	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/cup"
)

const (
	defaultScanSeconds = 10
	maxScanSeconds     = 120
)

// ScanHandler handles cup discovery endpoints
type ScanHandler struct {
	svc *core.Service
}

// NewScanHandler creates a new scan handler
func NewScanHandler(svc *core.Service) *ScanHandler {
	return &ScanHandler{svc: svc}
}

// StartScan handles POST /scan
// @Summary      Scan for cups
// @Description  Scans for cups advertising the lighting service. With stream=true the response is an SSE stream of newly discovered cups that ends with the scan.
// @Tags         scan
// @Accept       json
// @Produce      json
// @Produce      text/event-stream
// @Param        request  body      types.ScanRequest  false  "Scan duration (default 10 seconds, max 120)"
// @Success      202      {object}  types.ScanResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid duration"
// @Failure      409      {object}  types.ErrorResponse  "Scan already in progress"
// @Failure      503      {object}  types.ErrorResponse  "Adapter disabled"
// @Router       /scan [post]
func (h *ScanHandler) StartScan(c *gin.Context) {
	var req types.ScanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid_request",
				Message: "Invalid request body",
			})
			return
		}
	}
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = defaultScanSeconds
	}
	if req.DurationSeconds > maxScanSeconds {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_duration",
			Message: "Duration cannot exceed 120 seconds",
		})
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	// A non-streaming scan outlives the request; a streaming one ends with it.
	ctx := context.WithoutCancel(c.Request.Context())
	if req.Stream {
		ctx = c.Request.Context()
	}

	found, err := h.svc.Scan(ctx, duration)
	if err != nil {
		writeError(c, err)
		return
	}

	if !req.Stream {
		c.JSON(http.StatusAccepted, types.ScanResponse{
			Status:          "scanning",
			ExpiresAt:       time.Now().Add(duration),
			DurationSeconds: req.DurationSeconds,
		})
		return
	}

	startSSE(c)
	sendSSEEvent(c, "scan_started", gin.H{"duration_seconds": req.DurationSeconds})
	streamSSE[cup.Device](c, "discovered", found)
	sendSSEEvent(c, "scan_stopped", gin.H{"cups": len(h.svc.Cups())})
}

// StopScan handles DELETE /scan
// @Summary      Stop scanning
// @Tags         scan
// @Success      204
// @Router       /scan [delete]
func (h *ScanHandler) StopScan(c *gin.Context) {
	h.svc.StopScan()
	c.Status(http.StatusNoContent)
}
