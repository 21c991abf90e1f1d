package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/urmzd/glowcup/pkg/api/types"
	"github.com/urmzd/glowcup/pkg/db"
	"github.com/urmzd/glowcup/pkg/dispatch"
)

// DispatchesHandler serves persisted dispatch history
type DispatchesHandler struct {
	history db.DispatchStore
}

// NewDispatchesHandler creates a new dispatch history handler
func NewDispatchesHandler(history db.DispatchStore) *DispatchesHandler {
	return &DispatchesHandler{history: history}
}

// List handles GET /dispatches
// @Summary      Dispatch history
// @Description  Returns recent dispatches with per-cup outcomes, newest first
// @Tags         dispatches
// @Produce      json
// @Param        limit  query     int  false  "Maximum dispatches (default 50)"
// @Success      200    {object}  types.DispatchesResponse
// @Failure      500    {object}  types.ErrorResponse  "Database error"
// @Router       /dispatches [get]
func (h *DispatchesHandler) List(c *gin.Context) {
	recs, err := h.history.List(c.Request.Context(), queryLimit(c, db.DefaultDispatchLimit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "database_error",
			Message: err.Error(),
		})
		return
	}
	if recs == nil {
		recs = []*dispatch.Record{}
	}
	c.JSON(http.StatusOK, types.DispatchesResponse{
		Dispatches: recs,
		Count:      len(recs),
	})
}

// Get handles GET /dispatches/:id
// @Summary      Get dispatch
// @Tags         dispatches
// @Produce      json
// @Param        id   path      string  true  "Dispatch id"
// @Success      200  {object}  dispatch.Record
// @Failure      400  {object}  types.ErrorResponse  "Malformed id"
// @Failure      404  {object}  types.ErrorResponse  "Dispatch not found"
// @Router       /dispatches/{id} [get]
func (h *DispatchesHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_id",
			Message: err.Error(),
		})
		return
	}

	rec, err := h.history.Get(c.Request.Context(), id)
	if errors.Is(err, db.ErrDispatchNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: "Dispatch not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "database_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, rec)
}
