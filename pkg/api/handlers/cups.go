package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/glowcup/pkg/api/types"
	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/cup"
)

// CupsHandler handles cup listing, connection and selection endpoints
type CupsHandler struct {
	svc *core.Service
}

// NewCupsHandler creates a new cups handler
func NewCupsHandler(svc *core.Service) *CupsHandler {
	return &CupsHandler{svc: svc}
}

func (h *CupsHandler) withSelection(d cup.Device, selected []string) types.CupResponse {
	return types.CupResponse{Device: d, Selected: slices.Contains(selected, d.ID)}
}

// ListCups handles GET /cups
// @Summary      List cups
// @Description  Returns every cup discovered since start, with connection state and selection
// @Tags         cups
// @Produce      json
// @Success      200  {object}  types.ListCupsResponse
// @Router       /cups [get]
func (h *CupsHandler) ListCups(c *gin.Context) {
	selected := h.svc.SelectedCups()
	cups := h.svc.Cups()

	result := make([]types.CupResponse, 0, len(cups))
	for _, d := range cups {
		result = append(result, h.withSelection(d, selected))
	}

	c.JSON(http.StatusOK, types.ListCupsResponse{
		Cups:  result,
		Count: len(result),
	})
}

// GetCup handles GET /cups/:id
// @Summary      Get cup
// @Description  Returns one cup by BLE address
// @Tags         cups
// @Produce      json
// @Param        id   path      string  true  "Cup BLE address"
// @Success      200  {object}  types.CupResponse
// @Failure      404  {object}  types.ErrorResponse  "Cup not found"
// @Router       /cups/{id} [get]
func (h *CupsHandler) GetCup(c *gin.Context) {
	d, err := h.svc.Cup(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.withSelection(d, h.svc.SelectedCups()))
}

// Connect handles POST /cups/:id/connect
// @Summary      Connect cup
// @Description  Opens a link to a discovered cup. Connecting a connected cup is a no-op.
// @Tags         cups
// @Produce      json
// @Param        id   path      string  true  "Cup BLE address"
// @Success      200  {object}  types.CupResponse
// @Failure      404  {object}  types.ErrorResponse  "Cup not found"
// @Failure      409  {object}  types.ErrorResponse  "Connect already in progress"
// @Failure      503  {object}  types.ErrorResponse  "Adapter disabled"
// @Failure      504  {object}  types.ErrorResponse  "Connection timed out"
// @Router       /cups/{id}/connect [post]
func (h *CupsHandler) Connect(c *gin.Context) {
	d, err := h.svc.ConnectToCup(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.withSelection(d, h.svc.SelectedCups()))
}

// Disconnect handles POST /cups/:id/disconnect
// @Summary      Disconnect cup
// @Description  Closes the link to a cup and removes it from the selection
// @Tags         cups
// @Produce      json
// @Param        id   path      string  true  "Cup BLE address"
// @Success      200  {object}  types.CupResponse
// @Failure      404  {object}  types.ErrorResponse  "Cup not found"
// @Failure      409  {object}  types.ErrorResponse  "Connect in progress"
// @Router       /cups/{id}/disconnect [post]
func (h *CupsHandler) Disconnect(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DisconnectFromCup(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	d, err := h.svc.Cup(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.withSelection(d, h.svc.SelectedCups()))
}

// Select handles POST /cups/:id/select
// @Summary      Select cup
// @Description  Adds a connected cup to the selection
// @Tags         selection
// @Produce      json
// @Param        id   path      string  true  "Cup BLE address"
// @Success      200  {object}  types.SelectionResponse
// @Failure      404  {object}  types.ErrorResponse  "Cup not found"
// @Failure      409  {object}  types.ErrorResponse  "Cup not connected"
// @Router       /cups/{id}/select [post]
func (h *CupsHandler) Select(c *gin.Context) {
	id := c.Param("id")
	ok, err := h.svc.SelectCup(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, types.ErrorResponse{
			Error:   "not_connected",
			Message: "Only connected cups can be selected",
		})
		return
	}
	h.selection(c)
}

// Deselect handles DELETE /cups/:id/select
// @Summary      Deselect cup
// @Description  Removes a cup from the selection
// @Tags         selection
// @Produce      json
// @Param        id   path      string  true  "Cup BLE address"
// @Success      200  {object}  types.SelectionResponse
// @Router       /cups/{id}/select [delete]
func (h *CupsHandler) Deselect(c *gin.Context) {
	h.svc.DeselectCup(c.Param("id"))
	h.selection(c)
}

// GetSelection handles GET /selection
// @Summary      Get selection
// @Tags         selection
// @Produce      json
// @Success      200  {object}  types.SelectionResponse
// @Router       /selection [get]
func (h *CupsHandler) GetSelection(c *gin.Context) {
	h.selection(c)
}

// SelectAll handles POST /selection/all
// @Summary      Select all connected cups
// @Tags         selection
// @Produce      json
// @Success      200  {object}  types.SelectionResponse
// @Router       /selection/all [post]
func (h *CupsHandler) SelectAll(c *gin.Context) {
	h.svc.SelectAllCups()
	h.selection(c)
}

// DeselectAll handles DELETE /selection
// @Summary      Clear selection
// @Tags         selection
// @Produce      json
// @Success      200  {object}  types.SelectionResponse
// @Router       /selection [delete]
func (h *CupsHandler) DeselectAll(c *gin.Context) {
	h.svc.DeselectAllCups()
	h.selection(c)
}

func (h *CupsHandler) selection(c *gin.Context) {
	selected := h.svc.SelectedCups()
	if selected == nil {
		selected = []string{}
	}
	c.JSON(http.StatusOK, types.SelectionResponse{
		Selected: selected,
		Count:    len(selected),
	})
}
