package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/glowcup/pkg/api/types"
	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/cup/schema"
)

// CommandsHandler fans lighting commands out to cups
type CommandsHandler struct {
	svc       *core.Service
	validator *schema.Validator
}

// NewCommandsHandler creates a new commands handler
func NewCommandsHandler(svc *core.Service, validator *schema.Validator) *CommandsHandler {
	return &CommandsHandler{svc: svc, validator: validator}
}

// SetColor handles POST /commands/color
// @Summary      Set color
// @Description  Sets the color of the targets, the selection, or every connected cup when nothing is selected
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        request  body      types.ColorRequest  true  "Either hex or r, g and b"
// @Success      200      {object}  types.CommandResponse  "Every cup confirmed"
// @Success      207      {object}  types.CommandResponse  "Some cups failed"
// @Failure      400      {object}  types.ErrorResponse  "Invalid command"
// @Router       /commands/color [post]
func (h *CommandsHandler) SetColor(c *gin.Context) { h.run(c, cup.CommandSetColor) }

// SetBrightness handles POST /commands/brightness
// @Summary      Set brightness
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        request  body      types.BrightnessRequest  true  "Level 0-100"
// @Success      200      {object}  types.CommandResponse  "Every cup confirmed"
// @Success      207      {object}  types.CommandResponse  "Some cups failed"
// @Failure      400      {object}  types.ErrorResponse  "Invalid command"
// @Router       /commands/brightness [post]
func (h *CommandsHandler) SetBrightness(c *gin.Context) { h.run(c, cup.CommandSetBrightness) }

// SetMode handles POST /commands/mode
// @Summary      Set lighting mode
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        request  body      types.ModeRequest  true  "static, pulse, strobe or rainbow"
// @Success      200      {object}  types.CommandResponse  "Every cup confirmed"
// @Success      207      {object}  types.CommandResponse  "Some cups failed"
// @Failure      400      {object}  types.ErrorResponse  "Invalid command"
// @Router       /commands/mode [post]
func (h *CommandsHandler) SetMode(c *gin.Context) { h.run(c, cup.CommandSetMode) }

// QueryBattery handles POST /commands/battery
// @Summary      Query battery
// @Description  Asks the targets to report their battery level; levels arrive asynchronously in the state
// @Tags         commands
// @Produce      json
// @Success      200      {object}  types.CommandResponse  "Every cup confirmed"
// @Success      207      {object}  types.CommandResponse  "Some cups failed"
// @Router       /commands/battery [post]
func (h *CommandsHandler) QueryBattery(c *gin.Context) { h.run(c, cup.CommandQueryBattery) }

func (h *CommandsHandler) run(c *gin.Context, kind cup.CommandKind) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	req, err := h.validator.DecodeJSON(kind, body)
	if err != nil {
		writeError(c, err)
		return
	}

	outcomes, err := h.svc.Dispatch(c.Request.Context(), req.Command, req.Targets...)
	if err != nil && !errors.Is(err, cup.ErrPartialFailure) {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
	}
	if outcomes == nil {
		outcomes = cup.Outcomes{}
	}
	failed := outcomes.Failed()
	if failed == nil {
		failed = []string{}
	}
	c.JSON(status, types.CommandResponse{
		Command:   req.Command,
		Outcomes:  outcomes,
		Succeeded: outcomes.Succeeded(),
		Failed:    failed,
	})
}
