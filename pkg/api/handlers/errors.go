package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/glowcup/pkg/api/types"
	"github.com/urmzd/glowcup/pkg/cup"
)

// errorStatus maps controller sentinels to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, cup.ErrDeviceNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, cup.ErrAlreadyConnecting):
		return http.StatusConflict, "already_connecting"
	case errors.Is(err, cup.ErrScanInProgress):
		return http.StatusConflict, "scan_in_progress"
	case errors.Is(err, cup.ErrAdapterDisabled):
		return http.StatusServiceUnavailable, "adapter_disabled"
	case errors.Is(err, cup.ErrConnectionTimeout),
		errors.Is(err, cup.ErrCommandTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, cup.ErrInvalidCommand):
		return http.StatusBadRequest, "invalid_command"
	case errors.Is(err, cup.ErrNotConnected):
		return http.StatusConflict, "not_connected"
	case errors.Is(err, cup.ErrPartialFailure):
		return http.StatusMultiStatus, "partial_failure"
	default:
		return http.StatusInternalServerError, "controller_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	c.JSON(status, types.ErrorResponse{
		Error:   code,
		Message: err.Error(),
	})
}
