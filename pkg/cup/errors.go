package cup

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDeviceNotFound indicates the id is not in the registry
	ErrDeviceNotFound = errors.New("device not found")

	// ErrAlreadyConnecting indicates a connect for the same id is in flight
	ErrAlreadyConnecting = errors.New("connect already in progress")

	// ErrConnectionTimeout indicates the transport did not confirm a connect in time
	ErrConnectionTimeout = errors.New("connection timed out")

	// ErrAdapterDisabled indicates the BLE adapter is off or unavailable
	ErrAdapterDisabled = errors.New("bluetooth adapter disabled")

	// ErrInvalidCommand indicates an out-of-range command parameter
	ErrInvalidCommand = errors.New("invalid command")

	// ErrProtocol indicates a malformed payload from or rejection by a device
	ErrProtocol = errors.New("protocol error")

	// ErrCommandTimeout indicates a characteristic write did not complete in time
	ErrCommandTimeout = errors.New("command timed out")

	// ErrNotConnected indicates the device has no active connection
	ErrNotConnected = errors.New("device not connected")

	// ErrPartialFailure indicates at least one target of a dispatch did not succeed
	ErrPartialFailure = errors.New("command failed on some devices")

	// ErrScanInProgress indicates a scan is already running on the adapter
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrInvalidTransition indicates a connection state change the state machine forbids
	ErrInvalidTransition = errors.New("invalid connection state transition")
)

// PartialFailureError carries the full outcome map of a dispatch in which
// one or more devices did not confirm the command.
type PartialFailureError struct {
	Outcomes Outcomes
}

func (e *PartialFailureError) Error() string {
	failed := e.Outcomes.Failed()
	parts := make([]string, 0, len(failed))
	for _, id := range failed {
		parts = append(parts, fmt.Sprintf("%s=%s", id, e.Outcomes[id]))
	}
	return fmt.Sprintf("%s: %d of %d failed (%s)",
		ErrPartialFailure, len(failed), len(e.Outcomes), strings.Join(parts, ", "))
}

// Is lets errors.Is(err, ErrPartialFailure) match.
func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}
