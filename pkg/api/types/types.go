package types

import (
	"time"

	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/dispatch"
	"github.com/urmzd/glowcup/pkg/store"
)

// --- Request DTOs ---

// ScanRequest is the request body for POST /scan
type ScanRequest struct {
	DurationSeconds int  `json:"duration_seconds"`
	Stream          bool `json:"stream"`
}

// Command bodies are validated against JSON schemas, see pkg/cup/schema.
// These types exist for the API documentation.

// ColorRequest is the request body for POST /commands/color
type ColorRequest struct {
	Hex     string   `json:"hex,omitempty" example:"#FF8000"`
	R       *int     `json:"r,omitempty"`
	G       *int     `json:"g,omitempty"`
	B       *int     `json:"b,omitempty"`
	Targets []string `json:"targets,omitempty"`
}

// BrightnessRequest is the request body for POST /commands/brightness
type BrightnessRequest struct {
	Level   int      `json:"level" example:"80"`
	Targets []string `json:"targets,omitempty"`
}

// ModeRequest is the request body for POST /commands/mode
type ModeRequest struct {
	Mode    string   `json:"mode" example:"pulse"`
	Targets []string `json:"targets,omitempty"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status        string    `json:"status"`
	Adapter       string    `json:"adapter"`
	ConnectedCups int       `json:"connected_cups"`
	Timestamp     time.Time `json:"timestamp"`
}

// ListCupsResponse is returned from GET /cups
type ListCupsResponse struct {
	Cups  []CupResponse `json:"cups"`
	Count int           `json:"count"`
}

// CupResponse is one cup plus whether it is selected
type CupResponse struct {
	cup.Device
	Selected bool `json:"selected"`
}

// SelectionResponse is returned from the selection endpoints
type SelectionResponse struct {
	Selected []string `json:"selected_cups"`
	Count    int      `json:"count"`
}

// ScanResponse is returned from POST /scan when not streaming
type ScanResponse struct {
	Status          string    `json:"status"`
	ExpiresAt       time.Time `json:"expires_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

// CommandResponse is returned from POST /commands/*. A 207 status means
// at least one cup failed; Failed lists them.
type CommandResponse struct {
	Command   cup.Command  `json:"command"`
	Outcomes  cup.Outcomes `json:"outcomes"`
	Succeeded int          `json:"succeeded"`
	Failed    []string     `json:"failed"`
}

// EventsResponse is returned from GET /events
type EventsResponse struct {
	Events []store.Entry `json:"events"`
	Count  int           `json:"count"`
}

// DispatchesResponse is returned from GET /dispatches
type DispatchesResponse struct {
	Dispatches []*dispatch.Record `json:"dispatches"`
	Count      int                `json:"count"`
}
