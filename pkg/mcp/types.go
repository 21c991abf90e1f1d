package mcp

import (
	"github.com/urmzd/glowcup/pkg/cup"
)

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status        string `json:"status" jsonschema:"description=Overall health status (healthy or degraded)"`
	Adapter       string `json:"adapter" jsonschema:"description=Bluetooth adapter status"`
	ConnectedCups int    `json:"connected_cups" jsonschema:"description=Number of connected cups"`
	Timestamp     string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// CupInfo represents a cup in tool outputs
type CupInfo struct {
	cup.Device
	Selected bool `json:"selected" jsonschema:"description=Whether commands without targets reach this cup"`
}

// ListCupsOutput is the output for the list_cups tool
type ListCupsOutput struct {
	Cups  []CupInfo `json:"cups" jsonschema:"description=Discovered cups"`
	Count int       `json:"count" jsonschema:"description=Total number of cups"`
}

// ScanCupsOutput is the output for the scan_cups tool
type ScanCupsOutput struct {
	Discovered      []cup.Device `json:"discovered" jsonschema:"description=Cups first seen during this scan"`
	Known           int          `json:"known" jsonschema:"description=Total cups known after the scan"`
	DurationSeconds int          `json:"duration_seconds"`
}

// CupOutput is the output for connect_cup and disconnect_cup
type CupOutput struct {
	Cup CupInfo `json:"cup"`
}

// SelectionOutput is the output for the selection tools
type SelectionOutput struct {
	Selected []string `json:"selected_cups" jsonschema:"description=Selected cup addresses"`
	Message  string   `json:"message,omitempty"`
}

// CommandOutput is the output for the command tools
type CommandOutput struct {
	Command   cup.Command  `json:"command"`
	Outcomes  cup.Outcomes `json:"outcomes" jsonschema:"description=Per-cup result: success, timeout, protocol_error or not_connected"`
	Succeeded int          `json:"succeeded"`
	Failed    []string     `json:"failed"`
}
