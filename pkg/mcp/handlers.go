package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/glowcup/pkg/cup"
)

const (
	defaultScanSeconds = 10
	maxScanSeconds     = 120
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := GetHealthOutput{
		Status:        "degraded",
		Adapter:       "disabled",
		ConnectedCups: len(s.svc.Registry().ConnectedIDs()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if s.svc.AdapterEnabled() {
		out.Status = "healthy"
		out.Adapter = "enabled"
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) cupInfo(d cup.Device) CupInfo {
	return CupInfo{Device: d, Selected: slices.Contains(s.svc.SelectedCups(), d.ID)}
}

func (s *Server) handleListCups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cups := s.svc.Cups()
	infos := make([]CupInfo, 0, len(cups))
	for _, d := range cups {
		infos = append(infos, s.cupInfo(d))
	}
	return mcp.NewToolResultText(formatJSON(ListCupsOutput{Cups: infos, Count: len(infos)})), nil
}

func (s *Server) handleScanCups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	duration := defaultScanSeconds
	if d, ok := request.GetArguments()["duration_seconds"]; ok {
		if df, ok := d.(float64); ok && df > 0 {
			duration = int(df)
		}
	}
	if duration > maxScanSeconds {
		return mcp.NewToolResultError(fmt.Sprintf("duration_seconds cannot exceed %d", maxScanSeconds)), nil
	}

	found, err := s.svc.Scan(ctx, time.Duration(duration)*time.Second)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to scan: %s", err)), nil
	}

	discovered := []cup.Device{}
	for d := range found {
		discovered = append(discovered, d)
	}

	out := ScanCupsOutput{
		Discovered:      discovered,
		Known:           len(s.svc.Cups()),
		DurationSeconds: duration,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleConnectCup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := s.svc.ConnectToCup(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to connect cup: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(CupOutput{Cup: s.cupInfo(d)})), nil
}

func (s *Server) handleDisconnectCup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.svc.DisconnectFromCup(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to disconnect cup: %s", err)), nil
	}
	d, err := s.svc.Cup(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatJSON(CupOutput{Cup: s.cupInfo(d)})), nil
}

func (s *Server) selectionResult(message string) *mcp.CallToolResult {
	selected := s.svc.SelectedCups()
	if selected == nil {
		selected = []string{}
	}
	return mcp.NewToolResultText(formatJSON(SelectionOutput{Selected: selected, Message: message}))
}

func (s *Server) handleSelectCup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ok, err := s.svc.SelectCup(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to select cup: %s", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("cup %s is not connected; connect it first", id)), nil
	}
	return s.selectionResult(""), nil
}

func (s *Server) handleDeselectCup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.svc.DeselectCup(id)
	return s.selectionResult(""), nil
}

func (s *Server) handleSelectAllCups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if len(s.svc.SelectAllCups()) == 0 {
		return s.selectionResult("No connected cups to select"), nil
	}
	return s.selectionResult(""), nil
}

func (s *Server) handleDeselectAllCups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.DeselectAllCups()
	return s.selectionResult(""), nil
}

// commandHandler validates the tool arguments against the command schema
// and dispatches the command. Partial failures are reported, not errors.
func (s *Server) commandHandler(kind cup.CommandKind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		req, err := s.validator.Decode(kind, args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("validation error: %s", err)), nil
		}

		outcomes, err := s.svc.Dispatch(ctx, req.Command, req.Targets...)
		if err != nil && !errors.Is(err, cup.ErrPartialFailure) {
			return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %s", kind, err)), nil
		}
		if outcomes == nil {
			outcomes = cup.Outcomes{}
		}
		failed := outcomes.Failed()
		if failed == nil {
			failed = []string{}
		}

		out := CommandOutput{
			Command:   req.Command,
			Outcomes:  outcomes,
			Succeeded: outcomes.Succeeded(),
			Failed:    failed,
		}
		return mcp.NewToolResultText(formatJSON(out)), nil
	}
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.svc.Snapshot())), nil
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
