package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/urmzd/glowcup/pkg/cup"
)

func withTargets() mcp.ToolOption {
	return mcp.WithArray("targets",
		mcp.Description("Cup BLE addresses to target. Omit to use the selection, or every connected cup when nothing is selected"),
		mcp.WithStringItems(),
	)
}

func withCupID() mcp.ToolOption {
	return mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Cup BLE address, e.g. AA:BB:CC:DD:EE:01"),
	)
}

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check whether the Bluetooth adapter is enabled and how many cups are connected"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_cups",
			mcp.WithDescription("List every discovered cup with connection state, color, brightness, mode, battery and selection"),
		),
		s.handleListCups,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("scan_cups",
			mcp.WithDescription("Scan for cups and return the ones discovered during this scan"),
			mcp.WithNumber("duration_seconds",
				mcp.Description("How long to scan in seconds (default 10, max 120)"),
			),
		),
		s.handleScanCups,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("connect_cup",
			mcp.WithDescription("Connect to a discovered cup"),
			withCupID(),
		),
		s.handleConnectCup,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("disconnect_cup",
			mcp.WithDescription("Disconnect a cup; it also leaves the selection"),
			withCupID(),
		),
		s.handleDisconnectCup,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("select_cup",
			mcp.WithDescription("Add a connected cup to the selection"),
			withCupID(),
		),
		s.handleSelectCup,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("deselect_cup",
			mcp.WithDescription("Remove a cup from the selection"),
			withCupID(),
		),
		s.handleDeselectCup,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("select_all_cups",
			mcp.WithDescription("Select exactly the connected cups"),
		),
		s.handleSelectAllCups,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("deselect_all_cups",
			mcp.WithDescription("Clear the selection"),
		),
		s.handleDeselectAllCups,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_color",
			mcp.WithDescription("Set the color of the target cups. Pass either hex or r, g and b."),
			mcp.WithString("hex", mcp.Description("Color as #RRGGBB")),
			mcp.WithNumber("r", mcp.Description("Red 0-255")),
			mcp.WithNumber("g", mcp.Description("Green 0-255")),
			mcp.WithNumber("b", mcp.Description("Blue 0-255")),
			withTargets(),
		),
		s.commandHandler(cup.CommandSetColor),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_brightness",
			mcp.WithDescription("Set the brightness of the target cups"),
			mcp.WithNumber("level",
				mcp.Required(),
				mcp.Description("Brightness 0-100"),
			),
			withTargets(),
		),
		s.commandHandler(cup.CommandSetBrightness),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_mode",
			mcp.WithDescription("Set the lighting mode of the target cups"),
			mcp.WithString("mode",
				mcp.Required(),
				mcp.Enum("static", "pulse", "strobe", "rainbow"),
				mcp.Description("Lighting mode"),
			),
			withTargets(),
		),
		s.commandHandler(cup.CommandSetMode),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("query_battery",
			mcp.WithDescription("Ask the target cups to report battery level; read the result with get_state"),
			withTargets(),
		),
		s.commandHandler(cup.CommandQueryBattery),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_state",
			mcp.WithDescription("Get the aggregated state: cups, selection, last command and current color, brightness and mode"),
		),
		s.handleGetState,
	)
}
