package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/cup/schema"
)

// Server exposes the cup controller as MCP tools
type Server struct {
	mcpServer *server.MCPServer
	svc       *core.Service
	validator *schema.Validator
}

// NewServer creates a new MCP server for cup control
func NewServer(svc *core.Service, validator *schema.Validator) *Server {
	s := &Server{
		svc:       svc,
		validator: validator,
	}

	s.mcpServer = server.NewMCPServer(
		"glowcup",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
