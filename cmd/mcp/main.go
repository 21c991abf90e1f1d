package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/app"
	glowcupmcp "github.com/urmzd/glowcup/pkg/mcp"
)

func main() {
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/glowcup/glowcup.db)")
	configPath := flag.String("config", "", "Path to YAML config file (default: built-in defaults)")
	flag.Parse()

	ctx := context.Background()

	// Logging must go to stderr; stdout is the MCP transport
	a, err := app.Setup(ctx, app.Options{DBPath: *dbPath, ConfigPath: *configPath, LogOutput: os.Stderr})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down cleanly")
		}
	}()

	mcpServer := glowcupmcp.NewServer(a.Service, a.Validator)

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
	}
}
