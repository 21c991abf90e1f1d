package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/api"
	"github.com/urmzd/glowcup/pkg/app"

	_ "github.com/urmzd/glowcup/docs"
)

// @title           GlowCup API
// @version         1.0
// @description     REST API for controlling LED golf cups over Bluetooth Low Energy

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/glowcup/glowcup.db)")
	configPath := flag.String("config", "", "Path to YAML config file (default: built-in defaults)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, app.Options{DBPath: *dbPath, ConfigPath: *configPath, LogOutput: os.Stderr})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}

	router := api.NewRouter(a.Service, a.DB.Dispatches(), a.Validator)
	srv := &http.Server{
		Addr:              a.Settings.APIAddress(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", srv.Addr).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop API server")
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down cleanly")
	}
}
