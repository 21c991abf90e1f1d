// Package app wires the database, configuration, radio transport and
// controller service shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/bridge"
	"github.com/urmzd/glowcup/pkg/config"
	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/cup/schema"
	"github.com/urmzd/glowcup/pkg/db"
	"github.com/urmzd/glowcup/pkg/mqtt"
)

const (
	historyWriteTimeout = 2 * time.Second
	historyKeep         = 10000
)

// Options are the command-line inputs of a binary.
type Options struct {
	DBPath     string
	ConfigPath string
	LogOutput  io.Writer // defaults to stderr
}

// App holds everything a binary serves from.
type App struct {
	DB        *db.DB
	Config    *config.Config
	Settings  *db.Settings
	Service   *core.Service
	Validator *schema.Validator

	mqttClient *mqtt.Client
	cancel     context.CancelFunc
}

// SetupLogging points the global logger at out with the console writer.
func SetupLogging(out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
}

// Setup opens and migrates the database, loads configuration, opens the
// radio and builds the controller. A radio that cannot be opened is
// replaced by the null transport so the API still starts.
func Setup(ctx context.Context, opts Options) (*App, error) {
	SetupLogging(opts.LogOutput)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())

	database, err := openDB(ctx, opts.DBPath)
	if err != nil {
		return nil, err
	}

	settings, err := database.ActiveSettings(ctx)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}
	log.Info().
		Str("profile", settings.Profile.Name).
		Str("timezone", settings.Timezone()).
		Str("api_address", settings.APIAddress()).
		Msg("Configuration loaded")

	svc := core.New(OpenTransport(cfg.Transport), cfg.ServiceOptions())
	log.Logger = log.Logger.Hook(svc.Events().Hook(zerolog.InfoLevel))

	if n, err := database.Dispatches().Prune(ctx, historyKeep); err != nil {
		log.Warn().Err(err).Msg("Failed to prune dispatch history")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("Pruned dispatch history")
	}
	svc.OnDispatch(database.RecordDispatches(historyWriteTimeout))

	runCtx, cancel := context.WithCancel(context.Background())
	a := &App{
		DB:        database,
		Config:    cfg,
		Settings:  settings,
		Service:   svc,
		Validator: schema.NewValidator(),
		cancel:    cancel,
	}

	if cfg.MQTT.Enabled {
		a.startMQTT(runCtx)
	}
	return a, nil
}

func openDB(ctx context.Context, path string) (*db.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Info().Str("path", database.Path()).Msg("Database opened")

	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	needsBootstrap, err := database.NeedsBootstrap(ctx)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("check bootstrap status: %w", err)
	}
	if needsBootstrap {
		log.Info().Msg("First run detected, bootstrapping database...")
		if err := database.Bootstrap(ctx); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
	}
	return database, nil
}

// OpenTransport opens the configured radio, falling back to the null
// transport when it is unavailable.
func OpenTransport(cfg config.TransportConfig) ble.Transport {
	var (
		t   ble.Transport
		err error
	)
	switch cfg.Kind {
	case config.TransportBLE:
		t, err = ble.NewAdapter(cfg.NamePrefix)
	case config.TransportBridge:
		t, err = bridge.Open(cfg.SerialPort, cfg.BaudRate)
	case config.TransportNull:
		log.Info().Msg("Using null transport")
		return ble.NewNullTransport()
	default:
		err = fmt.Errorf("unknown transport kind %q", cfg.Kind)
	}
	if err != nil {
		log.Warn().Err(err).Str("kind", cfg.Kind).Msg("Radio unavailable, using null transport")
		return ble.NewNullTransport()
	}
	log.Info().Str("kind", cfg.Kind).Bool("enabled", t.IsAdapterEnabled()).Msg("Radio opened")
	return t
}

func (a *App) startMQTT(ctx context.Context) {
	client, err := mqtt.Connect(a.Config.MQTT)
	if err != nil {
		log.Warn().Err(err).Str("broker", a.Config.MQTT.Broker).Msg("MQTT unavailable, state will not be mirrored")
		return
	}
	a.mqttClient = client

	pub := mqtt.NewPublisher(client, client.Topics())
	a.Service.OnDispatch(pub.HandleDispatch)
	go pub.Run(ctx, a.Service.Store())
}

// Close disconnects every cup and releases the radio, broker and database.
func (a *App) Close(ctx context.Context) error {
	a.cancel()

	var errs []error
	if err := a.Service.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close service: %w", err))
	}
	if a.mqttClient != nil {
		if err := a.mqttClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mqtt: %w", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
