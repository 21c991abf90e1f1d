// Package config loads runtime settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/urmzd/glowcup/pkg/connection"
	"github.com/urmzd/glowcup/pkg/core"
	"github.com/urmzd/glowcup/pkg/dispatch"
)

// Transport kinds
const (
	TransportBLE    = "ble"
	TransportBridge = "bridge"
	TransportNull   = "null"
)

// Config is the root configuration.
type Config struct {
	Transport  TransportConfig  `yaml:"transport"`
	Connection ConnectionConfig `yaml:"connection"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Store      StoreConfig      `yaml:"store"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// TransportConfig selects and configures the radio.
type TransportConfig struct {
	Kind       string `yaml:"kind"`
	NamePrefix string `yaml:"name_prefix"`
	SerialPort string `yaml:"serial_port"` // bridge only; empty autodetects
	BaudRate   int    `yaml:"baud_rate"`
}

// ConnectionConfig holds link timeouts in milliseconds.
type ConnectionConfig struct {
	ConnectTimeoutMS    int `yaml:"connect_timeout_ms"`
	DisconnectTimeoutMS int `yaml:"disconnect_timeout_ms"`
}

// DispatchConfig tunes command delivery.
type DispatchConfig struct {
	WriteTimeoutMS           int   `yaml:"write_timeout_ms"`
	RetryBackoffMS           int   `yaml:"retry_backoff_ms"`
	MaxRetries               int   `yaml:"max_retries"`
	MaxInFlight              int64 `yaml:"max_in_flight"`
	AutoExpandEmptySelection bool  `yaml:"auto_expand_empty_selection"`
	QueryBatteryOnConnect    bool  `yaml:"query_battery_on_connect"`
}

// StoreConfig sizes the event log.
type StoreConfig struct {
	EventLogCapacity int `yaml:"event_log_capacity"`
}

// MQTTConfig configures optional state publishing.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// LoggingConfig holds the zerolog level name.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := core.DefaultOptions()
	conn, disp := opts.Connection, opts.Dispatch
	return &Config{
		Transport: TransportConfig{
			Kind:       TransportBLE,
			NamePrefix: "GlowCup",
			BaudRate:   115200,
		},
		Connection: ConnectionConfig{
			ConnectTimeoutMS:    int(conn.ConnectTimeout / time.Millisecond),
			DisconnectTimeoutMS: int(conn.DisconnectTimeout / time.Millisecond),
		},
		Dispatch: DispatchConfig{
			WriteTimeoutMS:           int(disp.WriteTimeout / time.Millisecond),
			RetryBackoffMS:           int(disp.RetryBackoff / time.Millisecond),
			MaxRetries:               disp.MaxRetries,
			MaxInFlight:              disp.MaxInFlight,
			AutoExpandEmptySelection: disp.AutoExpand,
			QueryBatteryOnConnect:    opts.QueryBatteryOnConnect,
		},
		Store: StoreConfig{
			EventLogCapacity: opts.EventLogCapacity,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "glowcup",
			TopicPrefix: "glowcup",
			QoS:         1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies GLOWCUP_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides follows the pattern GLOWCUP_SECTION_KEY.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("GLOWCUP_TRANSPORT_KIND"); v != "" {
		cfg.Transport.Kind = v
	}
	if v := os.Getenv("GLOWCUP_TRANSPORT_SERIAL_PORT"); v != "" {
		cfg.Transport.SerialPort = v
	}
	if v := os.Getenv("GLOWCUP_TRANSPORT_NAME_PREFIX"); v != "" {
		cfg.Transport.NamePrefix = v
	}
	if v := os.Getenv("GLOWCUP_DISPATCH_AUTO_EXPAND_EMPTY_SELECTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GLOWCUP_DISPATCH_AUTO_EXPAND_EMPTY_SELECTION: %w", err)
		}
		cfg.Dispatch.AutoExpandEmptySelection = b
	}
	if v := os.Getenv("GLOWCUP_MQTT_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GLOWCUP_MQTT_ENABLED: %w", err)
		}
		cfg.MQTT.Enabled = b
	}
	if v := os.Getenv("GLOWCUP_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("GLOWCUP_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("GLOWCUP_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("GLOWCUP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Transport.Kind {
	case TransportBLE, TransportBridge, TransportNull:
	default:
		errs = append(errs, fmt.Sprintf("transport.kind must be one of ble, bridge, null (got %q)", c.Transport.Kind))
	}
	if c.Transport.Kind == TransportBridge && c.Transport.BaudRate <= 0 {
		errs = append(errs, "transport.baud_rate must be positive")
	}
	if c.Connection.ConnectTimeoutMS <= 0 {
		errs = append(errs, "connection.connect_timeout_ms must be positive")
	}
	if c.Connection.DisconnectTimeoutMS <= 0 {
		errs = append(errs, "connection.disconnect_timeout_ms must be positive")
	}
	if c.Dispatch.WriteTimeoutMS <= 0 {
		errs = append(errs, "dispatch.write_timeout_ms must be positive")
	}
	if c.Dispatch.RetryBackoffMS < 0 {
		errs = append(errs, "dispatch.retry_backoff_ms must not be negative")
	}
	if c.Dispatch.MaxRetries < 0 {
		errs = append(errs, "dispatch.max_retries must not be negative")
	}
	if c.Dispatch.MaxInFlight < 1 {
		errs = append(errs, "dispatch.max_in_flight must be at least 1")
	}
	if c.Store.EventLogCapacity < 1 {
		errs = append(errs, "store.event_log_capacity must be at least 1")
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LogLevel returns the parsed logging level, defaulting to info.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ServiceOptions converts the connection, dispatch and store sections.
func (c *Config) ServiceOptions() core.Options {
	return core.Options{
		Connection: connection.Config{
			ConnectTimeout:    ms(c.Connection.ConnectTimeoutMS),
			DisconnectTimeout: ms(c.Connection.DisconnectTimeoutMS),
		},
		Dispatch: dispatch.Config{
			WriteTimeout: ms(c.Dispatch.WriteTimeoutMS),
			RetryBackoff: ms(c.Dispatch.RetryBackoffMS),
			MaxRetries:   c.Dispatch.MaxRetries,
			MaxInFlight:  c.Dispatch.MaxInFlight,
			AutoExpand:   c.Dispatch.AutoExpandEmptySelection,
		},
		EventLogCapacity:      c.Store.EventLogCapacity,
		QueryBatteryOnConnect: c.Dispatch.QueryBatteryOnConnect,
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
