// Package mqtt mirrors controller state onto an MQTT broker for
// dashboards and home automation.
package mqtt

import (
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/config"
)

var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrNotConnected     = errors.New("mqtt not connected")
	ErrPublishFailed    = errors.New("mqtt publish failed")
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second
)

// Topics builds topic names under a prefix.
type Topics struct {
	Prefix string
}

// State carries the retained snapshot.
func (t Topics) State() string { return t.Prefix + "/state" }

// Dispatch carries one message per completed dispatch.
func (t Topics) Dispatch() string { return t.Prefix + "/dispatch" }

// Status carries the retained online/offline marker and the will.
func (t Topics) Status() string { return t.Prefix + "/status" }

// Client wraps a paho client connected to the configured broker.
type Client struct {
	client pahomqtt.Client
	topics Topics
	qos    byte
}

// Connect dials the broker, sets a will on the status topic and marks
// the controller online.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	topics := Topics{Prefix: cfg.TopicPrefix}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive).
		SetWill(topics.Status(), statusPayload("offline"), cfg.QoS, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := &Client{topics: topics, qos: cfg.QoS}
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
		c.client.Publish(topics.Status(), c.qos, true, statusPayload("online"))
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

// Topics returns the topic names this client publishes to.
func (c *Client) Topics() Topics { return c.topics }

// Publish sends payload and waits for the broker to acknowledge it.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close marks the controller offline and disconnects.
func (c *Client) Close() error {
	if c.client.IsConnected() {
		token := c.client.Publish(c.topics.Status(), c.qos, true, statusPayload("offline"))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

func statusPayload(status string) string {
	return fmt.Sprintf(`{"status":%q,"timestamp":%q}`, status, time.Now().UTC().Format(time.RFC3339))
}
