// Package mqtt owns the broker session: one persistent connection and one
// subscription for the process lifetime, delivering publications to the
// pipeline as raw messages.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/satlomas/station-ingest/internal/config"
	"github.com/satlomas/station-ingest/internal/domain"
)

const messageBuffer = 256

// Client wraps a paho session subscribed to the configured topic filter.
// Reconnection after session loss is left to paho's default auto-reconnect;
// the service carries no backoff or replay logic of its own.
type Client struct {
	client   paho.Client
	topic    string
	qos      byte
	messages chan domain.RawMessage
	logger   *slog.Logger
}

// NewClient builds the paho client. The subscription is (re)established in
// the OnConnect hook so it survives reconnects.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	c := &Client{
		topic:    cfg.MQTTTopic,
		qos:      cfg.MQTTQoS,
		messages: make(chan domain.RawMessage, messageBuffer),
		logger:   logger,
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.MQTTURL).
		SetClientID(cfg.MQTTClientID).
		SetOrderMatters(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.OnConnect = func(pc paho.Client) {
		c.logger.Info("connected to broker", "client_id", cfg.MQTTClientID)
		if token := pc.Subscribe(c.topic, c.qos, c.handleMessage); token.Wait() && token.Error() != nil {
			c.logger.Error("subscribe failed", "topic", c.topic, "error", token.Error())
			return
		}
		c.logger.Info("subscribed", "topic", c.topic, "qos", c.qos)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		c.logger.Warn("broker connection lost", "error", err)
	}

	c.client = paho.NewClient(opts)
	return c
}

// Connect blocks until the initial connection succeeds, the attempt fails,
// or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages exposes the inbound stream in transport delivery order. No
// reordering, no deduplication.
func (c *Client) Messages() <-chan domain.RawMessage {
	return c.messages
}

// handleMessage copies the payload, since paho reuses its buffers after the
// handler returns.
func (c *Client) handleMessage(_ paho.Client, msg paho.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())
	c.messages <- domain.RawMessage{Topic: msg.Topic(), Payload: payload}
}

// Close disconnects the session, allowing a short drain for in-flight
// acknowledgements.
func (c *Client) Close() {
	c.client.Disconnect(250)
}
