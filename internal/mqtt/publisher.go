package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// ErrNoHost is returned when no broker host is configured
var ErrNoHost = errors.New("MQTT_HOST is not set")

// Publisher delivers pump commands to the broker. Every Publish opens its own
// connection and closes it afterwards, so a broken broker only affects that call.
type Publisher struct {
	config PublisherConfig
}

// PublisherConfig holds configuration for the MQTT publisher
type PublisherConfig struct {
	Host     string
	Port     int
	Topic    string // e.g., "smart_irrigation/pump/control"
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration
}

// NewPublisher creates a new MQTT publisher
func NewPublisher(config PublisherConfig) *Publisher {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Publisher{config: config}
}

// Config returns the publisher configuration
func (p *Publisher) Config() PublisherConfig {
	return p.config
}

// BrokerURL returns the broker address in paho form
func (p *Publisher) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", p.config.Host, p.config.Port)
}

// Publish connects, publishes payload with the configured QoS, waits for the
// broker acknowledgement and disconnects. The whole exchange is bounded by the
// configured timeout and by the deadline of ctx, if any. Cancellation of ctx
// without a deadline is not observed.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	if p.config.Host == "" {
		return ErrNoHost
	}

	timeout := p.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return fmt.Errorf("publish deadline exceeded before connecting: %w", context.DeadlineExceeded)
	}
	start := time.Now()

	client, err := NewClient(ClientConfig{
		Broker:         p.BrokerURL(),
		ClientID:       "pump-gateway-" + uuid.NewString(),
		Username:       p.config.Username,
		Password:       p.config.Password,
		ConnectTimeout: timeout,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	remaining := timeout - time.Since(start)
	token := client.GetNativeClient().Publish(p.config.Topic, p.config.QoS, false, payload)
	if !token.WaitTimeout(remaining) {
		return fmt.Errorf("timed out waiting for publish acknowledgement on %s", p.config.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish pump command: %w", err)
	}

	log.Printf("MQTT Publisher: Published pump command to topic: %s", p.config.Topic)
	return nil
}
