package services

import (
	"context"

	"irrigation-gateway/internal/models"
	"irrigation-gateway/internal/mqtt"
)

// CommandPublisher publishes a payload to the broker
type CommandPublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// MQTTChannel publishes pump commands to the broker topic
type MQTTChannel struct {
	publisher CommandPublisher
	host      string
	port      int
	topic     string
}

// NewMQTTChannel creates an MQTT channel backed by a paho publisher
func NewMQTTChannel(publisher *mqtt.Publisher) *MQTTChannel {
	cfg := publisher.Config()
	return NewMQTTChannelWith(publisher, cfg.Host, cfg.Port, cfg.Topic)
}

// NewMQTTChannelWith creates an MQTT channel around any publisher
func NewMQTTChannelWith(publisher CommandPublisher, host string, port int, topic string) *MQTTChannel {
	return &MQTTChannel{publisher: publisher, host: host, port: port, topic: topic}
}

func (c *MQTTChannel) Name() string { return models.ChannelMQTT }

// Host returns the configured broker host
func (c *MQTTChannel) Host() string { return c.host }

// Topic returns the topic commands are published to
func (c *MQTTChannel) Topic() string { return c.topic }

// Send publishes the payload and waits for the broker acknowledgement
func (c *MQTTChannel) Send(ctx context.Context, payload []byte) models.ChannelOutcome {
	if c.host == "" {
		return models.ChannelOutcome{Via: models.ChannelMQTT, Error: mqtt.ErrNoHost.Error()}
	}

	outcome := models.ChannelOutcome{
		Via:   models.ChannelMQTT,
		Host:  c.host,
		Port:  c.port,
		Topic: c.topic,
	}
	if err := c.publisher.Publish(ctx, payload); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.OK = true
	return outcome
}
