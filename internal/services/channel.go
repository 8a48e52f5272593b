package services

import (
	"context"

	"irrigation-gateway/internal/models"
)

// Channel delivers a serialized pump command to the controller.
// Send never returns an error: delivery failures are reported in the outcome.
type Channel interface {
	Name() string
	Send(ctx context.Context, payload []byte) models.ChannelOutcome
}
