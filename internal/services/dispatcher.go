package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"irrigation-gateway/internal/models"
)

// DefaultSource is recorded when a request does not name its source
const DefaultSource = "api"

// DispatchObserver receives per-channel delivery results (e.g. metrics)
type DispatchObserver interface {
	ObserveChannel(channel string, ok bool)
	ObserveDispatch(accepted bool)
}

// Dispatcher forwards pump commands over the configured channels and
// records the outcome as the last command
type Dispatcher struct {
	mode     string
	channels []Channel
	state    *CommandState
	observer DispatchObserver
	now      func() time.Time
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithObserver reports channel results to o
func WithObserver(o DispatchObserver) DispatcherOption {
	return func(d *Dispatcher) { d.observer = o }
}

// WithClock overrides the wall clock used for command timestamps
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher. Outcomes are reported in the order of channels.
func NewDispatcher(mode string, channels []Channel, state *CommandState, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		mode:     mode,
		channels: channels,
		state:    state,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Mode returns the configured control mode
func (d *Dispatcher) Mode() string { return d.mode }

// Channels returns the configured channels
func (d *Dispatcher) Channels() []Channel { return d.channels }

// NewCommand builds the canonical command for a request
func (d *Dispatcher) NewCommand(req models.PumpControlRequest) models.ActuationCommand {
	source := req.Source
	if source == "" {
		source = DefaultSource
	}
	return models.ActuationCommand{
		PumpStatus:    req.PumpStatus,
		PumpLabel:     models.PumpLabel(req.PumpStatus),
		Source:        source,
		Reason:        req.Reason,
		CorrelationID: req.CorrelationID,
		Timestamp:     d.now().Unix(),
	}
}

// Dispatch sends one command over every channel concurrently. A failing channel
// never stops the others. The command is accepted when at least one channel
// delivered it. The last command state is overwritten whatever the result.
// Cancellation of ctx does not abort deliveries already started; each channel
// is bounded by its own timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.PumpControlRequest) (models.ActuationOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	cmd := d.NewCommand(req)

	payload, err := json.Marshal(cmd)
	if err != nil {
		return models.ActuationOutcome{}, fmt.Errorf("failed to marshal pump command: %w", err)
	}

	results := make([]models.ChannelOutcome, len(d.channels))
	var g errgroup.Group
	for i, ch := range d.channels {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = ch.Send(ctx, payload)
			return nil
		})
	}
	_ = g.Wait()

	accepted := false
	for _, r := range results {
		if r.OK {
			accepted = true
		} else {
			log.Printf("Dispatcher: %s delivery failed: %s", r.Via, r.Error)
		}
		if d.observer != nil {
			d.observer.ObserveChannel(r.Via, r.OK)
		}
	}
	if d.observer != nil {
		d.observer.ObserveDispatch(accepted)
	}

	d.state.Set(cmd, d.mode, results, accepted)

	log.Printf("Dispatcher: pump %s from %s via %s accepted=%v", cmd.PumpLabel, cmd.Source, d.mode, accepted)

	return models.ActuationOutcome{
		Accepted:         accepted,
		Mode:             d.mode,
		ForwardedResults: results,
		Command:          cmd,
	}, nil
}
