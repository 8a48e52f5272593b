package models

// Channel names used in forwarded results
const (
	ChannelHTTP = "http"
	ChannelMQTT = "mqtt"
)

// PumpControlRequest is a validated actuation request
type PumpControlRequest struct {
	PumpStatus    int
	Source        string
	Reason        *string
	CorrelationID *string
}

// ActuationCommand is the canonical payload forwarded to the pump controller
type ActuationCommand struct {
	PumpStatus    int     `json:"pump_status"`
	PumpLabel     string  `json:"pump_label"`
	Source        string  `json:"source"`
	Reason        *string `json:"reason"`
	CorrelationID *string `json:"correlation_id"`
	Timestamp     int64   `json:"ts"` // unix seconds
}

// ChannelOutcome is the delivery result of one channel
type ChannelOutcome struct {
	Via          string  `json:"via"`
	OK           bool    `json:"ok"`
	StatusCode   *int    `json:"status_code,omitempty"`
	ResponseText *string `json:"response_text,omitempty"`
	Error        string  `json:"error,omitempty"`

	// HTTP channel
	URL string `json:"url,omitempty"`

	// MQTT channel
	Host  string `json:"host,omitempty"`
	Port  int    `json:"port,omitempty"`
	Topic string `json:"topic,omitempty"`
}

// ActuationOutcome is the response to a pump control request
type ActuationOutcome struct {
	Accepted         bool             `json:"accepted"`
	Mode             string           `json:"mode"`
	ForwardedResults []ChannelOutcome `json:"forwarded_results"`
	Command          ActuationCommand `json:"command"`
}

// LastCommandState is the most recent pump command and its delivery result.
// All fields are null until the first dispatch.
type LastCommandState struct {
	Timestamp     *int64           `json:"ts"`
	PumpStatus    *int             `json:"pump_status"`
	PumpLabel     *string          `json:"pump_label"`
	Source        *string          `json:"source"`
	Reason        *string          `json:"reason"`
	CorrelationID *string          `json:"correlation_id"`
	Mode          *string          `json:"mode"`
	Accepted      *bool            `json:"accepted"`
	Result        []ChannelOutcome `json:"result"`
}

// NewLastCommandState builds the state recorded after a dispatch
func NewLastCommandState(cmd ActuationCommand, mode string, results []ChannelOutcome, accepted bool) LastCommandState {
	ts := cmd.Timestamp
	status := cmd.PumpStatus
	label := cmd.PumpLabel
	source := cmd.Source

	copied := make([]ChannelOutcome, len(results))
	copy(copied, results)

	return LastCommandState{
		Timestamp:     &ts,
		PumpStatus:    &status,
		PumpLabel:     &label,
		Source:        &source,
		Reason:        cmd.Reason,
		CorrelationID: cmd.CorrelationID,
		Mode:          &mode,
		Accepted:      &accepted,
		Result:        copied,
	}
}
