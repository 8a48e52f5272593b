package services

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrigation-gateway/internal/models"
)

// fakeChannel records payloads and reports a fixed result
type fakeChannel struct {
	name  string
	ok    bool
	delay time.Duration

	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, payload []byte) models.ChannelOutcome {
	time.Sleep(f.delay)
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()

	out := models.ChannelOutcome{Via: f.name, OK: f.ok}
	if !f.ok {
		out.Error = "unreachable"
	}
	return out
}

type recordingObserver struct {
	channels []string
	accepted []bool
}

func (r *recordingObserver) ObserveChannel(channel string, ok bool) {
	r.channels = append(r.channels, channel)
}

func (r *recordingObserver) ObserveDispatch(accepted bool) {
	r.accepted = append(r.accepted, accepted)
}

func fixedClock() time.Time { return time.Unix(1700000000, 0) }

func strPtr(s string) *string { return &s }

func TestDispatchBuildsCanonicalCommand(t *testing.T) {
	ch := &fakeChannel{name: models.ChannelHTTP, ok: true}
	d := NewDispatcher("http", []Channel{ch}, NewCommandState(), WithClock(fixedClock))

	out, err := d.Dispatch(context.Background(), models.PumpControlRequest{
		PumpStatus:    1,
		Reason:        strPtr("manual"),
		CorrelationID: strPtr("abc-1"),
	})
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.Equal(t, "http", out.Mode)
	assert.Equal(t, models.ActuationCommand{
		PumpStatus:    1,
		PumpLabel:     "ON",
		Source:        "api",
		Reason:        strPtr("manual"),
		CorrelationID: strPtr("abc-1"),
		Timestamp:     1700000000,
	}, out.Command)

	require.Len(t, ch.payloads, 1)
	assert.JSONEq(t, `{"pump_status":1,"pump_label":"ON","source":"api","reason":"manual","correlation_id":"abc-1","ts":1700000000}`,
		string(ch.payloads[0]))
}

func TestDispatchPartialFailureIsAccepted(t *testing.T) {
	tests := []struct {
		name   string
		httpOK bool
		mqttOK bool
	}{
		{"http fails, mqtt succeeds", false, true},
		{"http succeeds, mqtt fails", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the slower http channel must still be reported first
			httpCh := &fakeChannel{name: models.ChannelHTTP, ok: tt.httpOK, delay: 20 * time.Millisecond}
			mqttCh := &fakeChannel{name: models.ChannelMQTT, ok: tt.mqttOK}
			d := NewDispatcher("both", []Channel{httpCh, mqttCh}, NewCommandState())

			out, err := d.Dispatch(context.Background(), models.PumpControlRequest{PumpStatus: 0})
			require.NoError(t, err)

			assert.True(t, out.Accepted)
			require.Len(t, out.ForwardedResults, 2)
			assert.Equal(t, models.ChannelHTTP, out.ForwardedResults[0].Via)
			assert.Equal(t, tt.httpOK, out.ForwardedResults[0].OK)
			assert.Equal(t, models.ChannelMQTT, out.ForwardedResults[1].Via)
			assert.Equal(t, tt.mqttOK, out.ForwardedResults[1].OK)

			assert.Equal(t, httpCh.payloads, mqttCh.payloads, "both channels get the same payload")
		})
	}
}

func TestDispatchTotalFailureUpdatesState(t *testing.T) {
	state := NewCommandState()
	obs := &recordingObserver{}
	d := NewDispatcher("both", []Channel{
		&fakeChannel{name: models.ChannelHTTP},
		&fakeChannel{name: models.ChannelMQTT},
	}, state, WithObserver(obs))

	out, err := d.Dispatch(context.Background(), models.PumpControlRequest{PumpStatus: 1, Source: "flutter"})
	require.NoError(t, err)
	assert.False(t, out.Accepted)

	last := state.Get()
	require.NotNil(t, last.Accepted)
	assert.False(t, *last.Accepted)
	assert.Equal(t, "flutter", *last.Source)
	assert.Len(t, last.Result, 2)

	assert.Equal(t, []string{"http", "mqtt"}, obs.channels)
	assert.Equal(t, []bool{false}, obs.accepted)
}

func TestDispatchWithoutChannels(t *testing.T) {
	d := NewDispatcher("none", nil, NewCommandState())

	out, err := d.Dispatch(context.Background(), models.PumpControlRequest{PumpStatus: 1})
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.NotNil(t, out.ForwardedResults)
	assert.Empty(t, out.ForwardedResults)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"forwarded_results":[]`)
}

func TestDispatchUnreachableHTTPEndpoint(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + ln.Addr().String() + "/pump"
	require.NoError(t, ln.Close())

	d := NewDispatcher("http", []Channel{NewHTTPChannel(url, time.Second)}, NewCommandState())
	out, err := d.Dispatch(context.Background(), models.PumpControlRequest{PumpStatus: 1})
	require.NoError(t, err)

	assert.False(t, out.Accepted)
	require.Len(t, out.ForwardedResults, 1)
	assert.Equal(t, "http", out.ForwardedResults[0].Via)
	assert.False(t, out.ForwardedResults[0].OK)
	assert.NotEmpty(t, out.ForwardedResults[0].Error)
	assert.Nil(t, out.ForwardedResults[0].StatusCode)
}

func TestDispatchOverHTTPAndMQTT(t *testing.T) {
	var received models.ActuationCommand
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub := &fakePublisher{err: errors.New("connection refused")}
	d := NewDispatcher("both", []Channel{
		NewHTTPChannel(srv.URL, time.Second),
		NewMQTTChannelWith(pub, "broker", 1883, "pump/control"),
	}, NewCommandState())

	out, err := d.Dispatch(context.Background(), models.PumpControlRequest{PumpStatus: 0, Source: "esp32"})
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.Equal(t, 0, received.PumpStatus)
	assert.Equal(t, "OFF", received.PumpLabel)
	assert.True(t, out.ForwardedResults[0].OK)
	assert.False(t, out.ForwardedResults[1].OK)
	assert.Equal(t, "connection refused", out.ForwardedResults[1].Error)
}

func TestDispatchOutlivesCallerCancellation(t *testing.T) {
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("pump on"))
	}))
	defer device.Close()

	state := NewCommandState()
	d := NewDispatcher("http", []Channel{NewHTTPChannel(device.URL, 3*time.Second)}, state)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	defer cancel()

	out, err := d.Dispatch(ctx, models.PumpControlRequest{PumpStatus: 1})
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	require.Len(t, out.ForwardedResults, 1)
	assert.True(t, out.ForwardedResults[0].OK, out.ForwardedResults[0].Error)
	assert.Empty(t, out.ForwardedResults[0].Error)

	last := state.Get()
	require.NotNil(t, last.Accepted)
	assert.True(t, *last.Accepted)
}
