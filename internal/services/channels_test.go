package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrigation-gateway/internal/models"
)

type fakePublisher struct {
	err     error
	payload []byte
}

func (f *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	f.payload = payload
	return f.err
}

func TestHTTPChannelSend(t *testing.T) {
	var body, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		contentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte("pump on"))
	}))
	defer srv.Close()

	ch := NewHTTPChannel(srv.URL, time.Second)
	out := ch.Send(context.Background(), []byte(`{"pump_status":1}`))

	assert.True(t, out.OK)
	assert.Equal(t, models.ChannelHTTP, out.Via)
	assert.Equal(t, srv.URL, out.URL)
	require.NotNil(t, out.StatusCode)
	assert.Equal(t, 200, *out.StatusCode)
	assert.Equal(t, "pump on", *out.ResponseText)
	assert.Equal(t, `{"pump_status":1}`, body)
	assert.Equal(t, "application/json", contentType)
}

func TestHTTPChannelErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 2000), http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	out := NewHTTPChannel(srv.URL, time.Second).Send(context.Background(), []byte(`{}`))
	assert.False(t, out.OK)
	assert.Equal(t, 503, *out.StatusCode)
	assert.Len(t, *out.ResponseText, responseExcerptLimit)
}

func TestHTTPChannelTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	out := NewHTTPChannel(srv.URL, 50*time.Millisecond).Send(context.Background(), []byte(`{}`))
	assert.False(t, out.OK)
	assert.NotEmpty(t, out.Error)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPChannelBadURL(t *testing.T) {
	out := NewHTTPChannel("://bad", time.Second).Send(context.Background(), []byte(`{}`))
	assert.False(t, out.OK)
	assert.NotEmpty(t, out.Error)
}

func TestExcerptKeepsWholeRunes(t *testing.T) {
	assert.Equal(t, "éé", excerpt([]byte("ééé"), 2))
	assert.Equal(t, "ok", excerpt([]byte("ok"), 500))
}

func TestMQTTChannelSend(t *testing.T) {
	pub := &fakePublisher{}
	ch := NewMQTTChannelWith(pub, "broker.local", 1883, "smart_irrigation/pump/control")

	out := ch.Send(context.Background(), []byte(`{"pump_status":0}`))
	assert.True(t, out.OK)
	assert.Equal(t, models.ChannelMQTT, out.Via)
	assert.Equal(t, "broker.local", out.Host)
	assert.Equal(t, 1883, out.Port)
	assert.Equal(t, "smart_irrigation/pump/control", out.Topic)
	assert.Equal(t, `{"pump_status":0}`, string(pub.payload))
}

func TestMQTTChannelFailure(t *testing.T) {
	ch := NewMQTTChannelWith(&fakePublisher{err: errors.New("not authorized")}, "broker", 1883, "t")
	out := ch.Send(context.Background(), []byte(`{}`))
	assert.False(t, out.OK)
	assert.Equal(t, "not authorized", out.Error)
}

func TestMQTTChannelWithoutHost(t *testing.T) {
	pub := &fakePublisher{}
	out := NewMQTTChannelWith(pub, "", 1883, "t").Send(context.Background(), []byte(`{}`))
	assert.False(t, out.OK)
	assert.Equal(t, "MQTT_HOST is not set", out.Error)
	assert.Nil(t, pub.payload, "no publish attempt without a host")
}
