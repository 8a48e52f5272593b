package mqtt

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutHost(t *testing.T) {
	p := NewPublisher(PublisherConfig{Topic: "pump"})
	err := p.Publish(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestPublishUnreachableBroker(t *testing.T) {
	// reserve a port and close it so nothing is listening there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	p := NewPublisher(PublisherConfig{Host: "127.0.0.1", Port: port, Topic: "pump", QoS: 1, Timeout: time.Second})
	assert.Equal(t, "tcp://127.0.0.1:"+strconv.Itoa(port), p.BrokerURL())

	start := time.Now()
	err = p.Publish(context.Background(), []byte(`{}`))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPublishExpiredContext(t *testing.T) {
	p := NewPublisher(PublisherConfig{Host: "127.0.0.1", Port: 1883, Topic: "pump"})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := p.Publish(ctx, []byte(`{}`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublishIgnoresCancellationWithoutDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	p := NewPublisher(PublisherConfig{Host: "127.0.0.1", Port: port, Topic: "pump", Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the connection attempt still happens and fails on its own
	err = p.Publish(ctx, []byte(`{}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.Canceled)
}

func TestNewPublisherDefaultTimeout(t *testing.T) {
	p := NewPublisher(PublisherConfig{Host: "broker"})
	assert.Equal(t, 5*time.Second, p.Config().Timeout)
}
