package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"irrigation-gateway/internal/models"
)

// responseExcerptLimit is the number of characters of the device response kept in the outcome
const responseExcerptLimit = 500

// HTTPChannel posts pump commands to the ESP32 HTTP endpoint
type HTTPChannel struct {
	url    string
	client *http.Client
}

// NewHTTPChannel creates an HTTP channel with the given request timeout
func NewHTTPChannel(url string, timeout time.Duration) *HTTPChannel {
	return &HTTPChannel{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint commands are posted to
func (c *HTTPChannel) URL() string { return c.url }

func (c *HTTPChannel) Name() string { return models.ChannelHTTP }

// Send posts the payload; any status below 400 counts as delivered
func (c *HTTPChannel) Send(ctx context.Context, payload []byte) models.ChannelOutcome {
	outcome := models.ChannelOutcome{Via: models.ChannelHTTP, URL: c.url}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	defer resp.Body.Close()

	// UTF-8 runes are at most 4 bytes
	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseExcerptLimit*utf8.UTFMax))
	text := excerpt(body, responseExcerptLimit)

	status := resp.StatusCode
	outcome.OK = status < http.StatusBadRequest
	outcome.StatusCode = &status
	outcome.ResponseText = &text
	return outcome
}

func excerpt(body []byte, limit int) string {
	runes := []rune(string(body))
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes)
}
