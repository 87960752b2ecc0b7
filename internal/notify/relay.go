// relay.go implements the fallback delivery channel: a JSON POST of the
// message to an HTTP mail relay endpoint, for deployments where direct SMTP
// egress is blocked and a relay service sends on the application's behalf.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RelayOptions configures the HTTP relay channel.
type RelayOptions struct {
	// URL is the relay endpoint accepting the message JSON.
	URL string
	// Headers are additional HTTP headers (relay auth tokens and the like).
	Headers map[string]string
	// Timeout bounds one delivery attempt; zero means 10s.
	Timeout time.Duration
}

// RelayChannel posts messages to an HTTP mail relay.
type RelayChannel struct {
	opts   RelayOptions
	client *http.Client
}

// NewRelayChannel creates the channel.
func NewRelayChannel(opts RelayOptions) *RelayChannel {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &RelayChannel{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Channel.
func (c *RelayChannel) Name() string { return "relay" }

// relayPayload is the wire form the relay accepts.
type relayPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body"`
}

// Send implements Channel.
func (c *RelayChannel) Send(ctx context.Context, msg Message) error {
	if c.opts.URL == "" {
		return fmt.Errorf("relay url not configured")
	}

	body, err := json.Marshal(relayPayload{
		To:       msg.To,
		Subject:  msg.Subject,
		TextBody: msg.TextBody,
		HTMLBody: msg.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("marshal relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return nil
}
