// Package notify delivers transactional notification email through a ranked
// list of channels. Channels are tried in order; the first success wins and
// later channels are not consulted. Dispatch never returns an error to its
// caller: the primary side effect (a store write) has already happened by the
// time a notification goes out, so total delivery failure is downgraded to a
// log entry and a Result the caller folds into its user-facing message.
package notify

import (
	"context"
	"log/slog"

	"github.com/cm360-audit/config-helper/internal/telemetry"
)

// Message is one notification. Plain and HTML bodies are always generated
// together and handed to the channel as a unit; each channel decides how to
// encode the pair on its wire.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Channel is a single delivery mechanism. Send makes exactly one attempt: no
// retry, no backoff. Success means only that the attempt did not error.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Attempt records the outcome of one channel try.
type Attempt struct {
	Channel string
	Err     error
}

// Result names the channel that delivered a message, or carries the per-channel
// errors when every channel failed.
type Result struct {
	// Channel is the name of the successful channel, empty when all failed.
	Channel  string
	Attempts []Attempt
}

// Delivered reports whether any channel accepted the message.
func (r Result) Delivered() bool { return r.Channel != "" }

// Dispatcher tries channels in rank order.
type Dispatcher struct {
	channels []Channel
}

// NewDispatcher builds a dispatcher over the given channels, ranked in the
// order supplied. A dispatcher with no channels is valid and reports every
// message as undelivered, which keeps notification optional in deployments
// with no mail configuration.
func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

// Dispatch attempts delivery through each channel in turn. Failures are logged
// and recorded on the Result; they never propagate as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) Result {
	var result Result
	for _, ch := range d.channels {
		err := ch.Send(ctx, msg)
		result.Attempts = append(result.Attempts, Attempt{Channel: ch.Name(), Err: err})
		if err == nil {
			result.Channel = ch.Name()
			telemetry.NotificationAttemptsTotal.WithLabelValues(ch.Name(), "delivered").Inc()
			return result
		}
		telemetry.NotificationAttemptsTotal.WithLabelValues(ch.Name(), "failed").Inc()
		slog.Warn("notification channel failed", "tag", "helper", "channel", ch.Name(), "to", msg.To, "subject", msg.Subject, "error", err)
	}
	if len(d.channels) > 0 {
		slog.Error("notification undeliverable on all channels", "tag", "helper", "to", msg.To, "subject", msg.Subject)
	}
	return result
}
