// Package notify delivers two-party notifications. A Router picks the delivery
// channel from the recipient address; failures are returned to the caller and
// never retried here.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/Healora/internal/models"
)

// Dispatcher delivers a single notification.
type Dispatcher interface {
	Send(ctx context.Context, n models.Notification) error
}

// Channel identifies a delivery backend.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelDiscord  Channel = "discord"
)

// Resolve maps a recipient address onto a channel and the channel-local address.
//
//	user@example.com      -> email
//	whatsapp:+15551234567 -> whatsapp, +15551234567
//	sms:+15551234567      -> sms, +15551234567
//	+15551234567          -> sms
//	discord:123456789     -> discord, 123456789
func Resolve(recipient string) (Channel, string, error) {
	r := strings.TrimSpace(recipient)
	if r == "" {
		return "", "", models.ErrEmptyRecipient
	}
	for _, ch := range []Channel{ChannelWhatsApp, ChannelSMS, ChannelDiscord} {
		prefix := string(ch) + ":"
		if len(r) > len(prefix) && strings.EqualFold(r[:len(prefix)], prefix) {
			return ch, strings.TrimSpace(r[len(prefix):]), nil
		}
	}
	if strings.Contains(r, "@") {
		return ChannelEmail, r, nil
	}
	if strings.HasPrefix(r, "+") {
		return ChannelSMS, r, nil
	}
	return "", "", fmt.Errorf("%w: %q", models.ErrNoRoute, recipient)
}

// Router dispatches each notification to the backend registered for its channel.
type Router struct {
	routes map[Channel]Dispatcher
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRoute registers d for ch. A nil dispatcher leaves the channel unrouted.
func WithRoute(ch Channel, d Dispatcher) RouterOption {
	return func(r *Router) {
		if d != nil {
			r.routes[ch] = d
		}
	}
}

// NewRouter creates a Router with the given routes.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{routes: make(map[Channel]Dispatcher)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Channels lists the configured channels.
func (r *Router) Channels() []Channel {
	out := make([]Channel, 0, len(r.routes))
	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelDiscord} {
		if _, ok := r.routes[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// Send resolves the recipient and forwards n with the channel-local address.
func (r *Router) Send(ctx context.Context, n models.Notification) error {
	ch, addr, err := Resolve(n.Recipient)
	if err != nil {
		return err
	}
	d, ok := r.routes[ch]
	if !ok {
		return fmt.Errorf("%w: %s channel not configured", models.ErrNoRoute, ch)
	}
	n.Recipient = addr
	if err := d.Send(ctx, n); err != nil {
		return fmt.Errorf("%s delivery to %s failed: %w", ch, addr, err)
	}
	slog.Debug("Router.Send: notification delivered", "channel", ch, "recipient", addr)
	return nil
}

// SendAll delivers notifications in order and stops at the first failure.
// It returns how many were sent.
func SendAll(ctx context.Context, d Dispatcher, notifications ...models.Notification) (int, error) {
	for i, n := range notifications {
		if err := d.Send(ctx, n); err != nil {
			slog.Warn("notify.SendAll: dispatch stopped", "index", i, "recipient", n.Recipient, "error", err)
			return i, err
		}
	}
	return len(notifications), nil
}
