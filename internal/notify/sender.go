// Package notify delivers one-time codes to email addresses and phones.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agromart/marketplace/internal/config"
	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/httpclient"
)

// Message is a single outbound notification.
type Message struct {
	Channel domain.Channel `json:"channel"`
	To      string         `json:"to"`
	Subject string         `json:"subject,omitempty"`
	Body    string         `json:"body"`
}

// Sender delivers messages over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// Router dispatches a message to the sender registered for its channel.
type Router struct {
	senders map[domain.Channel]Sender
}

func NewRouter(email, sms Sender) *Router {
	return &Router{senders: map[domain.Channel]Sender{
		domain.ChannelEmail: email,
		domain.ChannelPhone: sms,
	}}
}

func (r *Router) Send(ctx context.Context, msg *Message) error {
	s, ok := r.senders[msg.Channel]
	if !ok || s == nil {
		return fmt.Errorf("no sender for channel %q", msg.Channel)
	}
	if err := s.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	return nil
}

// FromConfig builds a router from config. A channel without a gateway URL
// falls back to a LogSender.
func FromConfig(cfg config.NotifyConfig, logger *slog.Logger) *Router {
	pick := func(ch domain.Channel, url string) Sender {
		if url == "" {
			return NewLogSender(ch, logger)
		}
		client := httpclient.New(httpclient.Config{
			Name:       string(ch) + "-gateway",
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger)
		return NewGatewaySender(ch, url, cfg.APIKey, client)
	}
	return NewRouter(
		pick(domain.ChannelEmail, cfg.EmailGatewayURL),
		pick(domain.ChannelPhone, cfg.SMSGatewayURL),
	)
}
