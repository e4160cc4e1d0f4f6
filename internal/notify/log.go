package notify

import (
	"context"
	"log/slog"

	"github.com/agromart/marketplace/internal/domain"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	channel domain.Channel
	logger  *slog.Logger
}

func NewLogSender(channel domain.Channel, logger *slog.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

func (s *LogSender) Name() string {
	return "log-" + string(s.channel)
}

func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.logger.InfoContext(ctx, "notification not delivered, no gateway configured",
		slog.String("channel", string(msg.Channel)),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
