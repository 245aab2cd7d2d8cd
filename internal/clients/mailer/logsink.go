package mailer

import (
	"context"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/interfaces"
)

// LogSink writes notifications to the log instead of delivering them.
// Used when no SMTP host is configured, so alert evaluation still runs
// end to end in development.
type LogSink struct {
	logger *common.Logger
}

// NewLogSink creates a log-only notification sink.
func NewLogSink(logger *common.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, recipient, subject, body string) error {
	s.logger.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Str("body", body).
		Msg("Notification (log only)")
	return nil
}

var _ interfaces.NotificationSink = (*LogSink)(nil)
