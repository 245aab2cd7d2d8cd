// Package mailer delivers alert notifications over SMTP.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"

	"github.com/mharuka/kabuban/internal/common"
	"github.com/mharuka/kabuban/internal/interfaces"
)

// Client sends notification emails through an SMTP relay. Sends are rate
// limited so a burst of triggered alerts cannot flood the relay.
type Client struct {
	smtp    *mail.Client
	from    string
	logger  *common.Logger
	limiter *rate.Limiter
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-send timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRateLimit sets the messages-per-second send limit.
func WithRateLimit(perSecond int) ClientOption {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// NewClient creates an SMTP notification client from config.
func NewClient(cfg common.NotifyConfig, opts ...ClientOption) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	mailOpts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.GetTimeout()),
	}
	if cfg.Username != "" {
		mailOpts = append(mailOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	smtp, err := mail.NewClient(cfg.Host, mailOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	c := &Client{
		smtp:    smtp,
		from:    cfg.From,
		logger:  common.NewSilentLogger(),
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		timeout: cfg.GetTimeout(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Send delivers one message to recipient. Blocks on the rate limiter,
// honoring ctx cancellation.
func (c *Client) Send(ctx context.Context, recipient, subject, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.smtp.DialAndSendWithContext(sendCtx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	c.logger.Debug().
		Str("recipient", recipient).
		Str("subject", subject).
		Msg("Notification sent")

	return nil
}

var _ interfaces.NotificationSink = (*Client)(nil)
