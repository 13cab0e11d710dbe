package mail

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"

	"evently/internal/config"
)

// Message is what the delivery layer hands to the provider: a rendered
// subject plus html and plain-text bodies for one recipient.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender is the external transactional-email collaborator. Send returns the
// provider message id on success; failures are best-effort and never affect
// the stored notification.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type MailgunSender struct {
	mg     *mailgun.MailgunImpl
	from   string
	logger *zap.Logger
}

// NewMailgunSender returns nil when the provider is not configured; the
// delivery layer treats a nil sender as "email channel off".
func NewMailgunSender(cfg *config.Config, logger *zap.Logger) *MailgunSender {
	if !cfg.Mailgun.Enabled || cfg.Mailgun.Domain == "" || cfg.Mailgun.APIKey == "" {
		return nil
	}

	return &MailgunSender{
		mg:     mailgun.NewMailgun(cfg.Mailgun.Domain, cfg.Mailgun.APIKey),
		from:   fmt.Sprintf("%s <%s>", cfg.Mailgun.FromName, cfg.Mailgun.FromEmail),
		logger: logger,
	}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) (string, error) {
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}

	m := s.mg.NewMessage(s.from, msg.Subject, msg.TextBody, to)
	m.SetHtml(msg.HTMLBody)

	_, id, err := s.mg.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun send failed: %w", err)
	}

	s.logger.Debug("email dispatched",
		zap.String("to", msg.To),
		zap.String("message_id", id))
	return id, nil
}
