package channels

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"

	"github.com/mrz1836/postmark"

	"github.com/mentorhub/pulse/pkg/notifications"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailConfig holds Postmark settings for the email adapter.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}

// postmarkSender covers the single Postmark call the adapter makes,
// kept narrow so tests can stub it.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// EmailAdapter sends notifications as transactional email through
// Postmark. Opens and HTML link clicks are tracked; plain text links
// are left alone.
type EmailAdapter struct {
	client postmarkSender
	config EmailConfig
}

// NewEmailAdapter creates a Postmark-backed email adapter.
func NewEmailAdapter(cfg EmailConfig) (*EmailAdapter, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}

	return &EmailAdapter{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

func (a *EmailAdapter) Channel() notifications.Channel {
	return notifications.ChannelEmail
}

func (a *EmailAdapter) Deliver(ctx context.Context, notif notifications.Notification, rcpt Recipient) error {
	if rcpt.Email == "" {
		return fmt.Errorf("%w: no email for user %s", ErrMissingContact, rcpt.UserID)
	}

	resp, err := a.client.SendEmail(ctx, postmark.Email{
		From:       a.config.SenderEmail,
		ReplyTo:    a.config.SupportEmail,
		To:         rcpt.Email,
		Subject:    notif.Title,
		Tag:        string(notif.Category),
		HTMLBody:   renderEmailBody(notif),
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrDeliveryFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}

func renderEmailBody(notif notifications.Notification) string {
	return fmt.Sprintf("<h2>%s</h2><p>%s</p>",
		html.EscapeString(notif.Title),
		html.EscapeString(notif.Body))
}
