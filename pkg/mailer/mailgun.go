package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const defaultSendTimeout = 10 * time.Second

// Mailgun sends rendered messages through one Mailgun domain.
type Mailgun struct {
	client  *mg.MailgunImpl
	sender  string
	tag     string
	timeout time.Duration
}

type MailgunOption func(*Mailgun)

// WithAPIBase points the client at another region, e.g. mg.APIBaseEU.
func WithAPIBase(url string) MailgunOption {
	return func(m *Mailgun) {
		if url != "" {
			m.client.SetAPIBase(url)
		}
	}
}

// WithTag tags every message, for filtering in Mailgun analytics.
func WithTag(tag string) MailgunOption {
	return func(m *Mailgun) { m.tag = tag }
}

func NewMailgun(domain, apiKey, sender string, opts ...MailgunOption) *Mailgun {
	m := &Mailgun{client: mg.NewMailgun(domain, apiKey), sender: sender, timeout: defaultSendTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send sends one message. html is optional.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	if m.tag != "" {
		_ = msg.AddTag(m.tag)
	}
	c, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}

var _ Sender = (*Mailgun)(nil)
