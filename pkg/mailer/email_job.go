package mailer

import (
	"context"
	"errors"
	"fmt"

	tpl "github.com/oksasatya/vowline/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (with Data) or Subject plus Text/HTML is set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "suite_failed"
	Data     map[string]any `json:"data,omitempty"`
}

var (
	ErrEmptyJob = errors.New("email job has no recipient or body")
	ErrRender   = errors.New("render email template")
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Deliver renders job when it names a template and hands it to s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return ErrEmptyJob
	}
	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = tpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w %s: %v", ErrRender, job.Template, err)
		}
	}
	if subject == "" || (text == "" && html == "") {
		return ErrEmptyJob
	}
	return s.Send(ctx, job.To, subject, text, html)
}
