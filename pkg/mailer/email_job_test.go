package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/vowline/config"
	tpl "github.com/oksasatya/vowline/pkg/mailer/templates"
)

type recordingSender struct {
	to, subject, text, html string
	err                     error
}

func (r *recordingSender) Send(_ context.Context, to, subject, text, html string) error {
	r.to, r.subject, r.text, r.html = to, subject, text, html
	return r.err
}

func TestDeliver_RendersSuiteFailedTemplate(t *testing.T) {
	cfg := &config.Config{AppName: "vowline", CompanyName: "Vowline", DashboardURL: "https://example.test/security"}
	data := tpl.NewSuiteFailedData(cfg, "ops@example.test",
		tpl.WithRun("run-1", "caller-1", 8, 2),
		tpl.WithFailures([]tpl.FailedCheck{
			{Key: "profile_privacy", Name: "Profile Privacy Isolation", Result: "FAILED: 3 private profiles of other members are readable by caller"},
		}),
	)
	s := &recordingSender{}

	err := Deliver(context.Background(), s, EmailJob{To: "ops@example.test", Template: tpl.SuiteFailed, Data: data})

	require.NoError(t, err)
	assert.Equal(t, "ops@example.test", s.to)
	assert.Equal(t, "[Vowline] 2 security check(s) failed", s.subject)
	assert.Contains(t, s.text, "run-1")
	assert.Contains(t, s.text, "Profile Privacy Isolation (profile_privacy)")
	assert.Contains(t, s.html, "https://example.test/security")
}

func TestDeliver_RawBody(t *testing.T) {
	s := &recordingSender{}

	err := Deliver(context.Background(), s, EmailJob{To: "a@example.test", Subject: "hi", Text: "body"})

	require.NoError(t, err)
	assert.Equal(t, "hi", s.subject)
	assert.Equal(t, "body", s.text)
}

func TestDeliver_RejectsEmptyJob(t *testing.T) {
	s := &recordingSender{}

	assert.ErrorIs(t, Deliver(context.Background(), s, EmailJob{Subject: "x", Text: "y"}), ErrEmptyJob)
	assert.ErrorIs(t, Deliver(context.Background(), s, EmailJob{To: "a@example.test"}), ErrEmptyJob)
}

func TestDeliver_UnknownTemplate(t *testing.T) {
	err := Deliver(context.Background(), &recordingSender{}, EmailJob{To: "a@example.test", Template: "nope"})

	assert.ErrorIs(t, err, ErrRender)
}

func TestDeliver_SenderError(t *testing.T) {
	s := &recordingSender{err: errors.New("mailgun down")}

	err := Deliver(context.Background(), s, EmailJob{To: "a@example.test", Subject: "s", HTML: "<p>x</p>"})

	assert.EqualError(t, err, "mailgun down")
}
