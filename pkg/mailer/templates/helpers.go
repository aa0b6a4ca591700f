package templates

import (
	"time"

	"github.com/oksasatya/vowline/config"
)

// Option pattern
type Option func(*EmailData)

func WithName(name string) Option { return func(d *EmailData) { d.Name = name } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}
func WithRun(runID, callerID string, passed, failed int) Option {
	return func(d *EmailData) {
		d.RunID = runID
		d.CallerID = callerID
		d.Passed = passed
		d.Failed = failed
	}
}
func WithFailures(f []FailedCheck) Option {
	return func(d *EmailData) { d.Failures = f }
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, recipient string, opts ...Option) EmailData {
	d := EmailData{
		RecipientEmail: recipient,
		Type:           typ,

		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,

		DashboardURL: cfg.DashboardURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewSuiteFailedData(cfg *config.Config, recipient string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, SuiteFailed, recipient, opts...)
	return ToMap(d)
}
