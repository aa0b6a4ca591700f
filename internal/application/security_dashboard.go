package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/vowline/internal/domain/entity"
	repo "github.com/oksasatya/vowline/internal/domain/repository"
	"github.com/oksasatya/vowline/pkg/helpers"
)

const recentEventsLimit = 10

// BadgeVariant is the visual style a metric score is rendered with.
type BadgeVariant string

const (
	BadgeDestructive BadgeVariant = "destructive"
	BadgeSecondary   BadgeVariant = "secondary"
	BadgeDefault     BadgeVariant = "default"
)

// BadgeFor maps a percentage score to its badge variant.
func BadgeFor(score int) BadgeVariant {
	switch {
	case score < 70:
		return BadgeDestructive
	case score < 90:
		return BadgeSecondary
	default:
		return BadgeDefault
	}
}

type Metric struct {
	Name        string       `json:"name"`
	Score       int          `json:"score"`
	Description string       `json:"description"`
	Badge       BadgeVariant `json:"badge"`
}

type DashboardView struct {
	Metrics []Metric            `json:"metrics"`
	Events  []entity.AuditEvent `json:"events"`
	// SampleEvents is set when the events query failed and the
	// hard-coded sample is shown instead.
	SampleEvents bool `json:"sample_events"`
}

// demoMetrics are fixed; they are not computed from live data.
var demoMetrics = []Metric{
	{Name: "Overall Security Score", Score: 94, Description: "Weighted score across all areas"},
	{Name: "RLS Policy Coverage", Score: 98, Description: "Tables with row-level security enabled"},
	{Name: "Authentication Strength", Score: 92, Description: "Password hashing and session hardening"},
	{Name: "Data Encryption", Score: 96, Description: "Encryption at rest and in transit"},
	{Name: "Access Control", Score: 89, Description: "Role and ownership checks on reads"},
	{Name: "Audit Coverage", Score: 85, Description: "Sensitive actions recorded in audit logs"},
}

type Dashboard struct {
	audit  repo.AuditRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewDashboard(audit repo.AuditRepository, logger *logrus.Logger) *Dashboard {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &Dashboard{audit: audit, logger: logger, now: time.Now}
}

func (d *Dashboard) Metrics() []Metric {
	out := make([]Metric, len(demoMetrics))
	for i, m := range demoMetrics {
		m.Badge = BadgeFor(m.Score)
		out[i] = m
	}
	return out
}

// View returns the metrics and the most recent audit events. A failing
// events query degrades to sample events rather than an error.
func (d *Dashboard) View(ctx context.Context) DashboardView {
	v := DashboardView{Metrics: d.Metrics()}
	events, err := d.audit.Recent(ctx, recentEventsLimit)
	if err != nil {
		d.logger.WithError(err).Warn("recent audit events unavailable, showing sample")
		v.Events = d.sampleEvents()
		v.SampleEvents = true
		return v
	}
	v.Events = events
	return v
}

func (d *Dashboard) sampleEvents() []entity.AuditEvent {
	now := d.now()
	return []entity.AuditEvent{
		{ID: "sample-1", Action: "login_success", Severity: entity.SeverityInfo, IP: "203.0.113.10", CreatedAt: now.Add(-5 * time.Minute)},
		{ID: "sample-2", Action: "rls_policy_violation", Severity: entity.SeverityWarning, IP: "198.51.100.7", CreatedAt: now.Add(-20 * time.Minute)},
		{ID: "sample-3", Action: "rate_limit_exceeded", Severity: entity.SeverityWarning, IP: "192.0.2.44", CreatedAt: now.Add(-45 * time.Minute)},
		{ID: "sample-4", Action: "admin_access", Severity: entity.SeverityCritical, IP: "203.0.113.99", CreatedAt: now.Add(-2 * time.Hour)},
	}
}
