package entity

import "time"

// Event severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AuditEvent is a row of audit_logs shown on the security dashboard.
type AuditEvent struct {
	ID        string
	UserID    string
	Action    string
	Severity  string
	IP        string
	Metadata  map[string]any
	CreatedAt time.Time
}

// SupplierView records a member viewing a supplier listing.
type SupplierView struct {
	ID         string
	SupplierID string
	ViewerID   string
	CreatedAt  time.Time
}
