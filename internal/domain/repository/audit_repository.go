package repository

import (
	"context"

	"github.com/oksasatya/vowline/internal/domain/entity"
)

// AuditRepository reads and appends rows of audit_logs.
type AuditRepository interface {
	Recent(ctx context.Context, limit int) ([]entity.AuditEvent, error)
	Append(ctx context.Context, e *entity.AuditEvent) error
}
