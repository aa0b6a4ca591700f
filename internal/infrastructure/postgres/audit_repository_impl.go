package postgres

import (
	"context"

	"github.com/oksasatya/vowline/internal/domain/entity"
	"github.com/oksasatya/vowline/internal/domain/repository"
)

type AuditRepository struct {
	pool DBTX
}

func NewAuditRepository(pool DBTX) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Recent returns the newest audit rows first.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]entity.AuditEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(user_id::text, ''), action, severity, COALESCE(ip, ''), metadata, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.AuditEvent, 0, limit)
	for rows.Next() {
		var e entity.AuditEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Severity, &e.IP, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *AuditRepository) Append(ctx context.Context, e *entity.AuditEvent) error {
	if e.Severity == "" {
		e.Severity = entity.SeverityInfo
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, action, severity, ip, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, nullable(e.UserID), e.Action, e.Severity, nullable(e.IP), e.Metadata).Scan(&e.ID, &e.CreatedAt)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
