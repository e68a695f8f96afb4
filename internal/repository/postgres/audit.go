package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"moneypro/internal/domain"
	"moneypro/pkg/errors"
)

// AuditRepository implements audit log persistence.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, user_id, action, resource_id, ip_address, user_agent, status_code, request_id, created_at
		) VALUES (
			:id, :user_id, :action, :resource_id, :ip_address, :user_agent, :status_code, :request_id, :created_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return errors.Wrap(err, "failed to create audit log")
}
