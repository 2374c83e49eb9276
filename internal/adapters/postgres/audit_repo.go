package postgres

import (
	"context"

	"github.com/anderzubi/orthopin/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository with pgx.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert appends an audit entry.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO audit_log (actor, action, subject, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING id, time
	`, e.Actor, e.Action, e.Subject, e.Detail).Scan(&e.ID, &e.Time)
}

// ListRecent returns the newest entries first.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, time, actor, action, subject, COALESCE(detail, '{}')
		FROM audit_log ORDER BY time DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Time, &e.Actor, &e.Action, &e.Subject, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
