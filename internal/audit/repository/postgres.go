package repository

import (
	"context"
	"database/sql"

	"session-control-plane/internal/audit/domain"
)

type PostgresRepository struct {
	pool *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(pool *sql.DB) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists the audit entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	_, err := r.pool.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, reason, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.Action,
		nullIfEmpty(entry.Reason), nullIfEmpty(entry.Metadata), entry.CreatedAt)
	return err
}

// ListByUser returns the user's most recent audit entries, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.QueryContext(ctx,
		`SELECT id, user_id, action, reason, metadata, created_at FROM audit_logs
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*domain.AuditLog
	for rows.Next() {
		var (
			e        domain.AuditLog
			reason   sql.NullString
			metadata sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &reason, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Reason = reason.String
		e.Metadata = metadata.String
		list = append(list, &e)
	}
	return list, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
