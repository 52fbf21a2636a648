package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/orgstage/internal/domain"
)

// auditLogRepository implements AuditLogRepository over Postgres.
type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, details)
		VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.ActorID, string(entry.Action), []byte(entry.Details))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 || limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT al.id, al.actor_id, COALESCE(m.name, ''), al.action, al.details, al.created_at
		FROM audit_logs al
		LEFT JOIN members m ON al.actor_id = m.id
		ORDER BY al.created_at DESC, al.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditLogEntry{}
	for rows.Next() {
		var (
			entry   domain.AuditLogEntry
			action  string
			details []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorName,
			&action, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Action = domain.AuditAction(action)
		entry.Details = details
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit rows: %w", err)
	}
	return entries, nil
}
