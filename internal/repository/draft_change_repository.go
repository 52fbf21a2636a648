package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/orgstage/internal/domain"
)

// draftChangeRepository implements DraftChangeRepository over Postgres.
type draftChangeRepository struct {
	pool *pgxpool.Pool
}

// NewDraftChangeRepository creates a new draft change repository.
func NewDraftChangeRepository(pool *pgxpool.Pool) DraftChangeRepository {
	return &draftChangeRepository{pool: pool}
}

const draftChangeColumns = `id, actor_id, member_id, kind, payload_before, payload_after, status, created_at, applied_at, error_message`

func (r *draftChangeRepository) Create(ctx context.Context, change domain.DraftChange) (domain.DraftChange, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO draft_changes (id, actor_id, member_id, kind, payload_before, payload_after, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+draftChangeColumns,
		change.ID, change.ActorID, change.MemberID, string(change.Kind),
		[]byte(change.Before), []byte(change.After), string(change.Status))
	created, err := scanDraftChange(row)
	if err != nil {
		return domain.DraftChange{}, fmt.Errorf("failed to create draft change: %w", err)
	}
	return created, nil
}

func (r *draftChangeRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.DraftChange, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+draftChangeColumns+` FROM draft_changes WHERE id = $1`, id)
	change, err := scanDraftChange(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DraftChange{}, domain.NewNotFoundError("change", id.String())
		}
		return domain.DraftChange{}, fmt.Errorf("failed to get draft change: %w", err)
	}
	return change, nil
}

func (r *draftChangeRepository) ListStaged(ctx context.Context) ([]domain.DraftChange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+draftChangeColumns+`
		FROM draft_changes
		WHERE status = 'staged'
		ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged changes: %w", err)
	}
	defer rows.Close()
	return scanDraftChanges(rows)
}

func (r *draftChangeRepository) ListStagedForApply(ctx context.Context) ([]domain.DraftChange, error) {
	// 'manager' sorts before 'profile', which is exactly the apply ordering
	// the engine requires; seq breaks created_at ties in insertion order.
	rows, err := r.pool.Query(ctx, `
		SELECT `+draftChangeColumns+`
		FROM draft_changes
		WHERE status = 'staged'
		ORDER BY kind, seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged changes for apply: %w", err)
	}
	defer rows.Close()
	return scanDraftChanges(rows)
}

func (r *draftChangeRepository) MarkApplied(ctx context.Context, id uuid.UUID, appliedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE draft_changes
		SET status = 'applied', applied_at = $1, error_message = NULL
		WHERE id = $2 AND status = 'staged'`, appliedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark change applied: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("staged change", id.String())
	}
	return nil
}

func (r *draftChangeRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE draft_changes
		SET status = 'failed', error_message = $1
		WHERE id = $2 AND status = 'staged'`, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark change failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("staged change", id.String())
	}
	return nil
}

func (r *draftChangeRepository) MarkReverted(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE draft_changes
		SET status = 'reverted'
		WHERE id = $1 AND status = 'applied'`, id)
	if err != nil {
		return fmt.Errorf("failed to mark change reverted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("applied change", id.String())
	}
	return nil
}

func scanDraftChange(row pgx.Row) (domain.DraftChange, error) {
	var (
		change       domain.DraftChange
		kind, status string
		before       []byte
		after        []byte
	)
	err := row.Scan(&change.ID, &change.ActorID, &change.MemberID, &kind,
		&before, &after, &status, &change.CreatedAt, &change.AppliedAt, &change.ErrorMessage)
	if err != nil {
		return domain.DraftChange{}, err
	}
	change.Kind = domain.ChangeKind(kind)
	change.Status = domain.ChangeStatus(status)
	change.Before = before
	change.After = after
	return change, nil
}

func scanDraftChanges(rows pgx.Rows) ([]domain.DraftChange, error) {
	changes := []domain.DraftChange{}
	for rows.Next() {
		change, err := scanDraftChange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft change: %w", err)
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read draft change rows: %w", err)
	}
	return changes, nil
}
