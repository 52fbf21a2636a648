package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/orgstage/internal/domain"
)

// profileFieldRepository implements ProfileFieldRepository over Postgres.
type profileFieldRepository struct {
	pool *pgxpool.Pool
}

// NewProfileFieldRepository creates a new profile field repository.
func NewProfileFieldRepository(pool *pgxpool.Pool) ProfileFieldRepository {
	return &profileFieldRepository{pool: pool}
}

const profileFieldColumns = `id, label, hint, type, editable, raw, created_at, updated_at`

func (r *profileFieldRepository) List(ctx context.Context) ([]domain.ProfileFieldDefinition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileFieldColumns+` FROM profile_fields ORDER BY label, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile fields: %w", err)
	}
	defer rows.Close()

	fields := []domain.ProfileFieldDefinition{}
	for rows.Next() {
		field, err := scanProfileField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile field: %w", err)
		}
		fields = append(fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profile field rows: %w", err)
	}
	return fields, nil
}

func (r *profileFieldRepository) GetByID(ctx context.Context, id string) (domain.ProfileFieldDefinition, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+profileFieldColumns+` FROM profile_fields WHERE id = $1`, id)
	field, err := scanProfileField(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProfileFieldDefinition{}, domain.NewNotFoundError("profile field", id)
		}
		return domain.ProfileFieldDefinition{}, fmt.Errorf("failed to get profile field: %w", err)
	}
	return field, nil
}

func (r *profileFieldRepository) ListEditableIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM profile_fields WHERE id = ANY($1) AND editable = true`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list editable fields: %w", err)
	}
	defer rows.Close()

	editable := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan editable field id: %w", err)
		}
		editable = append(editable, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read editable field rows: %w", err)
	}
	return editable, nil
}

func (r *profileFieldRepository) Upsert(ctx context.Context, field domain.ProfileFieldDefinition) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO profile_fields (id, label, hint, type, editable, raw)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			hint = EXCLUDED.hint,
			type = EXCLUDED.type,
			editable = EXCLUDED.editable,
			raw = EXCLUDED.raw,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`, field.ID, field.Label, field.Hint, string(field.Type), field.Editable, []byte(field.Raw)).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert profile field: %w", err)
	}
	return created, nil
}

func scanProfileField(row pgx.Row) (domain.ProfileFieldDefinition, error) {
	var (
		field domain.ProfileFieldDefinition
		kind  string
		raw   []byte
	)
	err := row.Scan(&field.ID, &field.Label, &field.Hint, &kind, &field.Editable,
		&raw, &field.CreatedAt, &field.UpdatedAt)
	if err != nil {
		return domain.ProfileFieldDefinition{}, err
	}
	field.Type = domain.FieldType(kind)
	field.Raw = raw
	return field, nil
}
