package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/orgstage/internal/domain"
)

// memberRepository implements MemberRepository over Postgres.
type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new member repository.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

const memberColumns = `id, email, name, title, manager_id, active, avatar_url, profile, synced_at, created_at, updated_at`

func (r *memberRepository) GetByID(ctx context.Context, id string) (domain.Member, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Member{}, domain.NewNotFoundError("member", id)
		}
		return domain.Member{}, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func (r *memberRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Member, error) {
	if len(ids) == 0 {
		return []domain.Member{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get members by ids: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) List(ctx context.Context, activeOnly bool) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY name, id`
	if activeOnly {
		query = `SELECT ` + memberColumns + ` FROM members WHERE active = true ORDER BY name, id`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) ListByManager(ctx context.Context, managerID string) ([]domain.Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE manager_id = $1 AND active = true`, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members by manager: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) Upsert(ctx context.Context, member domain.Member) (bool, error) {
	profileJSON, err := member.Profile.MarshalJSONB()
	if err != nil {
		return false, fmt.Errorf("failed to marshal profile payload: %w", err)
	}

	var created bool
	err = r.pool.QueryRow(ctx, `
		INSERT INTO members (id, email, name, title, manager_id, active, avatar_url, profile, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			manager_id = EXCLUDED.manager_id,
			active = EXCLUDED.active,
			avatar_url = EXCLUDED.avatar_url,
			profile = EXCLUDED.profile,
			synced_at = NOW(),
			updated_at = NOW()
		RETURNING (xmax = 0)
	`, member.ID, member.Email, member.Name, member.Title, member.ManagerID,
		member.Active, member.AvatarURL, profileJSON).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert member: %w", err)
	}
	return created, nil
}

func (r *memberRepository) UpdateManager(ctx context.Context, id string, managerID *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET manager_id = $1, updated_at = NOW() WHERE id = $2`, managerID, id)
	if err != nil {
		return fmt.Errorf("failed to update member manager: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("member", id)
	}
	return nil
}

func (r *memberRepository) UpdateProfile(ctx context.Context, id string, profile domain.ProfilePayload) error {
	profileJSON, err := profile.MarshalJSONB()
	if err != nil {
		return fmt.Errorf("failed to marshal profile payload: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET profile = $1, updated_at = NOW() WHERE id = $2`, profileJSON, id)
	if err != nil {
		return fmt.Errorf("failed to update member profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("member", id)
	}
	return nil
}

func scanMember(row pgx.Row) (domain.Member, error) {
	var (
		member      domain.Member
		profileJSON []byte
	)
	err := row.Scan(
		&member.ID, &member.Email, &member.Name, &member.Title, &member.ManagerID,
		&member.Active, &member.AvatarURL, &profileJSON,
		&member.SyncedAt, &member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		return domain.Member{}, err
	}
	member.Profile, err = domain.ProfilePayloadFromJSONB(json.RawMessage(profileJSON))
	if err != nil {
		return domain.Member{}, fmt.Errorf("failed to decode profile payload: %w", err)
	}
	return member, nil
}

func scanMembers(rows pgx.Rows) ([]domain.Member, error) {
	members := []domain.Member{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read member rows: %w", err)
	}
	return members, nil
}
