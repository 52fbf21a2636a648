package repository

import (
	"context"
	"time"

	"github.com/rpattn/orgstage/internal/domain"

	"github.com/google/uuid"
)

// MemberRepository defines persistence for directory members.
type MemberRepository interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Member, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Member, error)
	// ListByManager returns the active direct reports of a member; it is the
	// adjacency query the cycle check walks.
	ListByManager(ctx context.Context, managerID string) ([]domain.Member, error)
	Upsert(ctx context.Context, member domain.Member) (created bool, err error)
	UpdateManager(ctx context.Context, id string, managerID *string) error
	UpdateProfile(ctx context.Context, id string, profile domain.ProfilePayload) error
}

// ProfileFieldRepository defines persistence for profile field definitions.
type ProfileFieldRepository interface {
	List(ctx context.Context) ([]domain.ProfileFieldDefinition, error)
	GetByID(ctx context.Context, id string) (domain.ProfileFieldDefinition, error)
	// ListEditableIDs returns the subset of the given field ids that exist
	// and are editable.
	ListEditableIDs(ctx context.Context, ids []string) ([]string, error)
	Upsert(ctx context.Context, field domain.ProfileFieldDefinition) (created bool, err error)
}

// DraftChangeRepository defines persistence for staged mutations. Rows are
// never deleted; status updates are guarded so illegal transitions cannot be
// persisted.
type DraftChangeRepository interface {
	Create(ctx context.Context, change domain.DraftChange) (domain.DraftChange, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.DraftChange, error)
	// ListStaged returns staged changes newest first, for display.
	ListStaged(ctx context.Context) ([]domain.DraftChange, error)
	// ListStagedForApply returns staged changes in apply order: manager
	// reassignments before profile updates, then staging time ascending.
	ListStagedForApply(ctx context.Context) ([]domain.DraftChange, error)
	MarkApplied(ctx context.Context, id uuid.UUID, appliedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
	MarkReverted(ctx context.Context, id uuid.UUID) error
}

// MaxAuditLimit is the hard cap on audit page sizes.
const MaxAuditLimit = 1000

// AuditLogRepository defines the append-only audit trail.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	// List returns entries newest first, annotated with the actor's display
	// name when the actor is a known member. The limit is capped at
	// MaxAuditLimit regardless of the requested value.
	List(ctx context.Context, limit int) ([]domain.AuditLogEntry, error)
}

// LockRepository serializes apply/revert runs per logical resource. Acquire
// fails fast with a conflict when the lock row already exists; there is no
// queuing. The acquired_at timestamp is persisted so a supervisory sweep can
// clear stale rows.
type LockRepository interface {
	Acquire(ctx context.Context, resource, holder string) error
	Release(ctx context.Context, resource string) error
}
