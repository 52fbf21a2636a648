// Package staging implements the change staging, integrity-checking, and
// application engine: staged mutations are validated and persisted as draft
// changes, applied in order against the external directory with per-change
// failure isolation, and individually revertible from their before snapshots.
package staging

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/orgstage/internal/cache"
	"github.com/rpattn/orgstage/internal/directory"
	"github.com/rpattn/orgstage/internal/domain"
	"github.com/rpattn/orgstage/internal/repository"
)

// Service is the staging engine. Staging operations run without the resource
// lock: concurrent actors may stage freely, and the before snapshot is read
// from live state at staging time. Apply and revert serialize on the "org"
// lock.
type Service struct {
	members   repository.MemberRepository
	fields    repository.ProfileFieldRepository
	changes   repository.DraftChangeRepository
	audit     repository.AuditLogRepository
	locks     repository.LockRepository
	directory directory.Client
	cache     cache.Invalidator
	log       *logrus.Logger
	now       func() time.Time
}

// NewService creates the staging engine.
func NewService(
	members repository.MemberRepository,
	fields repository.ProfileFieldRepository,
	changes repository.DraftChangeRepository,
	audit repository.AuditLogRepository,
	locks repository.LockRepository,
	directoryClient directory.Client,
	invalidator cache.Invalidator,
	log *logrus.Logger,
) *Service {
	return &Service{
		members:   members,
		fields:    fields,
		changes:   changes,
		audit:     audit,
		locks:     locks,
		directory: directoryClient,
		cache:     invalidator,
		log:       log,
		now:       time.Now,
	}
}

// StageManagerReassignment validates and persists a manager change. The
// target and the proposed manager must exist and be active, and the edit must
// not create a reporting cycle. The check runs against live member state, not
// pending staged changes: two staged edits that only cycle once combined are
// both accepted, which is a documented limitation of this design.
func (s *Service) StageManagerReassignment(ctx context.Context, actorID, memberID string, oldManagerID, newManagerID *string) (uuid.UUID, error) {
	if actorID == "" {
		return uuid.Nil, domain.NewValidationError("actor id is required")
	}
	if memberID == "" {
		return uuid.Nil, domain.NewValidationError("member id is required")
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return uuid.Nil, err
	}
	if !member.Active {
		return uuid.Nil, domain.NewNotFoundError("member", memberID)
	}

	if newManagerID != nil {
		manager, err := s.members.GetByID(ctx, *newManagerID)
		if err != nil {
			return uuid.Nil, err
		}
		if !manager.Active {
			return uuid.Nil, domain.NewNotFoundError("member", *newManagerID)
		}
		cycle, err := s.WouldCreateCycle(ctx, memberID, newManagerID)
		if err != nil {
			return uuid.Nil, err
		}
		if cycle {
			return uuid.Nil, domain.NewConflictError("change would create a cycle in the reporting tree")
		}
	}

	change, err := domain.NewManagerReassignment(actorID, memberID, oldManagerID, newManagerID)
	if err != nil {
		return uuid.Nil, err
	}
	created, err := s.changes.Create(ctx, change)
	if err != nil {
		return uuid.Nil, err
	}

	s.cache.Del(ctx, cache.DraftChangesKey(actorID))
	s.log.WithFields(logrus.Fields{
		"change_id": created.ID,
		"actor":     actorID,
		"member":    memberID,
	}).Info("staged manager reassignment")
	return created.ID, nil
}

// StageProfileUpdate validates and persists a profile change. Every touched
// field must name an editable profile field definition; the before snapshot
// captures the member's current value of exactly the touched fields.
func (s *Service) StageProfileUpdate(ctx context.Context, actorID, memberID string, fields map[string]domain.FieldValue) (uuid.UUID, error) {
	if actorID == "" {
		return uuid.Nil, domain.NewValidationError("actor id is required")
	}
	if memberID == "" {
		return uuid.Nil, domain.NewValidationError("member id is required")
	}
	if len(fields) == 0 {
		return uuid.Nil, domain.NewValidationError("at least one field is required")
	}

	fieldIDs := make([]string, 0, len(fields))
	for id := range fields {
		fieldIDs = append(fieldIDs, id)
	}
	sort.Strings(fieldIDs)

	editable, err := s.fields.ListEditableIDs(ctx, fieldIDs)
	if err != nil {
		return uuid.Nil, err
	}
	editableSet := make(map[string]struct{}, len(editable))
	for _, id := range editable {
		editableSet[id] = struct{}{}
	}
	var offenders []string
	for _, id := range fieldIDs {
		if _, ok := editableSet[id]; !ok {
			offenders = append(offenders, id)
		}
	}
	if len(offenders) > 0 {
		return uuid.Nil, domain.NewValidationError("fields are not editable", offenders...)
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return uuid.Nil, err
	}

	before := make(map[string]domain.FieldValue, len(fields))
	for id := range fields {
		before[id] = member.FieldValueOrEmpty(id)
	}

	change, err := domain.NewProfileUpdate(actorID, memberID, before, fields)
	if err != nil {
		return uuid.Nil, err
	}
	created, err := s.changes.Create(ctx, change)
	if err != nil {
		return uuid.Nil, err
	}

	s.cache.Del(ctx, cache.DraftChangesKey(actorID))
	s.log.WithFields(logrus.Fields{
		"change_id": created.ID,
		"actor":     actorID,
		"member":    memberID,
		"fields":    len(fields),
	}).Info("staged profile update")
	return created.ID, nil
}

// ListStaged returns all staged changes, most recent first.
func (s *Service) ListStaged(ctx context.Context) ([]domain.DraftChange, error) {
	return s.changes.ListStaged(ctx)
}

// ListAudit returns the newest audit entries, capped regardless of the
// requested limit.
func (s *Service) ListAudit(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > repository.MaxAuditLimit {
		limit = repository.MaxAuditLimit
	}
	return s.audit.List(ctx, limit)
}
