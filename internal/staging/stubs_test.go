package staging

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/rpattn/orgstage/internal/directory"
	"github.com/rpattn/orgstage/internal/domain"
)

func strPtr(s string) *string { return &s }

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

// stubMemberRepo holds members in memory keyed by id.
type stubMemberRepo struct {
	members map[string]domain.Member
}

func newStubMemberRepo(members ...domain.Member) *stubMemberRepo {
	repo := &stubMemberRepo{members: map[string]domain.Member{}}
	for _, m := range members {
		repo.members[m.ID] = m
	}
	return repo
}

func (r *stubMemberRepo) GetByID(_ context.Context, id string) (domain.Member, error) {
	m, ok := r.members[id]
	if !ok {
		return domain.Member{}, domain.NewNotFoundError("member", id)
	}
	return m, nil
}

func (r *stubMemberRepo) GetByIDs(_ context.Context, ids []string) ([]domain.Member, error) {
	var out []domain.Member
	for _, id := range ids {
		if m, ok := r.members[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubMemberRepo) List(_ context.Context, activeOnly bool) ([]domain.Member, error) {
	var out []domain.Member
	for _, m := range r.members {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubMemberRepo) ListByManager(_ context.Context, managerID string) ([]domain.Member, error) {
	var out []domain.Member
	for _, m := range r.members {
		if m.ManagerID != nil && *m.ManagerID == managerID && m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubMemberRepo) Upsert(_ context.Context, member domain.Member) (bool, error) {
	_, exists := r.members[member.ID]
	r.members[member.ID] = member
	return !exists, nil
}

func (r *stubMemberRepo) UpdateManager(_ context.Context, id string, managerID *string) error {
	m, ok := r.members[id]
	if !ok {
		return domain.NewNotFoundError("member", id)
	}
	r.members[id] = m.WithManager(managerID)
	return nil
}

func (r *stubMemberRepo) UpdateProfile(_ context.Context, id string, profile domain.ProfilePayload) error {
	m, ok := r.members[id]
	if !ok {
		return domain.NewNotFoundError("member", id)
	}
	r.members[id] = m.WithProfile(profile)
	return nil
}

// stubFieldRepo holds profile field definitions in memory.
type stubFieldRepo struct {
	fields map[string]domain.ProfileFieldDefinition
}

func newStubFieldRepo(fields ...domain.ProfileFieldDefinition) *stubFieldRepo {
	repo := &stubFieldRepo{fields: map[string]domain.ProfileFieldDefinition{}}
	for _, f := range fields {
		repo.fields[f.ID] = f
	}
	return repo
}

func (r *stubFieldRepo) List(_ context.Context) ([]domain.ProfileFieldDefinition, error) {
	var out []domain.ProfileFieldDefinition
	for _, f := range r.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubFieldRepo) GetByID(_ context.Context, id string) (domain.ProfileFieldDefinition, error) {
	f, ok := r.fields[id]
	if !ok {
		return domain.ProfileFieldDefinition{}, domain.NewNotFoundError("profile field", id)
	}
	return f, nil
}

func (r *stubFieldRepo) ListEditableIDs(_ context.Context, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		if f, ok := r.fields[id]; ok && f.Editable {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *stubFieldRepo) Upsert(_ context.Context, field domain.ProfileFieldDefinition) (bool, error) {
	_, exists := r.fields[field.ID]
	r.fields[field.ID] = field
	return !exists, nil
}

// stubChangeRepo mimics the status-guarded draft change table.
type stubChangeRepo struct {
	changes map[uuid.UUID]domain.DraftChange
	order   []uuid.UUID
}

func newStubChangeRepo() *stubChangeRepo {
	return &stubChangeRepo{changes: map[uuid.UUID]domain.DraftChange{}}
}

func (r *stubChangeRepo) Create(_ context.Context, change domain.DraftChange) (domain.DraftChange, error) {
	r.changes[change.ID] = change
	r.order = append(r.order, change.ID)
	return change, nil
}

func (r *stubChangeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.DraftChange, error) {
	c, ok := r.changes[id]
	if !ok {
		return domain.DraftChange{}, domain.NewNotFoundError("draft change", id.String())
	}
	return c, nil
}

func (r *stubChangeRepo) ListStaged(_ context.Context) ([]domain.DraftChange, error) {
	var out []domain.DraftChange
	for i := len(r.order) - 1; i >= 0; i-- {
		if c := r.changes[r.order[i]]; c.Status == domain.ChangeStatusStaged {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubChangeRepo) ListStagedForApply(_ context.Context) ([]domain.DraftChange, error) {
	var out []domain.DraftChange
	for _, id := range r.order {
		if c := r.changes[id]; c.Status == domain.ChangeStatusStaged {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *stubChangeRepo) MarkApplied(_ context.Context, id uuid.UUID, appliedAt time.Time) error {
	c, ok := r.changes[id]
	if !ok || c.Status != domain.ChangeStatusStaged {
		return domain.NewNotFoundError("staged change", id.String())
	}
	c.Status = domain.ChangeStatusApplied
	c.AppliedAt = &appliedAt
	c.ErrorMessage = nil
	r.changes[id] = c
	return nil
}

func (r *stubChangeRepo) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string) error {
	c, ok := r.changes[id]
	if !ok || c.Status != domain.ChangeStatusStaged {
		return domain.NewNotFoundError("staged change", id.String())
	}
	c.Status = domain.ChangeStatusFailed
	c.ErrorMessage = &errorMessage
	r.changes[id] = c
	return nil
}

func (r *stubChangeRepo) MarkReverted(_ context.Context, id uuid.UUID) error {
	c, ok := r.changes[id]
	if !ok || c.Status != domain.ChangeStatusApplied {
		return domain.NewNotFoundError("applied change", id.String())
	}
	c.Status = domain.ChangeStatusReverted
	r.changes[id] = c
	return nil
}

// stubAuditRepo records appended entries and the last requested list limit.
type stubAuditRepo struct {
	entries   []domain.AuditLogEntry
	lastLimit int
}

func (r *stubAuditRepo) Append(_ context.Context, entry domain.AuditLogEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, limit int) ([]domain.AuditLogEntry, error) {
	r.lastLimit = limit
	out := make([]domain.AuditLogEntry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

// stubLockRepo mimics the insert-or-fail lock table.
type stubLockRepo struct {
	mu       sync.Mutex
	held     map[string]string
	acquires int
	releases int
}

func newStubLockRepo() *stubLockRepo {
	return &stubLockRepo{held: map[string]string{}}
}

func (r *stubLockRepo) Acquire(_ context.Context, resource, holder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[resource]; ok {
		return domain.NewConflictError("resource " + resource + " is locked by another operation, retry shortly")
	}
	r.held[resource] = holder
	r.acquires++
	return nil
}

func (r *stubLockRepo) Release(_ context.Context, resource string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, resource)
	r.releases++
	return nil
}

// directoryCall records one outbound write for assertions on ordering.
type directoryCall struct {
	op        string
	memberID  string
	managerID *string
	fields    map[string]domain.FieldValue
}

// stubDirectory is a scriptable directory client: failures are keyed by
// member id.
type stubDirectory struct {
	calls       []directoryCall
	failManager map[string]error
	failProfile map[string]error
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		failManager: map[string]error{},
		failProfile: map[string]error{},
	}
}

func (d *stubDirectory) SetManager(_ context.Context, memberID string, managerID *string) error {
	if err := d.failManager[memberID]; err != nil {
		return err
	}
	d.calls = append(d.calls, directoryCall{op: "set_manager", memberID: memberID, managerID: managerID})
	return nil
}

func (d *stubDirectory) SetProfileFields(_ context.Context, memberID string, fields map[string]domain.FieldValue) error {
	if err := d.failProfile[memberID]; err != nil {
		return err
	}
	d.calls = append(d.calls, directoryCall{op: "set_profile", memberID: memberID, fields: fields})
	return nil
}

func (d *stubDirectory) ListMembers(_ context.Context) ([]domain.Member, error) {
	return nil, nil
}

func (d *stubDirectory) ListProfileFields(_ context.Context) ([]domain.ProfileFieldDefinition, error) {
	return nil, nil
}

func (d *stubDirectory) WithToken(string) directory.Client { return d }

// stubInvalidator records dropped cache keys.
type stubInvalidator struct {
	dropped []string
}

func (s *stubInvalidator) Del(_ context.Context, keys ...string) {
	s.dropped = append(s.dropped, keys...)
}
