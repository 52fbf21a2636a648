package directorysync

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/rpattn/orgstage/internal/cache"
	"github.com/rpattn/orgstage/internal/directory"
	"github.com/rpattn/orgstage/internal/domain"
)

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

type stubMemberRepo struct {
	members map[string]domain.Member
}

func (r *stubMemberRepo) GetByID(_ context.Context, id string) (domain.Member, error) {
	m, ok := r.members[id]
	if !ok {
		return domain.Member{}, domain.NewNotFoundError("member", id)
	}
	return m, nil
}

func (r *stubMemberRepo) GetByIDs(_ context.Context, ids []string) ([]domain.Member, error) {
	return nil, nil
}

func (r *stubMemberRepo) List(_ context.Context, _ bool) ([]domain.Member, error) {
	return nil, nil
}

func (r *stubMemberRepo) ListByManager(_ context.Context, _ string) ([]domain.Member, error) {
	return nil, nil
}

func (r *stubMemberRepo) Upsert(_ context.Context, member domain.Member) (bool, error) {
	_, exists := r.members[member.ID]
	r.members[member.ID] = member
	return !exists, nil
}

func (r *stubMemberRepo) UpdateManager(_ context.Context, _ string, _ *string) error { return nil }

func (r *stubMemberRepo) UpdateProfile(_ context.Context, _ string, _ domain.ProfilePayload) error {
	return nil
}

type stubFieldRepo struct {
	fields map[string]domain.ProfileFieldDefinition
}

func (r *stubFieldRepo) List(_ context.Context) ([]domain.ProfileFieldDefinition, error) {
	return nil, nil
}

func (r *stubFieldRepo) GetByID(_ context.Context, id string) (domain.ProfileFieldDefinition, error) {
	return domain.ProfileFieldDefinition{}, domain.NewNotFoundError("profile field", id)
}

func (r *stubFieldRepo) ListEditableIDs(_ context.Context, _ []string) ([]string, error) {
	return nil, nil
}

func (r *stubFieldRepo) Upsert(_ context.Context, field domain.ProfileFieldDefinition) (bool, error) {
	_, exists := r.fields[field.ID]
	r.fields[field.ID] = field
	return !exists, nil
}

type stubDirectory struct {
	members []domain.Member
	fields  []domain.ProfileFieldDefinition
	err     error
	token   string
}

func (d *stubDirectory) SetManager(_ context.Context, _ string, _ *string) error { return nil }

func (d *stubDirectory) SetProfileFields(_ context.Context, _ string, _ map[string]domain.FieldValue) error {
	return nil
}

func (d *stubDirectory) ListMembers(_ context.Context) ([]domain.Member, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.members, nil
}

func (d *stubDirectory) ListProfileFields(_ context.Context) ([]domain.ProfileFieldDefinition, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.fields, nil
}

func (d *stubDirectory) WithToken(token string) directory.Client {
	d.token = token
	return d
}

type stubInvalidator struct {
	dropped []string
}

func (s *stubInvalidator) Del(_ context.Context, keys ...string) {
	s.dropped = append(s.dropped, keys...)
}

func TestSyncMembersUpsertsAndCounts(t *testing.T) {
	repo := &stubMemberRepo{members: map[string]domain.Member{
		"U001": {ID: "U001", Name: "Old Name", Active: true},
	}}
	dir := &stubDirectory{members: []domain.Member{
		{ID: "U001", Name: "New Name", Active: true},
		{ID: "U002", Name: "Fresh", Active: true},
	}}
	inv := &stubInvalidator{}
	svc := NewService(repo, &stubFieldRepo{fields: map[string]domain.ProfileFieldDefinition{}}, dir, inv, testLogger())

	result, err := svc.SyncMembers(context.Background(), "")
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Fetched != 2 || result.Created != 1 || result.Updated != 1 {
		t.Errorf("result = %+v, want fetched=2 created=1 updated=1", result)
	}
	if repo.members["U001"].Name != "New Name" {
		t.Errorf("existing member not updated: %+v", repo.members["U001"])
	}
	if repo.members["U001"].SyncedAt.IsZero() {
		t.Error("synced_at not stamped")
	}

	found := false
	for _, key := range inv.dropped {
		if key == cache.OrgChartKey() {
			found = true
		}
	}
	if !found {
		t.Errorf("org chart cache not invalidated: %v", inv.dropped)
	}
}

func TestSyncMembersUsesCallerToken(t *testing.T) {
	repo := &stubMemberRepo{members: map[string]domain.Member{}}
	dir := &stubDirectory{}
	svc := NewService(repo, &stubFieldRepo{fields: map[string]domain.ProfileFieldDefinition{}}, dir, &stubInvalidator{}, testLogger())

	if _, err := svc.SyncMembers(context.Background(), "caller-token"); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if dir.token != "caller-token" {
		t.Errorf("directory token = %q, want caller-token", dir.token)
	}
}

func TestSyncMembersPropagatesDirectoryError(t *testing.T) {
	dir := &stubDirectory{err: domain.NewExternalError("directory.list_members", errors.New("ratelimited"))}
	svc := NewService(&stubMemberRepo{members: map[string]domain.Member{}}, &stubFieldRepo{fields: map[string]domain.ProfileFieldDefinition{}}, dir, &stubInvalidator{}, testLogger())

	_, err := svc.SyncMembers(context.Background(), "")
	if !domain.IsExternal(err) {
		t.Fatalf("expected external error, got %v", err)
	}
}

func TestSyncProfileFields(t *testing.T) {
	fields := &stubFieldRepo{fields: map[string]domain.ProfileFieldDefinition{
		"Xf01": {ID: "Xf01", Label: "Old"},
	}}
	dir := &stubDirectory{fields: []domain.ProfileFieldDefinition{
		{ID: "Xf01", Label: "Title", Editable: true},
		{ID: "Xf02", Label: "Pronouns", Editable: true},
	}}
	inv := &stubInvalidator{}
	svc := NewService(&stubMemberRepo{members: map[string]domain.Member{}}, fields, dir, inv, testLogger())

	result, err := svc.SyncProfileFields(context.Background(), "")
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Fetched != 2 || result.Created != 1 || result.Updated != 1 {
		t.Errorf("result = %+v", result)
	}
	if fields.fields["Xf01"].Label != "Title" {
		t.Errorf("field not updated: %+v", fields.fields["Xf01"])
	}

	found := false
	for _, key := range inv.dropped {
		if key == cache.ProfileFieldsKey() {
			found = true
		}
	}
	if !found {
		t.Errorf("profile fields cache not invalidated: %v", inv.dropped)
	}
}
