package orgchart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/orgstage/internal/cache"
	"github.com/rpattn/orgstage/internal/domain"
	"github.com/rpattn/orgstage/internal/repository"
)

// Service serves the derived org tree and the profile field catalog, both
// cached in redis because they are read on every page load and only change
// when a sync or an apply lands.
type Service struct {
	members repository.MemberRepository
	fields  repository.ProfileFieldRepository
	cache   cache.Store
	log     *logrus.Logger

	treeTTL   time.Duration
	fieldsTTL time.Duration
}

// NewService creates a new org chart service.
func NewService(
	members repository.MemberRepository,
	fields repository.ProfileFieldRepository,
	store cache.Store,
	log *logrus.Logger,
	treeTTL, fieldsTTL time.Duration,
) *Service {
	if treeTTL <= 0 {
		treeTTL = 5 * time.Minute
	}
	if fieldsTTL <= 0 {
		fieldsTTL = 10 * time.Minute
	}
	return &Service{
		members:   members,
		fields:    fields,
		cache:     store,
		log:       log,
		treeTTL:   treeTTL,
		fieldsTTL: fieldsTTL,
	}
}

// Tree returns the org tree built from active members, serialized as JSON.
// The cached copy is served when present; a cache miss rebuilds and refills.
func (s *Service) Tree(ctx context.Context) ([]byte, error) {
	key := cache.OrgChartKey()
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}

	members, err := s.members.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	roots := domain.BuildOrgTree(members)

	encoded, err := json.Marshal(roots)
	if err != nil {
		return nil, fmt.Errorf("failed to encode org tree: %w", err)
	}
	s.cache.Set(ctx, key, encoded, s.treeTTL)
	s.log.WithField("members", len(members)).Debug("rebuilt org tree")
	return encoded, nil
}

// ProfileSchema returns the profile field catalog, serialized as JSON.
func (s *Service) ProfileSchema(ctx context.Context) ([]byte, error) {
	key := cache.ProfileFieldsKey()
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}

	fields, err := s.fields.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile fields: %w", err)
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile fields: %w", err)
	}
	s.cache.Set(ctx, key, encoded, s.fieldsTTL)
	return encoded, nil
}
