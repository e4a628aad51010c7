package labels

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dsnap/internal/staff/models"
	"dsnap/internal/staff/store"
	id "dsnap/pkg/domain"
	"dsnap/pkg/testutil"
)

type countingStore struct {
	*store.InMemoryStore
	calls int
	err   error
}

func (s *countingStore) FindByIDs(ctx context.Context, ids []id.StaffID) ([]*models.Staff, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.InMemoryStore.FindByIDs(ctx, ids)
}

type brokenCache struct {
	gets int
}

func (c *brokenCache) Get(context.Context, []id.StaffID) (map[id.StaffID]string, error) {
	c.gets++
	return nil, errors.New("connection refused")
}

func (c *brokenCache) Set(context.Context, map[id.StaffID]string) error {
	return errors.New("connection refused")
}

type ResolverSuite struct {
	suite.Suite
	ctx    context.Context
	store  *countingStore
	clerk  *models.Staff
	logger *slog.Logger
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &countingStore{InMemoryStore: store.NewInMemory()}
	s.clerk = models.NewStaff("intake.clerk", "hash", testutil.FixedTime)
	s.Require().NoError(s.store.Create(s.ctx, s.clerk))
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ResolverSuite) TestResolvesUsernamesThroughCache() {
	r := NewResolver(NewMemoryCache(time.Minute), s.store, s.logger)

	got, err := r.Labels(s.ctx, []id.StaffID{s.clerk.ID, s.clerk.ID, {}})
	s.Require().NoError(err)
	s.Equal(map[id.StaffID]string{s.clerk.ID: "intake.clerk"}, got)
	s.Equal(1, s.store.calls)

	_, err = r.Labels(s.ctx, []id.StaffID{s.clerk.ID})
	s.Require().NoError(err)
	s.Equal(1, s.store.calls, "second lookup should be served from cache")
}

func (s *ResolverSuite) TestUnknownIDRendersAsItself() {
	r := NewResolver(nil, s.store, s.logger)
	stranger := id.NewStaffID()

	got, err := r.Labels(s.ctx, []id.StaffID{stranger, s.clerk.ID})
	s.Require().NoError(err)
	s.Equal(stranger.String(), got[stranger])
	s.Equal("intake.clerk", got[s.clerk.ID])
}

func (s *ResolverSuite) TestEmptyInputSkipsStore() {
	r := NewResolver(nil, s.store, s.logger)

	got, err := r.Labels(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(got)
	s.Zero(s.store.calls)
}

func (s *ResolverSuite) TestBrokenCacheFallsBackToStore() {
	cache := &brokenCache{}
	r := NewResolver(cache, s.store, s.logger)

	for range 5 {
		got, err := r.Labels(s.ctx, []id.StaffID{s.clerk.ID})
		s.Require().NoError(err)
		s.Equal("intake.clerk", got[s.clerk.ID])
	}
	// The breaker opens after five failed calls (get and set both count).
	s.Less(cache.gets, 5)

	_, err := r.Labels(s.ctx, []id.StaffID{s.clerk.ID})
	s.Require().NoError(err)
	gets := cache.gets
	_, err = r.Labels(s.ctx, []id.StaffID{s.clerk.ID})
	s.Require().NoError(err)
	s.Equal(gets, cache.gets, "open breaker should skip the cache")
}

func (s *ResolverSuite) TestStoreErrorPropagates() {
	s.store.err = errors.New("db down")
	r := NewResolver(nil, s.store, s.logger)

	_, err := r.Labels(s.ctx, []id.StaffID{s.clerk.ID})
	s.ErrorContains(err, "db down")
}
