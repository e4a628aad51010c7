package store

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsnap/internal/registration/models"
	"dsnap/internal/registration/search"
	"dsnap/internal/sentinel"
	id "dsnap/pkg/domain"
	"dsnap/pkg/testutil"
)

func TestInMemoryStoreOperations(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	now := testutil.FixedTime

	record := testutil.NewRecord(testutil.NewRegistration().Build(), now)
	require.NoError(t, store.Create(ctx, record))
	assert.ErrorIs(t, store.Create(ctx, record), sentinel.ErrAlreadyUsed)

	fetched, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record, fetched)

	// Mutating the returned copy must not leak into the store.
	fetched.LatestData["state_id"] = "changed"
	again, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "AB1234", again.LatestData["state_id"])

	staff := testutil.TestIDs.Staff1
	later := now.Add(time.Minute)
	updated, err := store.Update(ctx, record.ID, func(r *models.Record) error {
		r.ReplaceLatest(testutil.NewRegistration().WithStateID("ZZ9").Build(), staff, later)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ZZ9", updated.LatestData["state_id"])
	require.NotNil(t, updated.ModifiedBy)
	assert.Equal(t, staff, *updated.ModifiedBy)
	assert.Nil(t, updated.OriginalData[models.FieldEBTCardNumber])

	require.NoError(t, store.Delete(ctx, record.ID))
	_, err = store.FindByID(ctx, record.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, record.ID), sentinel.ErrNotFound)
}

func TestInMemoryStore_UpdateMissing(t *testing.T) {
	store := NewInMemory()
	called := false
	_, err := store.Update(context.Background(), id.NewRegistrationID(), func(*models.Record) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.False(t, called)
}

func TestInMemoryStore_UpdateMutateErrorLeavesRecord(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	record := testutil.NewRecord(testutil.NewRegistration().Build(), testutil.FixedTime)
	require.NoError(t, store.Create(ctx, record))

	boom := errors.New("boom")
	_, err := store.Update(ctx, record.ID, func(r *models.Record) error {
		r.LatestData["state_id"] = "half-applied"
		return boom
	})
	require.ErrorIs(t, err, boom)

	fetched, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "AB1234", fetched.LatestData["state_id"])
}

func TestInMemoryStore_ListFiltersAndOrders(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	base := testutil.FixedTime

	third := testutil.NewRecord(testutil.NewRegistration().WithStateID("s3").Build(), base.Add(2*time.Second))
	first := testutil.NewRecord(testutil.NewRegistration().WithStateID("S1").Build(), base)
	second := testutil.NewRecord(testutil.NewRegistration().WithDisaster(7).WithStateID("s2").Build(), base.Add(time.Second))
	for _, r := range []*models.Record{third, first, second} {
		require.NoError(t, store.Create(ctx, r))
	}

	all, err := store.List(ctx, search.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []id.RegistrationID{first.ID, second.ID, third.ID},
		[]id.RegistrationID{all[0].ID, all[1].ID, all[2].ID})

	matched, err := store.List(ctx, search.Build(url.Values{"state_id": {"s1"}}))
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, first.ID, matched[0].ID)

	matched, err = store.List(ctx, search.Build(url.Values{"disaster_id": {"7"}}))
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, second.ID, matched[0].ID)

	none, err := store.List(ctx, search.Build(url.Values{"registrant_ssn": {"000000000"}}))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestInMemoryStore_ConcurrentUpdates(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	record := testutil.NewRecord(testutil.NewRegistration().Build(), testutil.FixedTime)
	require.NoError(t, store.Create(ctx, record))

	const goroutines = 32
	result := testutil.RunConcurrent(goroutines, func(idx int) error {
		_, err := store.Update(ctx, record.ID, func(r *models.Record) error {
			r.ApplyStatus(models.StatusUpdate{RulesServiceApproved: idx%2 == 0, UserApproved: true},
				testutil.TestIDs.Staff2, testutil.FixedTime.Add(time.Duration(idx)*time.Second))
			return nil
		})
		return err
	})
	assert.Equal(t, int32(goroutines), result.Successes)

	fetched, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.UserApproved)
	assert.True(t, *fetched.UserApproved)
	require.NotNil(t, fetched.ApprovedAt)
	assert.Equal(t, fetched.ModifiedAt, *fetched.ApprovedAt)
}
