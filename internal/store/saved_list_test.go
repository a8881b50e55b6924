package store

import (
	"context"
	"testing"
	"time"

	"voiceagent-server/internal/targeting"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SavedListRoundTrip(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t, TestDBTypeSQLite)
	ctx := context.Background()

	created := time.Date(2024, 1, 15, 9, 30, 0, 123456789, time.UTC)
	lists := []targeting.SavedList{
		{ID: "l-1", Name: "Q1 List", Filters: targeting.DefaultCriteria(), ContactIDs: []string{"1", "2"}, CreatedAt: created},
		{ID: "l-2", Name: "Expired", Filters: targeting.FilterCriteria{WarrantyStatus: targeting.WarrantyExpired, Search: "ana"}, ContactIDs: []string{}, CreatedAt: created.Add(time.Minute)},
	}
	for _, l := range lists {
		require.NoError(t, testDB.Store.PersistSavedList(ctx, l))
	}

	got, err := testDB.Store.LoadSavedLists(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(lists, got); diff != "" {
		t.Errorf("LoadSavedLists() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SavedListNameIsUnique(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t, TestDBTypeSQLite)
	ctx := context.Background()

	require.NoError(t, testDB.Store.PersistSavedList(ctx, targeting.SavedList{ID: "a", Name: "same", CreatedAt: time.Now()}))
	assert.Error(t, testDB.Store.PersistSavedList(ctx, targeting.SavedList{ID: "b", Name: "same", CreatedAt: time.Now()}))
}

func TestStore_RenameSavedList(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t, TestDBTypeSQLite)
	ctx := context.Background()

	require.NoError(t, testDB.Store.PersistSavedList(ctx, targeting.SavedList{ID: "a", Name: "before", CreatedAt: time.Now()}))

	require.NoError(t, testDB.Store.RenameSavedList(ctx, "a", "after"))
	assert.ErrorIs(t, testDB.Store.RenameSavedList(ctx, "missing", "x"), ErrNotFound)

	got, err := testDB.Store.LoadSavedLists(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "after", got[0].Name)
}

func TestStore_DeleteSavedList(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t, TestDBTypeSQLite)
	ctx := context.Background()

	require.NoError(t, testDB.Store.PersistSavedList(ctx, targeting.SavedList{ID: "a", Name: "gone", CreatedAt: time.Now()}))

	require.NoError(t, testDB.Store.DeleteSavedList(ctx, "a"))
	require.NoError(t, testDB.Store.DeleteSavedList(ctx, "a"))

	got, err := testDB.Store.LoadSavedLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
