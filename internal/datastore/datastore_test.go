package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snappedai/snapsearch/internal/conf"
	"github.com/snappedai/snapsearch/internal/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := &SQLiteStore{DataStore: DataStore{Settings: settings}}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSearch(at time.Time, results ...SearchResult) *ImageSearch {
	return &ImageSearch{
		ImagePath:  "/uploads/photo.jpg",
		RemoteURL:  "https://cdn.example/static/uploads/photo.jpg",
		SearchTime: at,
		Results:    results,
	}
}

func TestCreateAndGetSearch(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	search := testSearch(time.Now(),
		SearchResult{Title: "Nike Air Max 90", Price: "$120.00", Brand: "Nike",
			Source: "visual_matches"},
		SearchResult{Title: "Leather Bag", Price: "$75.00", Brand: "Fossil",
			Source: "shopping_results"},
	)
	require.NoError(t, store.CreateSearch(ctx, search))
	require.NotZero(t, search.ID)

	got, err := store.GetSearch(ctx, search.ID)
	require.NoError(t, err)
	assert.Equal(t, search.ImagePath, got.ImagePath)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "Nike Air Max 90", got.Results[0].Title)
}

func TestGetSearchNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.GetSearch(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateResultsAfterSearch(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	search := testSearch(time.Now())
	require.NoError(t, store.CreateSearch(ctx, search))

	results := []SearchResult{
		{SearchID: search.ID, Title: "Widget", Price: "$5.00"},
	}
	require.NoError(t, store.CreateResults(ctx, results))
	assert.NotZero(t, results[0].ID)

	got, err := store.GetSearch(ctx, search.ID)
	require.NoError(t, err)
	assert.Len(t, got.Results, 1)
}

func TestDeleteSearchCascadesResults(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	search := testSearch(time.Now(),
		SearchResult{Title: "Widget", Price: "$5.00"},
		SearchResult{Title: "Gadget", Price: "$7.00"},
	)
	require.NoError(t, store.CreateSearch(ctx, search))

	require.NoError(t, store.DeleteSearch(ctx, search.ID))

	_, err := store.GetSearch(ctx, search.ID)
	assert.True(t, errors.IsNotFound(err))

	var count int64
	require.NoError(t, store.DB.Model(&SearchResult{}).
		Where("search_id = ?", search.ID).Count(&count).Error)
	assert.Zero(t, count, "results must be deleted with their search")
}

func TestDeleteSearchNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.DeleteSearch(context.Background(), 12345)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListRecentOrdering(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	oldest := testSearch(base.Add(-time.Hour))
	tieA := testSearch(base)
	tieB := testSearch(base)

	require.NoError(t, store.CreateSearch(ctx, oldest))
	require.NoError(t, store.CreateSearch(ctx, tieA))
	require.NoError(t, store.CreateSearch(ctx, tieB))

	got, err := store.ListRecent(ctx, 10, 0, false)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Ties on search time break toward the later insert.
	assert.Equal(t, tieB.ID, got[0].ID)
	assert.Equal(t, tieA.ID, got[1].ID)
	assert.Equal(t, oldest.ID, got[2].ID)
}

func TestListRecentIncludeResults(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	search := testSearch(time.Now(),
		SearchResult{Title: "Nike Air Max 90", Price: "$120.00"},
		SearchResult{Title: "Leather Bag", Price: "$75.00"},
	)
	require.NoError(t, store.CreateSearch(ctx, search))

	bare, err := store.ListRecent(ctx, 10, 0, false)
	require.NoError(t, err)
	require.Len(t, bare, 1)
	assert.Empty(t, bare[0].Results)

	loaded, err := store.ListRecent(ctx, 10, 0, true)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Len(t, loaded[0].Results, 2)
}

func TestListRecentPagination(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreateSearch(ctx,
			testSearch(base.Add(time.Duration(i)*time.Minute))))
	}

	page, err := store.ListRecent(ctx, 2, 2, false)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	total, err := store.CountSearches(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
}
