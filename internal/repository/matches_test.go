package repository

import (
	"context"
	"testing"
	"time"

	"betlab/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests against a local MongoDB. They skip when no store is
// reachable so the unit suite stays runnable anywhere.

func setupTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()

	store, err := NewStore(ctx, Config{
		URI:             "mongodb://localhost:27017/",
		Database:        "betlab_test",
		MatchCollection: "matches_test",
		Timeout:         2 * time.Second,
	})
	if err != nil {
		t.Skipf("store not reachable, skipping integration test: %v", err)
	}

	// Start from a clean collection
	require.NoError(t, store.Matches.col.Drop(ctx))
	require.NoError(t, store.Matches.EnsureIndexes(ctx))

	return store, ctx
}

func teardownTestStore(t *testing.T, store *Store) {
	t.Helper()
	_ = store.Matches.col.Drop(context.Background())
	store.Close(context.Background())
}

func testMatch(id, date string) *models.Match {
	return &models.Match{
		ID:   id,
		Date: date,
		Doc: map[string]interface{}{
			"id":      id,
			"date":    date,
			"markets": map[string]interface{}{"1x2": map[string]interface{}{"home": 1.8}},
		},
	}
}

func TestMatchRepository_InsertBatch(t *testing.T) {
	store, ctx := setupTestStore(t)
	defer teardownTestStore(t, store)

	res, err := store.Matches.InsertBatch(ctx, []*models.Match{
		testMatch("evt_20250115_001", "20250115"),
		testMatch("evt_20250115_002", "20250115"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Duplicates)

	count, err := store.Matches.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestMatchRepository_InsertBatch_Duplicates(t *testing.T) {
	store, ctx := setupTestStore(t)
	defer teardownTestStore(t, store)

	_, err := store.Matches.InsertBatch(ctx, []*models.Match{
		testMatch("evt_20250115_001", "20250115"),
	})
	require.NoError(t, err)

	// Re-insert one known record among new ones: only the duplicate is
	// rejected, the rest land.
	res, err := store.Matches.InsertBatch(ctx, []*models.Match{
		testMatch("evt_20250115_001", "20250115"),
		testMatch("evt_20250115_002", "20250115"),
		testMatch("evt_20250116_001", "20250116"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)

	count, err := store.Matches.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestMatchRepository_EnsureIndexes_Idempotent(t *testing.T) {
	store, ctx := setupTestStore(t)
	defer teardownTestStore(t, store)

	// setupTestStore already declared them once; declaring again must be
	// a no-op, not an error.
	require.NoError(t, store.Matches.EnsureIndexes(ctx))
	require.NoError(t, store.Matches.EnsureIndexes(ctx))

	names, err := store.Matches.IndexNames(ctx)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, n := range names {
		seen[n]++
	}
	for _, want := range []string{"id_unique", "date_asc", "date_markets"} {
		assert.Equal(t, 1, seen[want], "index %s should be declared exactly once", want)
	}
}

func TestMatchRepository_GetByDateRange(t *testing.T) {
	store, ctx := setupTestStore(t)
	defer teardownTestStore(t, store)

	noMarkets := &models.Match{
		ID:   "evt_20250116_002",
		Date: "20250116",
		Doc:  map[string]interface{}{"id": "evt_20250116_002", "date": "20250116"},
	}

	_, err := store.Matches.InsertBatch(ctx, []*models.Match{
		testMatch("evt_20250110_001", "20250110"),
		testMatch("evt_20250115_001", "20250115"),
		testMatch("evt_20250120_001", "20250120"),
		noMarkets,
	})
	require.NoError(t, err)

	inRange, err := store.Matches.GetByDateRange(ctx, "20250112", "20250117")
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	withMarkets, err := store.Matches.GetByDateRangeWithMarkets(ctx, "20250112", "20250117")
	require.NoError(t, err)
	require.Len(t, withMarkets, 1)
	assert.Equal(t, "evt_20250115_001", withMarkets[0]["id"])

	marketCount, err := store.Matches.CountWithMarkets(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, marketCount)
}

func TestStore_Health(t *testing.T) {
	store, ctx := setupTestStore(t)
	defer teardownTestStore(t, store)

	assert.NoError(t, store.Health(ctx))
}
