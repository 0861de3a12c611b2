package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/internal/storage/postgres"
	"github.com/upstarter/engram/pkg/types"
)

// postgresTestDSN returns the DSN for the test database.
// If POSTGRES_TEST_DSN is not set, tests are skipped.
func postgresTestDSN(t *testing.T) string {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh MemoryStore connected to the test database.
// It applies the schema and runs migrations, then registers cleanup.
func newTestStore(t *testing.T) *postgres.MemoryStore {
	t.Helper()

	dsn := postgresTestDSN(t)

	store, err := postgres.NewMemoryStore(dsn, 3)
	require.NoError(t, err, "NewMemoryStore should succeed")

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// truncateMemories removes all rows from the memories table between tests.
func truncateMemories(t *testing.T, store *postgres.MemoryStore) {
	t.Helper()
	err := store.TruncateForTest(context.Background())
	require.NoError(t, err, "truncate memories")
}

func newTestMemory(id string) *types.Memory {
	return &types.Memory{
		ID:         id,
		Content:    "Test memory content for " + id,
		MemoryType: types.MemoryTypeFact,
		Importance: 0.5,
		Status:     types.MemoryStatusActive,
	}
}

func TestStore_NilMemory(t *testing.T) {
	store := newTestStore(t)
	err := store.Store(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStore_EmptyID(t *testing.T) {
	store := newTestStore(t)
	err := store.Store(context.Background(), &types.Memory{Content: "hello"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStore_EmptyContent(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	err := store.Store(context.Background(), &types.Memory{ID: "mem_aaaaaaaaaaaa"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStoreAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	mem := newTestMemory("mem_aaaaaaaaaaaa")
	mem.Project = "engram"
	mem.Tags = []string{"infra"}
	mem.Metadata = map[string]interface{}{"k": "v"}

	require.NoError(t, store.Store(ctx, mem))

	got, err := store.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, mem.Content, got.Content)
	assert.Equal(t, mem.Project, got.Project)
	assert.Equal(t, mem.Tags, got.Tags)
	assert.Equal(t, "v", got.Metadata["k"])
	assert.NotEmpty(t, got.ContentHash)
}

func TestGet_MissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	_, err := store.Get(context.Background(), "mem_000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_IsSoftAndRestorable(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	mem := newTestMemory("mem_aaaaaaaaaaaa")
	require.NoError(t, store.Store(ctx, mem))
	require.NoError(t, store.Delete(ctx, mem.ID))

	_, err := store.Get(ctx, mem.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Restore(ctx, mem.ID))
	got, err := store.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, mem.ID, got.ID)
}

func TestPurge_HardDeletes(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	mem := newTestMemory("mem_aaaaaaaaaaaa")
	require.NoError(t, store.Store(ctx, mem))
	require.NoError(t, store.Purge(ctx, mem.ID))

	err := store.Restore(ctx, mem.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	mem := newTestMemory("mem_aaaaaaaaaaaa")
	require.NoError(t, store.Store(ctx, mem))
	require.NoError(t, store.UpdateStatus(ctx, mem.ID, types.MemoryStatusArchived))

	got, err := store.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MemoryStatusArchived, got.Status)
}

func TestRecordAccess_ValidatesAtThreshold(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	mem := newTestMemory("mem_aaaaaaaaaaaa")
	require.NoError(t, store.Store(ctx, mem))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordAccess(ctx, mem.ID, true))
	}

	got, err := store.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.SurfaceCount)
	assert.True(t, got.Validated)
}

func TestList_FiltersByProjectAndType(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	universal := newTestMemory("mem_000000000001")
	scoped := newTestMemory("mem_000000000002")
	scoped.Project = "engram"
	scoped.MemoryType = types.MemoryTypeDecision

	require.NoError(t, store.Store(ctx, universal))
	require.NoError(t, store.Store(ctx, scoped))

	result, err := store.List(ctx, storage.ListOptions{ProjectSet: true})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, universal.ID, result.Items[0].ID)

	result, err = store.List(ctx, storage.ListOptions{MemoryType: types.MemoryTypeDecision})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, scoped.ID, result.Items[0].ID)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	a := newTestMemory("mem_000000000001")
	b := newTestMemory("mem_000000000002")
	b.Status = types.MemoryStatusArchived

	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[types.MemoryStatusActive])
	assert.Equal(t, 1, stats.ByStatus[types.MemoryStatusArchived])
}

func TestPruneCandidates(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	stale := newTestMemory("mem_000000000001")
	stale.Importance = 0.1
	require.NoError(t, store.Store(ctx, stale))
	require.NoError(t, store.Store(ctx, newTestMemory("mem_000000000002")))

	// accessed_at defaults to created_at (now), so use a future cutoff to
	// simulate "not accessed since".
	candidates, err := store.PruneCandidates(ctx, time.Now().Add(time.Hour), 0.5, 10)
	require.NoError(t, err)

	found := false
	for _, c := range candidates {
		if c.ID == stale.ID {
			found = true
		}
	}
	assert.True(t, found, "expected stale low-importance memory among prune candidates")
}

func TestAppendAccessLogAndAvgRelevanceSince(t *testing.T) {
	store := newTestStore(t)
	truncateMemories(t, store)
	ctx := context.Background()

	mem := newTestMemory("mem_000000000001")
	require.NoError(t, store.Store(ctx, mem))

	require.NoError(t, store.AppendAccessLog(ctx, storage.AccessLogRow{
		MemoryID:  mem.ID,
		Query:     "first query",
		Relevance: 0.4,
	}))
	require.NoError(t, store.AppendAccessLog(ctx, storage.AccessLogRow{
		MemoryID:  mem.ID,
		Query:     "second query",
		Relevance: 0.8,
	}))

	avg, err := store.AvgRelevanceSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.6, avg[mem.ID], 0.0001)
}
