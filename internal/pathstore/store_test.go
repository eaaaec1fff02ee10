package pathstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pdrpinto/roboroute"
	"github.com/pdrpinto/roboroute/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	result := roboroute.PathResult{
		Path:      []roboroute.Cell{{0, 0}, {0, 1}, {1, 1}},
		Steps:     2,
		Heuristic: roboroute.HeuristicEuclidean,
	}
	return NewRecord(roboroute.Cell{0, 0}, roboroute.Cell{1, 1}, result)
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	fileStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "last.db"))
	require.NoError(t, err)
	return map[string]Store{
		"memory":      NewMemoryStore(),
		"sqlite":      sqliteStore,
		"sqlite-file": fileStore,
	}
}

func TestStore_EmptyThenSaveLoad(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			_, err := store.Load(ctx)
			require.ErrorIs(t, err, ErrEmpty)

			want := sampleRecord()
			require.NoError(t, store.Save(ctx, want))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Path, got.Path)
			assert.Equal(t, want.Start, got.Start)
			assert.Equal(t, want.Goal, got.Goal)
			assert.Equal(t, want.Heuristic, got.Heuristic)
			assert.True(t, want.ComputedAt.Equal(got.ComputedAt))
		})
	}
}

func TestStore_SaveReplacesSlot(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, sampleRecord()))
			second := sampleRecord()
			second.Path = []roboroute.Cell{{1, 1}}
			require.NoError(t, store.Save(ctx, second))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, second.ID, got.ID)
			assert.Equal(t, []roboroute.Cell{{1, 1}}, got.Path)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Close())
			assert.ErrorIs(t, store.Save(context.Background(), sampleRecord()), ErrStoreClosed)
			_, err := store.Load(context.Background())
			assert.ErrorIs(t, err, ErrStoreClosed)
		})
	}
}

func TestMemoryStore_CopiesPath(t *testing.T) {
	store := NewMemoryStore()
	record := sampleRecord()
	require.NoError(t, store.Save(context.Background(), record))
	record.Path[0] = roboroute.Cell{9, 9}

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, roboroute.Cell{0, 0}, got.Path[0])
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, sampleRecord()))
		}()
		go func() {
			defer wg.Done()
			if _, err := store.Load(ctx); err != nil {
				assert.ErrorIs(t, err, ErrEmpty)
			}
		}()
	}
	wg.Wait()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Path, 3)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	want := sampleRecord()
	require.NoError(t, first.Save(ctx, want))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()
	got, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
}

func TestOpen(t *testing.T) {
	store, err := Open(config.StoreConfig{Driver: config.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(config.StoreConfig{Driver: config.StoreSQLite, Path: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(config.StoreConfig{Driver: "redis"})
	assert.Error(t, err)
}
