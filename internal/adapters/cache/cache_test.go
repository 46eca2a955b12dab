package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/tagmda/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ core.CacheStore = (*MemoryCache)(nil)
	_ core.CacheStore = (*FileCache)(nil)
	_ core.CacheStore = (*SQLiteCache)(nil)
	_ core.CacheStore = (*MySQLCache)(nil)
)

func exerciseStore(t *testing.T, store core.CacheStore) {
	t.Helper()
	ctx := context.Background()

	ids, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	want := []string{"1303433207.12347", "1243439251.12345", "1303349951.12346"}
	require.NoError(t, store.Save(ctx, want))
	ids, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, ids)

	require.NoError(t, store.Save(ctx, want[:1]))
	ids, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want[:1], ids)
}

func TestMemoryCache(t *testing.T) {
	exerciseStore(t, NewMemoryCache(zap.NewNop()))
}

func TestFileCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending-cache")
	exerciseStore(t, NewFileCache(path, zap.NewNop()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1303433207.12347\n", string(data))
}

func TestFileCacheSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending-cache")
	require.NoError(t, os.WriteFile(path, []byte("a\n\n b \n"), 0o600))

	ids, err := NewFileCache(path, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestSQLiteCache(t *testing.T) {
	store, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}
