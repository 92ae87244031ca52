package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "memoryGameState", `{"currentLevel":3}`))
	v, err := kv.Get(ctx, "memoryGameState")
	require.NoError(t, err)
	assert.Equal(t, `{"currentLevel":3}`, v)

	require.NoError(t, kv.Set(ctx, "memoryGameState", `{}`))
	v, err = kv.Get(ctx, "memoryGameState")
	require.NoError(t, err)
	assert.Equal(t, `{}`, v)

	require.NoError(t, kv.Delete(ctx, "memoryGameState"))
	_, err = kv.Get(ctx, "memoryGameState")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Delete(ctx, "memoryGameState"), "deleting twice is fine")
}

func TestMemory(t *testing.T) {
	exerciseKV(t, NewMemory())
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFile(filepath.Join(dir, "nested", "state"))
	require.NoError(t, err)
	exerciseKV(t, kv)
}

func TestFile_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	a, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "k/with/slashes", "v1"))

	b, err := NewFile(dir)
	require.NoError(t, err)
	v, err := b.Get(ctx, "k/with/slashes")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestRedis_UnreachableServerReportsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	kv := NewRedis(client, "patternrush:")

	_, err := kv.Get(context.Background(), "memoryGameState")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, kv.Set(context.Background(), "memoryGameState", "{}"))
}
