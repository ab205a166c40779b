package runid

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/trackflow/testutil"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	return mr, store
}

func TestRedisStore_ReadMissingRecord(t *testing.T) {
	mr, store := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	_, found, err := store.Read(context.Background(), "/data/run1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_WriteThenRead(t *testing.T) {
	mr, store := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "/data/run1", "abc123"))

	token, found, err := store.Read(ctx, "/data/run1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc123", token)
}

func TestRedisStore_WriteIdempotent(t *testing.T) {
	mr, store := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "/data/run1", "tok"))
	require.NoError(t, store.Write(ctx, "/data/run1", "tok"))

	token, found, err := store.Read(ctx, "/data/run1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok", token)
}

func TestRedisStore_RecordHasNoTTL(t *testing.T) {
	mr, store := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	require.NoError(t, store.Write(context.Background(), "/data/run1", "tok"))

	key := store.recordKey("/data/run1")
	assert.Zero(t, mr.TTL(key), "run id records must not expire")
}

func TestRedisStore_ConnectionFailure(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestRedisStore_CancelledContextFails(t *testing.T) {
	mr, store := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	err := store.Write(testutil.CancelledContext(), "/data/run1", "abc123")
	require.Error(t, err)
}

func TestNewStore_Factory(t *testing.T) {
	store, err := NewStore(StoreConfig{Type: StoreTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewStore(StoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = NewStore(StoreConfig{Type: "bogus"})
	require.Error(t, err)
}

func TestRedisStore_DeleteRemovesRecord(t *testing.T) {
	mr, store := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "/data/run1", "abc123"))
	require.NoError(t, store.Delete(ctx, "/data/run1"))

	_, found, err := store.Read(ctx, "/data/run1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, "/data/never"))
}
