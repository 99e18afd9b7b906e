package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func setupKV(t *testing.T, ttl time.Duration) (*KVStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewKVStore(client, ttl), mr
}

func TestKVStoreSetGet(t *testing.T) {
	ctx := context.Background()
	kv, _ := setupKV(t, time.Hour)

	require.NoError(t, kv.Set(ctx, "cart:sess-1", []byte(`[{"productId":1}]`)))

	data, err := kv.Get(ctx, "cart:sess-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"productId":1}]`), data)
}

func TestKVStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	kv, _ := setupKV(t, time.Hour)

	_, err := kv.Get(ctx, "cart:absent")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestKVStoreDelete(t *testing.T) {
	ctx := context.Background()
	kv, _ := setupKV(t, time.Hour)

	require.NoError(t, kv.Set(ctx, "cart:sess-1", []byte("x")))
	require.NoError(t, kv.Delete(ctx, "cart:sess-1"))

	_, err := kv.Get(ctx, "cart:sess-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, kv.Delete(ctx, "cart:sess-1"))
}

func TestKVStoreTTL(t *testing.T) {
	ctx := context.Background()
	kv, mr := setupKV(t, time.Minute)

	require.NoError(t, kv.Set(ctx, "cart:sess-1", []byte("x")))
	assert.Greater(t, mr.TTL("cart:sess-1"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	_, err := kv.Get(ctx, "cart:sess-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
