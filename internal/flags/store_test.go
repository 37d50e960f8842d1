package flags

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store, err := NewStore(client, logger)
	require.NoError(t, err)
	return store, client
}

func TestStore_SetGet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "sink.store")
	assert.ErrorIs(t, err, ErrNotFound)

	sw, err := store.Set(ctx, "sink.store", false)
	require.NoError(t, err)
	assert.Equal(t, "sink.store", sw.Key)
	assert.False(t, sw.Enabled)
	assert.NotZero(t, sw.UpdatedAt)

	got, err := store.Get(ctx, "sink.store")
	require.NoError(t, err)
	assert.Equal(t, sw.UpdatedAt, got.UpdatedAt)
	assert.False(t, got.Enabled)

	time.Sleep(time.Millisecond)
	sw2, err := store.Set(ctx, "sink.store", true)
	require.NoError(t, err)
	assert.True(t, sw2.UpdatedAt.After(sw.UpdatedAt))
}

func TestStore_ListDelete(t *testing.T) {
	store, client := setupTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"sink.cache", "sink.pubsub", "sink.store"} {
		_, err := store.Set(ctx, key, true)
		require.NoError(t, err)
	}

	// an indexed key whose value is gone is skipped
	require.NoError(t, client.Del(ctx, valuePrefix+"sink.pubsub").Err())

	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, store.Delete(ctx, "sink.cache"))
	_, err = store.Get(ctx, "sink.cache")
	assert.ErrorIs(t, err, ErrNotFound)

	items, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStore_Enabled(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	assert.True(t, store.Enabled(ctx, "sink.cache", true))
	assert.False(t, store.Enabled(ctx, "sink.cache", false))

	_, err := store.Set(ctx, "sink.cache", false)
	require.NoError(t, err)
	assert.False(t, store.Enabled(ctx, "sink.cache", true))
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"sink.cache", "a", "x-y_z.1"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", "Upper", "has space", "sw:colon", strings.Repeat("a", 65)} {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
}

func TestNewStore_NilClient(t *testing.T) {
	_, err := NewStore(nil, nil)
	assert.Error(t, err)
}
