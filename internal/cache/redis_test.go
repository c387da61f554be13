package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.Available())
}

func TestGetMissAndHit(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)
	ctx := context.Background()
	key := Key("existingh2plants", "list")

	var rows []map[string]any
	assert.ErrorIs(t, c.Get(ctx, key, &rows), ErrMiss)

	require.NoError(t, c.Set(ctx, key, []map[string]any{{"id": 1.0, "Plant_Name": "Alpha"}}))
	require.NoError(t, c.Get(ctx, key, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Alpha", rows[0]["Plant_Name"])
}

func TestSetAppliesTTL(t *testing.T) {
	c, mr := newRedisCache(t, 30*time.Second)
	ctx := context.Background()
	key := Key("renewablepowerplants", "list")

	require.NoError(t, c.Set(ctx, key, []int{1, 2}))
	assert.Equal(t, 30*time.Second, mr.TTL(key))

	mr.FastForward(31 * time.Second)
	var dest []int
	assert.ErrorIs(t, c.Get(ctx, key, &dest), ErrMiss)
}

func TestInvalidateDropsOnlyTableKeys(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		require.NoError(t, c.Set(ctx, Key("siterecommendations", "page", strconv.Itoa(i)), i))
	}
	other := Key("existingh2plants", "list")
	require.NoError(t, c.Set(ctx, other, 1))

	require.NoError(t, c.Invalidate(ctx, "siterecommendations"))

	keys := mr.Keys()
	assert.Equal(t, []string{other}, keys)
	assert.NoError(t, c.Invalidate(ctx, "siterecommendations"))
}
