package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisJSON_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := NewRedisClient(mr.Addr(), "", 0)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}
	require.NoError(t, RedisSetJSON(ctx, rdb, "k", payload{Name: "overall", Score: 94}, time.Minute))

	var got payload
	found, err := RedisGetJSON(ctx, rdb, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 94, got.Score)

	found, err = RedisGetJSON(ctx, rdb, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := NewRedisClient(mr.Addr(), "", 0)
	ctx := context.Background()

	ok, err := RedisTryLock(ctx, rdb, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = RedisTryLock(ctx, rdb, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, RedisUnlock(ctx, rdb, "lock", "b"))
	assert.True(t, mr.Exists("lock"))

	require.NoError(t, RedisUnlock(ctx, rdb, "lock", "a"))
	assert.False(t, mr.Exists("lock"))
}
