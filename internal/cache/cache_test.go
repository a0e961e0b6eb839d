package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Username string `json:"username"`
	Page     int    `json:"page"`
}

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedis(rdb), mr
}

func TestRedisSetGetDelete(t *testing.T) {
	c, _ := newRedis(t)
	ctx := context.Background()

	var got entry
	found, err := c.Get(ctx, "contact:alice", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "contact:alice", entry{Username: "alice", Page: 1}, time.Minute))
	found, err = c.Get(ctx, "contact:alice", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entry{Username: "alice", Page: 1}, got)

	require.NoError(t, c.Delete(ctx, "contact:alice", "contacts:page=1:size=20"))
	found, err = c.Get(ctx, "contact:alice", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisTTL(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Page: 2}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var got entry
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	found, err := c.Get(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Delete(ctx, "k"))
}
