package infra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Peer-Ride/peer-ride-functions/internal/testutil"
)

func TestRedisLease_SingleOwner(t *testing.T) {
	ctx := context.Background()
	rdb, err := NewRedis(ctx, testutil.RequireRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	key := fmt.Sprintf("test:lease:%d", time.Now().UnixNano())
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	a := NewRedisLease(rdb)
	b := NewRedisLease(rdb)
	b.owner = a.owner + "-other"

	ok, err := a.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "key is held")

	ok, err = b.Renew(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "only the owner renews")

	require.NoError(t, b.Release(ctx, key))
	assert.Equal(t, a.Owner(), rdb.Get(ctx, key).Val(), "only the owner releases")

	ok, err = a.Renew(ctx, key, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, rdb.PTTL(ctx, key).Val(), time.Minute)

	require.NoError(t, a.Release(ctx, key))
	ok, err = b.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released key is free")
}
