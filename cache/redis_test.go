// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	redis.Cmdable
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	data, _ := value.([]byte)
	f.values[key] = string(data)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rdb := &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
	c := NewRedisCache(rdb, "app1/")
	c.now = clock.Now

	require.NoError(t, c.Set(ctx, "k", "t-1", clock.Now().Add(2*time.Hour)))
	assert.Equal(t, 2*time.Hour, rdb.ttls["app1/k"])
	assert.JSONEq(t, `{"value":"t-1","expired_at":1704074400000}`, rdb.values["app1/k"])

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t-1", v)

	// Redis has not evicted it yet, but this reader's clock says it expired.
	clock.Advance(2 * time.Hour)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("no expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "forever", "v", time.Time{}))
		assert.Equal(t, time.Duration(0), rdb.ttls["app1/forever"])
		v, ok, err := c.Get(ctx, "forever")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", v)
	})

	t.Run("already expired set is ignored", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "past", "v", clock.Now().Add(-time.Second)))
		_, stored := rdb.values["app1/past"]
		assert.False(t, stored)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt entry", func(t *testing.T) {
		rdb.values["app1/bad"] = "not json"
		_, _, err := c.Get(ctx, "bad")
		require.Error(t, err)
	})

	t.Run("server error", func(t *testing.T) {
		failing := NewRedisCache(&fakeRedis{err: errors.New("connection refused")}, "")
		_, _, err := failing.Get(ctx, "k")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		require.Error(t, failing.Set(ctx, "k", "v", time.Time{}))
	})
}
