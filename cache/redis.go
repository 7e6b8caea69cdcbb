// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares tokens between processes through Redis. Entries carry
// their own expiry in addition to the Redis TTL, so a reader never returns a
// token that its own clock considers expired.
type RedisCache struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(rdb redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{
		rdb:    rdb,
		prefix: prefix,
		now:    time.Now,
	}
}

// DialRedis connects to the Redis server at url (redis://...) and pings it.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis URL")
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, errors.Wrapf(err, "failed to ping redis at %s", opts.Addr)
	}
	return cli, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to get %s from redis", key)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false, errors.Wrapf(err, "failed to decode cached %s", key)
	}
	if e.Expired(c.now()) {
		return "", false, nil
	}
	return e.Value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(c.now())
		if ttl <= 0 {
			return nil
		}
	}
	data, err := json.Marshal(NewEntry(value, expiresAt))
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to set %s in redis", key)
	}
	return nil
}
