package service

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisViewCache invalidates cached read views after a write. Cached
// responses are keyed under <prefix>:<view>:<hash>, so dropping a view
// is a scan-and-delete over its key segment. Invalidation is
// best-effort: a stale entry expires on its own TTL anyway.
type RedisViewCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisViewCache returns an invalidator for cache entries stored
// under the given prefix. A nil client yields a no-op invalidator.
func NewRedisViewCache(rdb *redis.Client, prefix string) *RedisViewCache {
	if prefix == "" {
		prefix = "cache"
	}
	return &RedisViewCache{rdb: rdb, prefix: prefix}
}

// Invalidate deletes every cached response belonging to the named
// views. Errors are logged and swallowed.
func (v *RedisViewCache) Invalidate(ctx context.Context, views ...string) {
	if v == nil || v.rdb == nil {
		return
	}
	for _, view := range views {
		iter := v.rdb.Scan(ctx, 0, v.prefix+":"+view+":*", 100).Iterator()
		keys := make([]string, 0, 16)
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			log.Printf("view-cache: scan %s failed: %v", view, err)
			continue
		}
		if len(keys) == 0 {
			continue
		}
		if err := v.rdb.Del(ctx, keys...).Err(); err != nil {
			log.Printf("view-cache: delete %s failed: %v", view, err)
		}
	}
}
