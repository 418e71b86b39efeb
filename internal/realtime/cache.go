package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/mindmesh-backend/internal/store"
)

// SnapshotCache keeps the last delivered result of a query so a new
// listener can render before the store answers.
type SnapshotCache interface {
	Load(ctx context.Context, q store.Query) ([]byte, bool)
	Save(ctx context.Context, q store.Query, data []byte)
}

const snapshotKeyPrefix = "snap:"

// RedisSnapshotCache stores encoded snapshots in Redis with a TTL.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func (c *RedisSnapshotCache) Load(ctx context.Context, q store.Query) ([]byte, bool) {
	data, err := c.client.Get(ctx, snapshotKeyPrefix+q.Key()).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (c *RedisSnapshotCache) Save(ctx context.Context, q store.Query, data []byte) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Set(ctx, snapshotKeyPrefix+q.Key(), data, c.ttl).Err(); err != nil {
		slog.Warn("snapshot cache save failed", "collection", q.Collection, "err", err)
	}
}
