package statuscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var _ core.StatusCache = (*RedisStatusCache)(nil)

// kv is the slice of the redis client the cache uses.
type kv interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStatusCache mirrors document status snapshots under document_status:<id>.
type RedisStatusCache struct {
	rdb kv
	ttl time.Duration
}

func NewRedisStatusCache(rdb redis.UniversalClient, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb, ttl: ttl}
}

func key(documentID string) string {
	return "document_status:" + documentID
}

func (c *RedisStatusCache) SetStatus(ctx context.Context, snap models.StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := c.rdb.Set(ctx, key(snap.DocumentID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

func (c *RedisStatusCache) GetStatus(ctx context.Context, documentID string) (*models.StatusSnapshot, error) {
	raw, err := c.rdb.Get(ctx, key(documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load status: %w", err)
	}
	var snap models.StatusSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &snap, nil
}
