package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"archgate/internal/access/models"
	id "archgate/pkg/domain"
)

const (
	// Redis key prefix for cached decisions
	decisionKeyPrefix = "access:decision:"
	// Per-object set of decision keys, used for invalidation
	objectIndexPrefix = "access:decision-idx:"
)

// RedisCache shares decisions across instances. Each object has an index set
// listing its cached keys so InvalidateObject does not need SCAN.
type RedisCache struct {
	client redis.Cmdable
}

// NewRedisCache constructs a Redis-backed decision cache.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func redisKey(key models.DecisionKey) string {
	return decisionKeyPrefix + key.String()
}

func indexKey(objectID id.ObjectID) string {
	return objectIndexPrefix + objectID.String()
}

func (c *RedisCache) Get(ctx context.Context, key models.DecisionKey) (models.AccessDecision, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.AccessDecision{}, false, nil
	}
	if err != nil {
		return models.AccessDecision{}, false, fmt.Errorf("get cached decision: %w", err)
	}
	var d models.AccessDecision
	if err := json.Unmarshal(raw, &d); err != nil {
		return models.AccessDecision{}, false, fmt.Errorf("decode cached decision: %w", err)
	}
	return d, true, nil
}

// Put stores the decision and records its key in the object's index. The
// index outlives its members by one TTL so a late Put cannot orphan a key.
func (c *RedisCache) Put(ctx context.Context, key models.DecisionKey, decision models.AccessDecision, ttl time.Duration) error {
	raw, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	k, idx := redisKey(key), indexKey(key.ObjectID)
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, k, raw, ttl)
		p.SAdd(ctx, idx, k)
		p.Expire(ctx, idx, 2*ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put cached decision: %w", err)
	}
	return nil
}

// InvalidateObject deletes every cached decision for objectID.
func (c *RedisCache) InvalidateObject(ctx context.Context, objectID id.ObjectID) error {
	idx := indexKey(objectID)
	keys, err := c.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("list cached decisions: %w", err)
	}
	if err := c.client.Del(ctx, append(keys, idx)...).Err(); err != nil {
		return fmt.Errorf("delete cached decisions: %w", err)
	}
	return nil
}
