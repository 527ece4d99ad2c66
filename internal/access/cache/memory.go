// Package cache holds DecisionCache implementations.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"archgate/internal/access/models"
	id "archgate/pkg/domain"
)

const defaultMemorySize = 10000

type memoryEntry struct {
	decision  models.AccessDecision
	expiresAt time.Time
}

// MemoryCache is an in-process, size-bounded decision cache. Entries expire
// after the TTL passed to Put, capped by the cache-wide maxTTL.
type MemoryCache struct {
	lru *expirable.LRU[models.DecisionKey, memoryEntry]
	now func() time.Time
}

// NewMemoryCache creates a cache holding at most size decisions for at most maxTTL.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size <= 0 {
		size = defaultMemorySize
	}
	return &MemoryCache{
		lru: expirable.NewLRU[models.DecisionKey, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key models.DecisionKey) (models.AccessDecision, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return models.AccessDecision{}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return models.AccessDecision{}, false, nil
	}
	return e.decision, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key models.DecisionKey, decision models.AccessDecision, ttl time.Duration) error {
	c.lru.Add(key, memoryEntry{decision: decision, expiresAt: c.now().Add(ttl)})
	return nil
}

// InvalidateObject removes every cached decision for objectID.
func (c *MemoryCache) InvalidateObject(_ context.Context, objectID id.ObjectID) error {
	for _, k := range c.lru.Keys() {
		if k.ObjectID == objectID {
			c.lru.Remove(k)
		}
	}
	return nil
}

// Len returns the number of cached decisions, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
