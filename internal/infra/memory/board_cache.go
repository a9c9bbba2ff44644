package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"snakes-hunt-service/internal/domain"
)

// RuleLoader fetches the rules of a board map from the backing store.
type RuleLoader interface {
	RulesByMap(ctx context.Context, mapID string) ([]domain.BoardRule, error)
}

// BoardCache caches board rules per map with a TTL so a roll does not hit the
// store for rules that rarely change.
type BoardCache struct {
	loader RuleLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedRules
}

type cachedRules struct {
	rules     []domain.BoardRule
	expiresAt time.Time
}

func NewBoardCache(loader RuleLoader, ttl time.Duration) *BoardCache {
	return &BoardCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedRules),
	}
}

func (c *BoardCache) Rules(ctx context.Context, mapID string) ([]domain.BoardRule, error) {
	if rules, ok := c.lookup(mapID); ok {
		return rules, nil
	}

	result, err, _ := c.sf.Do(mapID, func() (interface{}, error) {
		if rules, ok := c.lookup(mapID); ok {
			return rules, nil
		}
		rules, err := c.loader.RulesByMap(ctx, mapID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[mapID] = cachedRules{
			rules:     rules,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return rules, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.BoardRule), nil
}

// Invalidate drops the cached rules of one map.
func (c *BoardCache) Invalidate(_ context.Context, mapID string) error {
	c.mu.Lock()
	delete(c.cache, mapID)
	c.mu.Unlock()
	c.sf.Forget(mapID)
	return nil
}

func (c *BoardCache) lookup(mapID string) ([]domain.BoardRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[mapID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return entry.rules, true
}

// ttlWithJitter must be called with mu held for writing.
func (c *BoardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
