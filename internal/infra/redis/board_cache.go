package redis

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"snakes-hunt-service/internal/domain"
)

// RuleLoader fetches the rules of a board map from the backing store.
type RuleLoader interface {
	RulesByMap(ctx context.Context, mapID string) ([]domain.BoardRule, error)
}

// BoardCache caches board rules in Redis and falls back to a loader on miss.
// Rules are stored as:
//
//	HSET board:{mapID}:snakes  {start} {end}:{ruleID}
//	HSET board:{mapID}:ladders {start} {end}:{ruleID}
//	SET  board:{mapID}:loaded  1
//
// The loaded marker lets a map without rules be cached too.
type BoardCache struct {
	client *redis.Client
	loader RuleLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBoardCache(client *redis.Client, loader RuleLoader, ttl time.Duration) *BoardCache {
	return &BoardCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BoardCache) Rules(ctx context.Context, mapID string) ([]domain.BoardRule, error) {
	if rules, ok := c.cached(ctx, mapID); ok {
		return rules, nil
	}

	result, err, _ := c.sf.Do(mapID, func() (interface{}, error) {
		// another caller may have filled the cache meanwhile
		if rules, ok := c.cached(ctx, mapID); ok {
			return rules, nil
		}

		rules, err := c.loader.RulesByMap(ctx, mapID)
		if err != nil {
			return nil, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.TxPipeline()
		pipe.Del(ctx, c.snakesKey(mapID), c.laddersKey(mapID))
		for _, rule := range rules {
			key := c.snakesKey(mapID)
			if rule.Type == domain.RuleLadder {
				key = c.laddersKey(mapID)
			}
			pipe.HSet(ctx, key, strconv.Itoa(rule.StartPos), fmt.Sprintf("%d:%s", rule.EndPos, rule.ID))
		}
		pipe.Set(ctx, c.loadedKey(mapID), "1", ttl)
		if ttl > 0 {
			pipe.Expire(ctx, c.snakesKey(mapID), ttl)
			pipe.Expire(ctx, c.laddersKey(mapID), ttl)
		}
		_, _ = pipe.Exec(ctx)

		return rules, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.BoardRule), nil
}

// Invalidate drops the cached rules of one map.
func (c *BoardCache) Invalidate(ctx context.Context, mapID string) error {
	c.sf.Forget(mapID)
	return c.client.Del(ctx, c.loadedKey(mapID), c.snakesKey(mapID), c.laddersKey(mapID)).Err()
}

func (c *BoardCache) cached(ctx context.Context, mapID string) ([]domain.BoardRule, bool) {
	loaded, err := c.client.Exists(ctx, c.loadedKey(mapID)).Result()
	if err != nil || loaded == 0 {
		return nil, false
	}
	snakes, err := c.client.HGetAll(ctx, c.snakesKey(mapID)).Result()
	if err != nil {
		return nil, false
	}
	ladders, err := c.client.HGetAll(ctx, c.laddersKey(mapID)).Result()
	if err != nil {
		return nil, false
	}

	rules := make([]domain.BoardRule, 0, len(snakes)+len(ladders))
	for _, set := range []struct {
		kind   domain.RuleType
		fields map[string]string
	}{{domain.RuleSnake, snakes}, {domain.RuleLadder, ladders}} {
		for startStr, value := range set.fields {
			rule, ok := parseRule(mapID, set.kind, startStr, value)
			if !ok {
				return nil, false
			}
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].StartPos < rules[j].StartPos })
	return rules, true
}

func parseRule(mapID string, kind domain.RuleType, startStr, value string) (domain.BoardRule, bool) {
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return domain.BoardRule{}, false
	}
	endStr, id, _ := strings.Cut(value, ":")
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return domain.BoardRule{}, false
	}
	return domain.BoardRule{ID: id, MapID: mapID, Type: kind, StartPos: start, EndPos: end}, true
}

func (c *BoardCache) snakesKey(mapID string) string {
	return "board:" + mapID + ":snakes"
}

func (c *BoardCache) laddersKey(mapID string) string {
	return "board:" + mapID + ":ladders"
}

func (c *BoardCache) loadedKey(mapID string) string {
	return "board:" + mapID + ":loaded"
}

func (c *BoardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
