package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"snakes-hunt-service/internal/domain"
)

type countingLoader struct {
	mu    sync.Mutex
	calls int
	rules []domain.BoardRule
}

func (l *countingLoader) RulesByMap(_ context.Context, mapID string) ([]domain.BoardRule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	out := make([]domain.BoardRule, 0, len(l.rules))
	for _, r := range l.rules {
		if r.MapID == mapID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestBoardCacheLoadsOnceAndStoresHashes(t *testing.T) {
	mr, client := newTestClient(t)
	loader := &countingLoader{rules: []domain.BoardRule{
		{ID: "r1", MapID: "m1", Type: domain.RuleSnake, StartPos: 47, EndPos: 26},
		{ID: "r2", MapID: "m1", Type: domain.RuleLadder, StartPos: 20, EndPos: 60},
	}}
	cache := NewBoardCache(client, loader, time.Minute)
	ctx := context.Background()

	rules, err := cache.Rules(ctx, "m1")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if !mr.Exists("board:m1:loaded") || !mr.Exists("board:m1:snakes") || !mr.Exists("board:m1:ladders") {
		t.Fatalf("expected board keys to be written")
	}
	if got := mr.HGet("board:m1:snakes", "47"); got != "26:r1" {
		t.Fatalf("unexpected snake field %q", got)
	}

	cached, err := cache.Rules(ctx, "m1")
	if err != nil {
		t.Fatalf("cached rules: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected one loader call, got %d", loader.count())
	}
	if cached[0].StartPos != 20 || cached[0].Type != domain.RuleLadder || cached[1].ID != "r1" {
		t.Fatalf("unexpected cached rules %+v", cached)
	}
}

func TestBoardCacheCachesEmptyMap(t *testing.T) {
	_, client := newTestClient(t)
	loader := &countingLoader{}
	cache := NewBoardCache(client, loader, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rules, err := cache.Rules(ctx, "empty")
		if err != nil {
			t.Fatalf("rules: %v", err)
		}
		if len(rules) != 0 {
			t.Fatalf("expected no rules, got %+v", rules)
		}
	}
	if loader.count() != 1 {
		t.Fatalf("expected one loader call, got %d", loader.count())
	}
}

func TestBoardCacheInvalidate(t *testing.T) {
	mr, client := newTestClient(t)
	loader := &countingLoader{rules: []domain.BoardRule{
		{ID: "r1", MapID: "m1", Type: domain.RuleSnake, StartPos: 47, EndPos: 26},
	}}
	cache := NewBoardCache(client, loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.Rules(ctx, "m1"); err != nil {
		t.Fatalf("rules: %v", err)
	}
	if err := cache.Invalidate(ctx, "m1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("board:m1:loaded") {
		t.Fatalf("expected loaded marker to be removed")
	}

	loader.mu.Lock()
	loader.rules = append(loader.rules, domain.BoardRule{ID: "r2", MapID: "m1", Type: domain.RuleSnake, StartPos: 90, EndPos: 10})
	loader.mu.Unlock()

	rules, err := cache.Rules(ctx, "m1")
	if err != nil {
		t.Fatalf("rules after invalidate: %v", err)
	}
	if len(rules) != 2 || loader.count() != 2 {
		t.Fatalf("expected reload with 2 rules, got %d rules and %d loads", len(rules), loader.count())
	}
}

func TestBoardCacheExpiresWithTTL(t *testing.T) {
	mr, client := newTestClient(t)
	loader := &countingLoader{}
	cache := NewBoardCache(client, loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.Rules(ctx, "m1"); err != nil {
		t.Fatalf("rules: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.Rules(ctx, "m1"); err != nil {
		t.Fatalf("rules: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", loader.count())
	}
}
