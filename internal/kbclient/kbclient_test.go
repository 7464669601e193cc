package kbclient

import (
	"context"
	"testing"
	"time"

	"github.com/amlandas/newsgraph/internal/domain"
)

func TestDisabled_AlwaysReturnsNilLink(t *testing.T) {
	var c Client = Disabled{}
	link, err := c.Enrich(context.Background(), "Burlington", domain.EntityLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link != nil {
		t.Errorf("expected nil link, got %+v", link)
	}
}

func TestMemoryCache_SetThenGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	entry := domain.KBCacheEntry{Key: "burlington|LOCATION", KBID: "Q1234", Label: "Burlington"}
	if err := c.Set(ctx, entry, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := c.Get(ctx, "burlington|LOCATION")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.KBID != "Q1234" {
		t.Errorf("expected KBID Q1234, got %q", got.KBID)
	}
}

func TestMemoryCache_ExpiredEntryMisses(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	entry := domain.KBCacheEntry{Key: "k", KBID: "Q1"}
	if err := c.Set(ctx, entry, time.Nanosecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(time.Millisecond)
	_, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected expired entry to miss")
	}
}

func TestWikidataClient_CacheHitAvoidsNetworkCall(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	key := cacheKey("Burlington", domain.EntityLocation)
	if err := cache.Set(ctx, domain.KBCacheEntry{Key: key, KBID: "Q1234", Label: "Burlington"}, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client := NewWikidataClient(DefaultConfig(cache))
	link, err := client.Enrich(ctx, "Burlington", domain.EntityLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link == nil || link.KBID != "Q1234" {
		t.Fatalf("expected cached link, got %+v", link)
	}
	stats := client.Stats()
	if stats["cache_hits"] != 1 {
		t.Errorf("expected 1 cache hit, got %+v", stats)
	}
}

func TestClassifyStatus_ForbiddenAndNotFoundAreNoLink(t *testing.T) {
	if err := classifyStatus(403); !isNoLinkCondition(err) {
		t.Errorf("expected 403 to be a no-link condition")
	}
	if err := classifyStatus(404); !isNoLinkCondition(err) {
		t.Errorf("expected 404 to be a no-link condition")
	}
}

func TestClassifyStatus_ServerErrorIsRetryable(t *testing.T) {
	err := classifyStatus(503)
	if err == nil {
		t.Fatalf("expected an error for status 503")
	}
	if !isRetryableKBError(err) {
		t.Errorf("expected 503 to be retryable")
	}
}

func TestClassifyStatus_OKIsNil(t *testing.T) {
	if err := classifyStatus(200); err != nil {
		t.Errorf("expected nil error for 200, got %v", err)
	}
}
