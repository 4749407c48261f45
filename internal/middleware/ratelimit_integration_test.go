//go:build integration

package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/flowlet/flowlet/internal/cache"
	"github.com/flowlet/flowlet/internal/testutil"
)

func newIntegrationCache(t *testing.T) *cache.Cache {
	t.Helper()
	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	c, err := cache.New(ctx, redisURL, cache.Options{Namespace: "flowlet-test:"})
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	_ = testutil.FlushRedis(ctx, c.Client())
	return c
}

// TestIntegrationPrincipalRateLimitConcurrency verifies the per principal
// bucket under concurrent load.
func TestIntegrationPrincipalRateLimitConcurrency(t *testing.T) {
	ctx := context.Background()
	c := newIntegrationCache(t)

	principal := "test-key-concurrent"
	rpm := 10
	burst := 5

	var allowed, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				result, err := c.CheckPrincipalRateLimit(ctx, principal, rpm, burst)
				if err != nil {
					t.Errorf("CheckPrincipalRateLimit error: %v", err)
					return
				}
				if result.Allowed {
					atomic.AddInt64(&allowed, 1)
				} else {
					atomic.AddInt64(&rejected, 1)
				}
			}
		}()
	}
	wg.Wait()

	t.Logf("Concurrency test: %d allowed, %d rejected", allowed, rejected)

	if allowed > int64(burst+rpm) {
		t.Errorf("Too many requests allowed: %d (expected <= %d)", allowed, burst+rpm)
	}
	if rejected == 0 {
		t.Error("Expected some requests to be rejected")
	}
}

// TestIntegrationIPRateLimitConcurrency verifies IP-based rate limiting concurrency.
func TestIntegrationIPRateLimitConcurrency(t *testing.T) {
	ctx := context.Background()
	c := newIntegrationCache(t)

	var allowed, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := c.CheckIPRateLimit(ctx, "192.168.1.100", 5, 3)
			if err != nil {
				t.Errorf("CheckIPRateLimit error: %v", err)
				return
			}
			if result.Allowed {
				atomic.AddInt64(&allowed, 1)
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	t.Logf("IP rate limit: %d allowed, %d rejected", allowed, rejected)

	if rejected == 0 {
		t.Error("Expected some requests to be rejected")
	}
}
