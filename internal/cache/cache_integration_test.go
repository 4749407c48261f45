//go:build integration

package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlet/flowlet/internal/model"
	"github.com/flowlet/flowlet/internal/pymod"
	"github.com/flowlet/flowlet/internal/testutil"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	c, err := New(ctx, testutil.RequireEnv(t, "REDIS_URL"), Options{Namespace: "flowlet-test:"})
	require.NoError(t, err)
	require.NoError(t, testutil.FlushRedis(ctx, c.Client()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestIntegrationCache_AuthContext(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	got, err := c.GetAuthContext(ctx, "digest")
	require.NoError(t, err)
	assert.Nil(t, got)

	want := &model.AuthContext{UserID: "u1", Username: "flowlet", KeyID: "k1", IsSuperuser: true}
	require.NoError(t, c.SetAuthContext(ctx, "digest", want))

	got, err = c.GetAuthContext(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, c.DeleteAuthContext(ctx, "digest"))
	got, _ = c.GetAuthContext(ctx, "digest")
	assert.Nil(t, got)
}

func TestIntegrationCache_Flow(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, err := c.GetFlow(ctx, "f1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetNegativeCache(ctx, "f1"))
	neg, err := c.IsNegativelyCached(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, neg)

	flow := &model.Flow{ID: "f1", UserID: "u1", Name: "n", Data: []byte(`{"nodes":[]}`), UpdatedAt: time.Now()}
	require.NoError(t, c.SetFlow(ctx, flow))

	neg, err = c.IsNegativelyCached(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, neg, "caching the flow clears the negative entry")

	got, err := c.GetFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.JSONEq(t, `{"nodes":[]}`, string(got.Data))

	require.NoError(t, c.DeleteFlow(ctx, "f1"))
	_, err = c.GetFlow(ctx, "f1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestIntegrationCache_PrincipalRateLimit(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	for i := 0; i < 2; i++ {
		res, err := c.CheckPrincipalRateLimit(ctx, "k1", 60, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := c.CheckPrincipalRateLimit(ctx, "k1", 60, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	res, err = c.CheckPrincipalRateLimit(ctx, "k1", 0, 0)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "zero rate disables the limit")
}

func TestIntegrationModuleCache(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	calls := 0
	next := pymod.ResolverFunc(func(_ context.Context, name string) (bool, error) {
		calls++
		if name == "broken" {
			return false, errors.New("boom")
		}
		return name == "requests", nil
	})
	m := NewModuleCache(c, next, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		found, err := m.Resolve(ctx, "requests")
		require.NoError(t, err)
		assert.True(t, found)

		found, err = m.Resolve(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 2, calls, "results are served from cache after the first lookup")

	_, err := m.Resolve(ctx, "broken")
	assert.Error(t, err)
	_, err = m.Resolve(ctx, "broken")
	assert.Error(t, err, "errors are not cached")
}
