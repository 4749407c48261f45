package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowlet/flowlet/internal/auth"
	"github.com/flowlet/flowlet/internal/metrics"
	"github.com/flowlet/flowlet/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	store, err := repository.Open(context.Background(), "sqlite::memory:", repository.Options{Migrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestAuthService(t *testing.T, store repository.Store, cfg AuthConfig) (*AuthService, *metrics.InMemoryRecorder) {
	t.Helper()
	rec := metrics.NewInMemory()
	svc := NewAuthService(store, nil, auth.NewTokenIssuer("test-secret", time.Hour), cfg, discardLogger(), rec)
	t.Cleanup(svc.Wait)
	return svc, rec
}
