// Package testutil holds shared helpers for unit and integration tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/flowlet/flowlet/internal/auth"
	"github.com/flowlet/flowlet/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates an active user with the given password.
func NewTestUser(t testing.TB, username, password string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewTestAPIKey creates an API key record for plaintext owned by userID.
func NewTestAPIKey(t testing.TB, userID, plaintext string) *model.APIKey {
	t.Helper()
	rec, err := auth.NewKeyRecord(plaintext)
	if err != nil {
		t.Fatalf("new key record: %v", err)
	}
	return &model.APIKey{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Name:      "Test Key",
		KeyLookup: rec.Lookup,
		KeyHash:   rec.Hash,
		KeyPrefix: rec.Prefix,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTestFlow creates a flow owned by userID holding graph.
func NewTestFlow(t testing.TB, userID string, graph any) *model.Flow {
	t.Helper()
	data, err := json.Marshal(graph)
	if err != nil {
		t.Fatalf("marshal graph: %v", err)
	}
	now := time.Now().UTC()
	return &model.Flow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "Test Flow",
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UniqueName generates a unique name for tests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
