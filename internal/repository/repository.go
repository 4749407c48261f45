// Package repository provides the database access layer. PostgreSQL and
// SQLite implement the same Store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowlet/flowlet/internal/model"
)

// Common errors for store operations. Entity-specific errors wrap ErrNotFound.
var (
	ErrNotFound         = errors.New("not found")
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrAPIKeyNotFound   = fmt.Errorf("API key %w", ErrNotFound)
	ErrFlowNotFound     = fmt.Errorf("flow %w", ErrNotFound)
	ErrUsernameExists   = errors.New("username already exists")
	ErrUnsupportedStore = errors.New("unsupported database URL scheme")
)

// Store is the persistence contract used by services and handlers.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error

	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error)
	// GetAPIKeysByLookup returns unrevoked keys whose lookup digest matches.
	GetAPIKeysByLookup(ctx context.Context, lookup string) ([]*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, id, userID string) error
	RecordAPIKeyUse(ctx context.Context, id string, at time.Time) error

	CreateFlow(ctx context.Context, flow *model.Flow) error
	GetFlow(ctx context.Context, id string) (*model.Flow, error)
	ListFlowsByUserID(ctx context.Context, userID string) ([]*model.Flow, error)
	DeleteFlow(ctx context.Context, id, userID string) error

	Ping(ctx context.Context) error
	Close() error
}

// Options control how Open prepares the store.
type Options struct {
	// Migrate applies embedded migrations before returning.
	Migrate bool
}

// Open connects to the database named by databaseURL. postgres:// and
// postgresql:// URLs use PostgreSQL; sqlite:// URLs and sqlite::memory: use
// SQLite.
func Open(ctx context.Context, databaseURL string, opts Options) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		if opts.Migrate {
			if err := MigratePostgres(databaseURL); err != nil {
				return nil, err
			}
		}
		return NewPostgres(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return NewSQLite(ctx, sqliteDSN(databaseURL), opts.Migrate)
	default:
		return nil, ErrUnsupportedStore
	}
}

// sqliteDSN strips the sqlite scheme: sqlite:///var/db.sqlite -> /var/db.sqlite,
// sqlite://./local.db -> ./local.db, sqlite::memory: -> :memory:.
func sqliteDSN(databaseURL string) string {
	dsn := strings.TrimPrefix(databaseURL, "sqlite:")
	return strings.TrimPrefix(dsn, "//")
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either backend.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint failed")
}
