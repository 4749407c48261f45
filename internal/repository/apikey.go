package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flowlet/flowlet/internal/model"
)

const apiKeyColumns = `id, user_id, name, key_lookup, key_hash, key_prefix, total_uses, revoked_at, last_used_at, created_at`

// CreateAPIKey inserts a new API key into the database.
func (r *Postgres) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, name, key_lookup, key_hash, key_prefix, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		key.ID,
		key.UserID,
		key.Name,
		key.KeyLookup,
		key.KeyHash,
		key.KeyPrefix,
		key.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetAPIKeyByID retrieves an API key by its ID.
func (r *Postgres) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	key, err := scanAPIKey(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	return key, err
}

// GetAPIKeysByLookup retrieves active API keys matching a lookup digest.
// Used during authentication to find candidate keys for verification.
func (r *Postgres) GetAPIKeysByLookup(ctx context.Context, lookup string) ([]*model.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE key_lookup = $1 AND revoked_at IS NULL
	`
	return r.queryAPIKeys(ctx, query, lookup)
}

// ListAPIKeysByUserID retrieves all API keys for a user.
func (r *Postgres) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.queryAPIKeys(ctx, query, userID)
}

// RevokeAPIKey revokes one of the user's keys by setting revoked_at.
func (r *Postgres) RevokeAPIKey(ctx context.Context, id, userID string) error {
	query := `
		UPDATE api_keys
		SET revoked_at = $3
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// RecordAPIKeyUse increments total_uses and sets last_used_at.
// Should be called asynchronously after successful authentication.
func (r *Postgres) RecordAPIKeyUse(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE api_keys
		SET total_uses = total_uses + 1, last_used_at = $2
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to record API key use: %w", err)
	}

	return nil
}

func (r *Postgres) queryAPIKeys(ctx context.Context, query string, arg any) ([]*model.APIKey, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query API keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}

// scanAPIKey scans a row into an APIKey. pgx.ErrNoRows is returned as is.
func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var key model.APIKey
	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.KeyLookup,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.TotalUses,
		&key.RevokedAt,
		&key.LastUsedAt,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan API key: %w", err)
	}
	return &key, nil
}
