package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/flowlet/flowlet/internal/model"
)

// SQLite implements Store on an embedded SQLite database.
type SQLite struct {
	db *sqlx.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens the SQLite database at dsn (a path or ":memory:").
func NewSQLite(ctx context.Context, dsn string, migrate bool) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if migrate {
		if err := migrateSQLite(db.DB); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &SQLite{db: db}, nil
}

// Ping checks database connectivity.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// =============================================================================
// Rows
// =============================================================================

type userRow struct {
	ID           string  `db:"id"`
	Username     string  `db:"username"`
	PasswordHash string  `db:"password_hash"`
	IsActive     bool    `db:"is_active"`
	IsSuperuser  bool    `db:"is_superuser"`
	CreatedAt    string  `db:"created_at"`
	LastLoginAt  *string `db:"last_login_at"`
}

type apiKeyRow struct {
	ID         string  `db:"id"`
	UserID     string  `db:"user_id"`
	Name       string  `db:"name"`
	KeyLookup  string  `db:"key_lookup"`
	KeyHash    string  `db:"key_hash"`
	KeyPrefix  string  `db:"key_prefix"`
	TotalUses  int64   `db:"total_uses"`
	RevokedAt  *string `db:"revoked_at"`
	LastUsedAt *string `db:"last_used_at"`
	CreatedAt  string  `db:"created_at"`
}

type flowRow struct {
	ID          string         `db:"id"`
	UserID      sql.NullString `db:"user_id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Data        string         `db:"data"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

// timeLayout is fixed width so TEXT timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	return &t
}

func (r *userRow) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		IsSuperuser:  r.IsSuperuser,
		CreatedAt:    parseTime(r.CreatedAt),
		LastLoginAt:  parseTimePtr(r.LastLoginAt),
	}
}

func (r *apiKeyRow) toModel() *model.APIKey {
	return &model.APIKey{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		KeyLookup:  r.KeyLookup,
		KeyHash:    r.KeyHash,
		KeyPrefix:  r.KeyPrefix,
		TotalUses:  r.TotalUses,
		RevokedAt:  parseTimePtr(r.RevokedAt),
		LastUsedAt: parseTimePtr(r.LastUsedAt),
		CreatedAt:  parseTime(r.CreatedAt),
	}
}

func (r *flowRow) toModel() *model.Flow {
	return &model.Flow{
		ID:          r.ID,
		UserID:      r.UserID.String,
		Name:        r.Name,
		Description: r.Description,
		Data:        []byte(r.Data),
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
}

// =============================================================================
// Users
// =============================================================================

// CreateUser inserts a new user.
func (s *SQLite) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, is_active, is_superuser, created_at, last_login_at)
		VALUES (:id, :username, :password_hash, :is_active, :is_superuser, :created_at, :last_login_at)`,
		userRow{
			ID:           user.ID,
			Username:     user.Username,
			PasswordHash: user.PasswordHash,
			IsActive:     user.IsActive,
			IsSuperuser:  user.IsSuperuser,
			CreatedAt:    formatTime(user.CreatedAt),
			LastLoginAt:  formatTimePtr(user.LastLoginAt),
		})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLite) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT * FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLite) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `SELECT * FROM users WHERE username = ?`, username)
}

func (s *SQLite) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toModel(), nil
}

// UpdateUserLastLogin records a successful login.
func (s *SQLite) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

// =============================================================================
// API keys
// =============================================================================

// CreateAPIKey inserts a new API key.
func (s *SQLite) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, name, key_lookup, key_hash, key_prefix, total_uses, created_at)
		VALUES (:id, :user_id, :name, :key_lookup, :key_hash, :key_prefix, :total_uses, :created_at)`,
		apiKeyRow{
			ID:        key.ID,
			UserID:    key.UserID,
			Name:      key.Name,
			KeyLookup: key.KeyLookup,
			KeyHash:   key.KeyHash,
			KeyPrefix: key.KeyPrefix,
			TotalUses: key.TotalUses,
			CreatedAt: formatTime(key.CreatedAt),
		})
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	return nil
}

// GetAPIKeyByID retrieves an API key by ID.
func (s *SQLite) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error) {
	var row apiKeyRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM api_keys WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	return row.toModel(), nil
}

// GetAPIKeysByLookup retrieves active API keys matching a lookup digest.
func (s *SQLite) GetAPIKeysByLookup(ctx context.Context, lookup string) ([]*model.APIKey, error) {
	return s.selectAPIKeys(ctx, `SELECT * FROM api_keys WHERE key_lookup = ? AND revoked_at IS NULL`, lookup)
}

// ListAPIKeysByUserID retrieves all API keys for a user, newest first.
func (s *SQLite) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return s.selectAPIKeys(ctx, `SELECT * FROM api_keys WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (s *SQLite) selectAPIKeys(ctx context.Context, query string, arg any) ([]*model.APIKey, error) {
	var rows []apiKeyRow
	if err := s.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, fmt.Errorf("failed to query API keys: %w", err)
	}
	keys := make([]*model.APIKey, 0, len(rows))
	for i := range rows {
		keys = append(keys, rows[i].toModel())
	}
	return keys, nil
}

// RevokeAPIKey revokes one of the user's keys.
func (s *SQLite) RevokeAPIKey(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = ? WHERE id = ? AND user_id = ? AND revoked_at IS NULL`,
		formatTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	return requireAffected(result, ErrAPIKeyNotFound)
}

// RecordAPIKeyUse increments total_uses and sets last_used_at.
func (s *SQLite) RecordAPIKeyUse(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET total_uses = total_uses + 1, last_used_at = ? WHERE id = ?`,
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to record API key use: %w", err)
	}
	return nil
}

// =============================================================================
// Flows
// =============================================================================

// CreateFlow inserts a new flow.
func (s *SQLite) CreateFlow(ctx context.Context, flow *model.Flow) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO flows (id, user_id, name, description, data, created_at, updated_at)
		VALUES (:id, :user_id, :name, :description, :data, :created_at, :updated_at)`,
		flowRow{
			ID:          flow.ID,
			UserID:      sql.NullString{String: flow.UserID, Valid: flow.UserID != ""},
			Name:        flow.Name,
			Description: flow.Description,
			Data:        string(flow.Data),
			CreatedAt:   formatTime(flow.CreatedAt),
			UpdatedAt:   formatTime(flow.UpdatedAt),
		})
	if err != nil {
		return fmt.Errorf("failed to create flow: %w", err)
	}
	return nil
}

// GetFlow retrieves a flow by ID regardless of owner.
func (s *SQLite) GetFlow(ctx context.Context, id string) (*model.Flow, error) {
	var row flowRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM flows WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}
	return row.toModel(), nil
}

// ListFlowsByUserID lists a user's flows, most recently updated first.
func (s *SQLite) ListFlowsByUserID(ctx context.Context, userID string) ([]*model.Flow, error) {
	var rows []flowRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM flows WHERE user_id = ? ORDER BY updated_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	flows := make([]*model.Flow, 0, len(rows))
	for i := range rows {
		flows = append(flows, rows[i].toModel())
	}
	return flows, nil
}

// DeleteFlow removes one of the user's flows.
func (s *SQLite) DeleteFlow(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return requireAffected(result, ErrFlowNotFound)
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
