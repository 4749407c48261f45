// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/flowlet/flowlet/internal/auth"
	"github.com/flowlet/flowlet/internal/cache"
	"github.com/flowlet/flowlet/internal/metrics"
	"github.com/flowlet/flowlet/internal/model"
	"github.com/flowlet/flowlet/internal/repository"
)

// Auth errors.
var (
	ErrInvalidAPIKey      = errors.New("invalid or missing api key")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrAutoLoginDisabled  = errors.New("auto login is disabled")
	ErrAPIKeyNotFound     = errors.New("API key not found")
	ErrInvalidInput       = errors.New("invalid input")
)

// usageTimeout bounds the background usage update of an API key.
const usageTimeout = 5 * time.Second

// AuthConfig configures AuthService.
type AuthConfig struct {
	AutoLogin         bool
	Superuser         string
	SuperuserPassword string
}

// AuthService authenticates callers and manages API keys.
type AuthService struct {
	store   repository.Store
	cache   *cache.Cache
	tokens  *auth.TokenIssuer
	cfg     AuthConfig
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time

	wg sync.WaitGroup
}

// NewAuthService creates an AuthService. c may be nil when Redis is not configured.
func NewAuthService(store repository.Store, c *cache.Cache, tokens *auth.TokenIssuer, cfg AuthConfig, logger *slog.Logger, recorder metrics.Recorder) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		store:   store,
		cache:   c,
		tokens:  tokens,
		cfg:     cfg,
		logger:  logger.With("component", "service.auth"),
		metrics: recorder,
		now:     time.Now,
	}
}

// AutoLogin reports whether requests without credentials act as the superuser.
func (s *AuthService) AutoLogin() bool {
	return s.cfg.AutoLogin
}

// EnsureSuperuser creates the configured superuser if it does not exist.
func (s *AuthService) EnsureSuperuser(ctx context.Context) (*model.User, error) {
	if s.cfg.Superuser == "" {
		return nil, fmt.Errorf("%w: superuser name is empty", ErrInvalidInput)
	}

	u, err := s.store.GetUserByUsername(ctx, s.cfg.Superuser)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("get superuser: %w", err)
	}

	hash, err := auth.HashPassword(s.cfg.SuperuserPassword)
	if err != nil {
		return nil, err
	}
	u = &model.User{
		ID:           uuid.NewString(),
		Username:     s.cfg.Superuser,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return s.store.GetUserByUsername(ctx, s.cfg.Superuser)
		}
		return nil, fmt.Errorf("create superuser: %w", err)
	}
	s.logger.Info("superuser created", "username", u.Username, "user_id", u.ID)
	return u, nil
}

// AuthenticateAPIKey resolves the principal behind key. An empty key is
// accepted only when auto-login is on.
func (s *AuthService) AuthenticateAPIKey(ctx context.Context, key string) (*model.AuthContext, error) {
	if key == "" {
		if s.cfg.AutoLogin {
			return s.superuserContext(ctx)
		}
		s.metrics.IncAuthFailure("missing_key")
		return nil, ErrInvalidAPIKey
	}

	lookup := auth.LookupDigest(key)
	if s.cache != nil {
		if ac, err := s.cache.GetAuthContext(ctx, lookup); err == nil && ac != nil {
			s.recordUse(ac.KeyID)
			return ac, nil
		}
	}

	candidates, err := s.store.GetAPIKeysByLookup(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}

	var matched *model.APIKey
	for _, k := range candidates {
		ok, err := auth.VerifyAPIKey(key, k.KeyHash)
		if err != nil {
			s.logger.Warn("stored api key hash is malformed", "key_id", k.ID, "error", err)
			continue
		}
		if ok {
			matched = k
			break
		}
	}
	if matched == nil {
		s.metrics.IncAuthFailure("invalid_key")
		return nil, ErrInvalidAPIKey
	}

	u, err := s.store.GetUserByID(ctx, matched.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncAuthFailure("invalid_key")
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("get key owner: %w", err)
	}
	if !u.IsActive {
		s.metrics.IncAuthFailure("inactive_user")
		return nil, ErrInvalidAPIKey
	}

	ac := model.NewAuthContext(u, matched)
	if s.cache != nil {
		if err := s.cache.SetAuthContext(ctx, lookup, ac); err != nil {
			s.logger.Warn("failed to cache auth context", "key_id", matched.ID, "error", err)
		}
	}
	s.recordUse(matched.ID)
	return ac, nil
}

// AuthenticateToken resolves the principal behind a bearer token.
func (s *AuthService) AuthenticateToken(ctx context.Context, token string) (*model.AuthContext, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		s.metrics.IncAuthFailure("invalid_token")
		return nil, ErrInvalidToken
	}
	u, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncAuthFailure("invalid_token")
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get token owner: %w", err)
	}
	if !u.IsActive {
		s.metrics.IncAuthFailure("inactive_user")
		return nil, ErrInvalidToken
	}
	return model.NewAuthContext(u, nil), nil
}

// Login checks a username and password and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncAuthFailure("bad_credentials")
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil || !ok || !u.IsActive {
		s.metrics.IncAuthFailure("bad_credentials")
		return "", ErrInvalidCredentials
	}

	if err := s.store.UpdateUserLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record login", "user_id", u.ID, "error", err)
	}
	return s.tokens.Issue(u.ID, u.Username)
}

// AutoLoginToken issues a token for the superuser when auto-login is on.
func (s *AuthService) AutoLoginToken(ctx context.Context) (string, error) {
	if !s.cfg.AutoLogin {
		return "", ErrAutoLoginDisabled
	}
	u, err := s.EnsureSuperuser(ctx)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(u.ID, u.Username)
}

// CreatedKey is a new key with its one-time plaintext.
type CreatedKey struct {
	Key       *model.APIKey
	Plaintext string
}

// CreateAPIKey generates and stores a key for userID.
func (s *AuthService) CreateAPIKey(ctx context.Context, userID, name string) (*CreatedKey, error) {
	gen, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	key := &model.APIKey{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		KeyLookup: gen.Lookup,
		KeyHash:   gen.Hash,
		KeyPrefix: gen.Prefix,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	s.logger.Info("api key created", "key_id", key.ID, "key_prefix", key.KeyPrefix, "user_id", userID)
	return &CreatedKey{Key: key, Plaintext: gen.Plaintext}, nil
}

// ListAPIKeys returns the keys of userID, newest first.
func (s *AuthService) ListAPIKeys(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return s.store.ListAPIKeysByUserID(ctx, userID)
}

// RevokeAPIKey revokes a key owned by userID and evicts it from the auth cache.
func (s *AuthService) RevokeAPIKey(ctx context.Context, userID, keyID string) error {
	key, err := s.store.GetAPIKeyByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAPIKeyNotFound
		}
		return err
	}
	if key.UserID != userID {
		return ErrAPIKeyNotFound
	}

	if err := s.store.RevokeAPIKey(ctx, keyID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAPIKeyNotFound
		}
		return err
	}

	if s.cache != nil {
		if err := s.cache.DeleteAuthContext(ctx, key.KeyLookup); err != nil {
			s.logger.Warn("failed to evict revoked key", "key_id", keyID, "error", err)
		}
	}
	s.logger.Info("api key revoked", "key_id", keyID, "user_id", userID)
	return nil
}

// Wait blocks until pending usage updates finish.
func (s *AuthService) Wait() {
	s.wg.Wait()
}

func (s *AuthService) superuserContext(ctx context.Context) (*model.AuthContext, error) {
	u, err := s.EnsureSuperuser(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewAuthContext(u, nil), nil
}

// recordUse updates total_uses and last_used_at without blocking the request.
func (s *AuthService) recordUse(keyID string) {
	if keyID == "" {
		return
	}
	at := s.now().UTC()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), usageTimeout)
		defer cancel()
		if err := s.store.RecordAPIKeyUse(ctx, keyID, at); err != nil {
			s.logger.Warn("failed to record api key use", "key_id", keyID, "error", err)
		}
	}()
}
