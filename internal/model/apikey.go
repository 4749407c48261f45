package model

import "time"

// APIKey represents an API key entity. The plaintext is never stored.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name,omitempty"`
	KeyLookup  string     `json:"-"`
	KeyHash    string     `json:"-"`
	KeyPrefix  string     `json:"key_prefix"`
	TotalUses  int64      `json:"total_uses"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsRevoked returns true if the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// AuthContext holds the authenticated principal of a request.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"is_superuser"`
	KeyID       string `json:"key_id,omitempty"`
	KeyPrefix   string `json:"key_prefix,omitempty"`
}

// NewAuthContext builds the principal for a user, optionally via an API key.
func NewAuthContext(u *User, key *APIKey) *AuthContext {
	ac := &AuthContext{
		UserID:      u.ID,
		Username:    u.Username,
		IsSuperuser: u.IsSuperuser,
	}
	if key != nil {
		ac.KeyID = key.ID
		ac.KeyPrefix = key.KeyPrefix
	}
	return ac
}

// APIKeyCreateRequest represents a request to create a new API key.
type APIKeyCreateRequest struct {
	Name string `json:"name,omitempty"`
}

// APIKeyResponse represents the response for an API key (without secrets).
type APIKeyResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	KeyPrefix  string     `json:"key_prefix"`
	TotalUses  int64      `json:"total_uses"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Revoked    bool       `json:"revoked"`
}

// ToResponse converts an APIKey to APIKeyResponse.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		TotalUses:  k.TotalUses,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		Revoked:    k.IsRevoked(),
	}
}

// APIKeyListResponse lists a user's keys.
type APIKeyListResponse struct {
	TotalCount int              `json:"total_count"`
	APIKeys    []APIKeyResponse `json:"api_keys"`
}

// APIKeyCreateResponse includes the plaintext key (shown only once).
type APIKeyCreateResponse struct {
	APIKeyResponse
	APIKey string `json:"api_key"`
}
