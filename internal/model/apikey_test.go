package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAPIKey_IsRevoked(t *testing.T) {
	key := &APIKey{}
	if key.IsRevoked() {
		t.Error("new key should not be revoked")
	}

	now := time.Now()
	key.RevokedAt = &now
	if !key.IsRevoked() {
		t.Error("key with revoked_at should be revoked")
	}
}

func TestAPIKey_ToResponse(t *testing.T) {
	now := time.Now()
	key := &APIKey{
		ID:         "key123",
		Name:       "Test Key",
		KeyPrefix:  "lf-abcde",
		KeyHash:    "$argon2id$secret",
		KeyLookup:  "digest",
		TotalUses:  3,
		RevokedAt:  &now,
		LastUsedAt: &now,
	}

	resp := key.ToResponse()
	if resp.ID != key.ID {
		t.Errorf("ID mismatch")
	}
	if resp.KeyPrefix != key.KeyPrefix {
		t.Errorf("KeyPrefix mismatch")
	}
	if resp.TotalUses != 3 {
		t.Errorf("TotalUses = %d, want 3", resp.TotalUses)
	}
	if !resp.Revoked {
		t.Errorf("Revoked should be true for revoked key")
	}
}

func TestAPIKey_JSONOmitsSecrets(t *testing.T) {
	key := &APIKey{ID: "k", KeyHash: "$argon2id$secret", KeyLookup: "digest"}

	data, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "argon2id") || strings.Contains(string(data), "digest") {
		t.Errorf("serialized key leaks secrets: %s", data)
	}
}

func TestNewAuthContext(t *testing.T) {
	user := &User{ID: "u1", Username: "flowlet", IsSuperuser: true}

	ac := NewAuthContext(user, nil)
	if ac.UserID != "u1" || ac.Username != "flowlet" || !ac.IsSuperuser {
		t.Errorf("unexpected auth context: %+v", ac)
	}
	if ac.KeyID != "" {
		t.Errorf("KeyID should be empty without a key, got %q", ac.KeyID)
	}

	ac = NewAuthContext(user, &APIKey{ID: "k1", KeyPrefix: "lf-abcde"})
	if ac.KeyID != "k1" || ac.KeyPrefix != "lf-abcde" {
		t.Errorf("unexpected key fields: %+v", ac)
	}
}

func TestAPIKeyCreateResponse_JSON(t *testing.T) {
	resp := APIKeyCreateResponse{
		APIKeyResponse: APIKeyResponse{ID: "k1", KeyPrefix: "lf-abcde"},
		APIKey:         "lf-plaintext",
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["api_key"] != "lf-plaintext" || fields["id"] != "k1" {
		t.Errorf("unexpected fields: %v", fields)
	}
}
