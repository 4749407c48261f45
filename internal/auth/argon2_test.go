package auth

import (
	"strings"
	"testing"
)

func TestHashAPIKey_Format(t *testing.T) {
	t.Parallel()

	key := "lf-3q2-7wEvr0_9rL1xHq5ZbYxF8d3oKcJp2mN4sT6uVwA"

	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey failed: %v", err)
	}

	// Verify PHC format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	if !strings.HasPrefix(hash, "$argon2id$v=") {
		t.Errorf("Hash should be in PHC format, got: %s", hash)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Errorf("Hash should have 6 parts, got: %d", len(parts))
	}

	// Verify parameters are correct
	if parts[1] != "argon2id" {
		t.Errorf("Expected argon2id algorithm, got: %s", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("Expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestHashAPIKey_Uniqueness(t *testing.T) {
	t.Parallel()

	key := "random_key"

	hash1, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey failed: %v", err)
	}

	hash2, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey failed: %v", err)
	}

	// Same key should produce different hashes (different salts)
	if hash1 == hash2 {
		t.Error("Same key should produce different hashes due to random salt")
	}

	// But both should be valid and verify correctly
	match1, _ := VerifyAPIKey(key, hash1)
	match2, _ := VerifyAPIKey(key, hash2)

	if !match1 || !match2 {
		t.Error("Both hashes should verify correctly")
	}
}

func TestVerifyAPIKey_Correct(t *testing.T) {
	t.Parallel()

	key := "lf-3q2-7wEvr0_9rL1xHq5ZbYxF8d3oKcJp2mN4sT6uVwA"

	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey failed: %v", err)
	}

	// Correct key should verify
	match, err := VerifyAPIKey(key, hash)
	if err != nil {
		t.Fatalf("VerifyAPIKey failed: %v", err)
	}
	if !match {
		t.Error("Correct key should match")
	}
}

func TestVerifyAPIKey_Incorrect(t *testing.T) {
	t.Parallel()

	key := "lf-3q2-7wEvr0_9rL1xHq5ZbYxF8d3oKcJp2mN4sT6uVwA"
	wrongKey := "lf-3q2-7wEvr0_9rL1xHq5ZbYxF8d3oKcJp2mN4sT6uVwB"

	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey failed: %v", err)
	}

	// Wrong key should not verify (but no error)
	match, err := VerifyAPIKey(wrongKey, hash)
	if err != nil {
		t.Fatalf("VerifyAPIKey should not return error for wrong key: %v", err)
	}
	if match {
		t.Error("Wrong key should not match")
	}
}

func TestVerifyAPIKey_InvalidHashFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"wrong format", "not-a-hash", ErrInvalidHash},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$salt$hash", ErrInvalidHash},
		{"missing parts", "$argon2id$v=19$m=65536", ErrInvalidHash},
		{"wrong part count", "$argon2id$v=19", ErrInvalidHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := VerifyAPIKey("key", tt.hash)
			if err != tt.wantErr {
				t.Errorf("VerifyAPIKey with %q error = %v, want %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestVerifyAPIKey_WrongVersion(t *testing.T) {
	t.Parallel()

	// Construct a hash with v=18 instead of v=19
	// This simulates an incompatible argon2 version
	invalidVersionHash := "$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJl"

	match, err := VerifyAPIKey("key", invalidVersionHash)
	if err != ErrIncompatibleVersion {
		t.Errorf("Expected ErrIncompatibleVersion, got: %v", err)
	}
	if match {
		t.Error("Should not match with incompatible version")
	}
}

func TestVerifyAPIKey_EmptyHashSegment(t *testing.T) {
	t.Parallel()

	_, err := VerifyAPIKey("key", "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHQ$")
	if err != ErrInvalidHash {
		t.Errorf("Expected ErrInvalidHash, got: %v", err)
	}
}

func TestLookupDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"generated key", "lf-3q2-7wEvr0_9rL1xHq5ZbYxF8d3oKcJp2mN4sT6uVwA"},
		{"fixture key", "random_key"},
		{"empty string", ""},
		{"long string", strings.Repeat("x", 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			digest := LookupDigest(tt.input)
			if len(digest) != 32 {
				t.Errorf("Digest should be 32 chars, got: %d", len(digest))
			}
			if digest != LookupDigest(tt.input) {
				t.Error("Same input should produce same digest")
			}
		})
	}

	if LookupDigest("input-one") == LookupDigest("input-two") {
		t.Error("Different input should produce different digest")
	}
}
