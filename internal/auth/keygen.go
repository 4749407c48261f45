package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
)

// Generated keys look like lf-<43 url-safe characters>.
const (
	KeyPrefix     = "lf-"
	keySecretLen  = 32 // random bytes before encoding
	displayPrefix = 8  // characters kept for listing
)

var (
	// ErrEmptyKey indicates an empty API key.
	ErrEmptyKey = errors.New("empty API key")

	generatedKeyRegex = regexp.MustCompile(`^lf-[A-Za-z0-9_-]{43}$`)
)

// GeneratedKey contains the stored parts of an API key.
type GeneratedKey struct {
	Plaintext string // full key, shown once
	Hash      string // Argon2id hash
	Lookup    string // LookupDigest of the plaintext
	Prefix    string // visible prefix for listings
}

// GenerateAPIKey creates a new random API key.
func GenerateAPIKey() (*GeneratedKey, error) {
	secret := make([]byte, keySecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return NewKeyRecord(KeyPrefix + base64.RawURLEncoding.EncodeToString(secret))
}

// NewKeyRecord derives the stored parts for an existing plaintext key. Any
// non-empty string is accepted, so operators can provision fixed keys.
func NewKeyRecord(plaintext string) (*GeneratedKey, error) {
	if plaintext == "" {
		return nil, ErrEmptyKey
	}

	hash, err := HashAPIKey(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      hash,
		Lookup:    LookupDigest(plaintext),
		Prefix:    VisiblePrefix(plaintext),
	}, nil
}

// VisiblePrefix returns the part of a key that may be displayed.
func VisiblePrefix(key string) string {
	if len(key) <= displayPrefix {
		return key[:len(key)/2]
	}
	return key[:displayPrefix]
}

// IsGeneratedKey reports whether key has the format produced by GenerateAPIKey.
func IsGeneratedKey(key string) bool {
	return generatedKeyRegex.MatchString(key)
}
