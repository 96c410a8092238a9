package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

var _ Authenticator = (*SharedSecret)(nil)

// SharedSecret authenticates callers presenting one configured key.
type SharedSecret struct {
	key string
}

// NewSharedSecret returns an authenticator for key. An empty key is
// accepted; every check then fails with ErrKeyNotSet.
func NewSharedSecret(key string) *SharedSecret {
	return &SharedSecret{key: key}
}

// CheckAuthentication compares key with the configured secret in constant time.
func (s *SharedSecret) CheckAuthentication(ctx context.Context, key string) (Principal, error) {
	if s.key == "" {
		return nil, ErrKeyNotSet
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.key)) != 1 {
		return nil, ErrInvalidKey
	}
	return keyPrincipal(fingerprint(s.key)), nil
}

type keyPrincipal string

// ID returns a short fingerprint of the key, safe to log.
func (p keyPrincipal) ID() string { return string(p) }

func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key:" + hex.EncodeToString(sum[:4])
}
