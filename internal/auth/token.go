package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
)

func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// TokenVerifier checks the shared secret sent by the storefront and by
// operators. The secret is configured either in plain text or as an argon2id
// hash; a candidate that passed the hash check is remembered by its SHA-256
// so the expensive derivation runs once per secret.
type TokenVerifier struct {
	plainHash string
	encoded   string

	mu       sync.Mutex
	accepted string
}

func NewTokenVerifier(token, encodedHash string) (*TokenVerifier, error) {
	token = strings.TrimSpace(token)
	encodedHash = strings.TrimSpace(encodedHash)
	if token == "" && encodedHash == "" {
		return nil, errors.New("api token is not configured")
	}
	v := &TokenVerifier{encoded: encodedHash}
	if token != "" {
		v.plainHash = HashToken(token)
	}
	return v, nil
}

func (v *TokenVerifier) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	digest := HashToken(candidate)
	if v.plainHash != "" {
		return subtle.ConstantTimeCompare([]byte(digest), []byte(v.plainHash)) == 1
	}

	v.mu.Lock()
	accepted := v.accepted
	v.mu.Unlock()
	if accepted != "" && subtle.ConstantTimeCompare([]byte(digest), []byte(accepted)) == 1 {
		return true
	}

	ok, err := VerifySecret(candidate, v.encoded)
	if err != nil || !ok {
		return false
	}
	v.mu.Lock()
	v.accepted = digest
	v.mu.Unlock()
	return true
}
