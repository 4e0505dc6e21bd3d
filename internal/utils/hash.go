package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashValue computes a keyed HMAC-SHA256 hex digest of a value.
// Used for refresh tokens, OAuth codes and client fingerprints so that
// raw secrets never touch storage.
func HashValue(secret, value string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateRandomToken returns a 48-byte random hex token
func GenerateRandomToken() (string, error) {
	return randomHex(48)
}

// GenerateStateToken returns a 24-byte random hex token for OAuth state values
func GenerateStateToken() (string, error) {
	return randomHex(24)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NormalizeUserAgent normalizes a client User-Agent for fingerprinting
func NormalizeUserAgent(userAgent string) string {
	if userAgent == "" {
		userAgent = "unknown"
	}
	if len(userAgent) > 200 {
		userAgent = userAgent[:200]
	}
	return userAgent
}
