package domain

import "time"

// Session represents a refresh-credential record.
// Only the HMAC hash of the refresh token is stored, never the raw value.
type Session struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	RefreshHash     string     `json:"-" db:"refresh_token_hash"`
	FingerprintHash string     `json:"-" db:"fingerprint_hash"`
	IPAddress       string     `json:"ip_address" db:"ip_address"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at" db:"expires_at"`
	LastUsedAt      *time.Time `json:"last_used_at" db:"last_used_at"`
	RevokedAt       *time.Time `json:"revoked_at" db:"revoked_at"`
	ReplacedBy      *string    `json:"-" db:"replaced_by"`
}

// IsActive reports whether the session can still be used for a refresh
func (s *Session) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// OAuthAttempt represents a single-use OAuth state record.
// Attempts live in Redis with a TTL and are consumed exactly once on callback.
type OAuthAttempt struct {
	State           string    `json:"state"`
	RedirectURI     string    `json:"redirect_uri"`
	IPAddress       string    `json:"ip_address"`
	FingerprintHash string    `json:"fingerprint_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

// TokenClaims represents the claims carried by an access token
type TokenClaims struct {
	Subject  string `json:"sub"`
	Level    Level  `json:"level"`
	Approved bool   `json:"approved"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
}

// IsExpired checks if the token is expired
func (tc TokenClaims) IsExpired() bool {
	return time.Now().Unix() > tc.Exp
}
