package auth

import (
	"time"
)

// AccessClaims represents the claims stored in a PASETO access token.
// v4.local tokens are encrypted, so these are opaque to clients.
type AccessClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Principal is the authenticated caller of a request, however it proved
// its identity.
type Principal struct {
	UserID  string
	IsAdmin bool
	// KeyID is set when the caller authenticated with an API key.
	KeyID string
}

// ViaAPIKey reports whether the principal authenticated with an API key.
func (p Principal) ViaAPIKey() bool {
	return p.KeyID != ""
}
