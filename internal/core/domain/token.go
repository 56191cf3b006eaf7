package domain

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenBundle holds the tokens one grant produced. These are exercise
// artifacts the playground stores and displays on purpose; nothing here
// verifies signatures, that is the verifier's job.
type TokenBundle struct {
	AccessToken  string `json:"access_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// ExpiresIn is the access token lifetime in seconds as issued
	ExpiresIn int `json:"expires_in,omitempty"`

	// ObtainedAt is when the bundle was received
	ObtainedAt time.Time `json:"obtained_at"`

	// ExpiresAt is the derived absolute expiry, nil when no lifetime given
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewTokenBundle derives the absolute expiry at receipt time.
func NewTokenBundle(accessToken, tokenType, idToken, refreshToken, scope string, expiresIn int) *TokenBundle {
	now := time.Now()
	b := &TokenBundle{
		AccessToken:  accessToken,
		TokenType:    tokenType,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		Scope:        scope,
		ExpiresIn:    expiresIn,
		ObtainedAt:   now,
	}
	if expiresIn > 0 {
		expiry := now.Add(time.Duration(expiresIn) * time.Second)
		b.ExpiresAt = &expiry
	}
	return b
}

// HasToken reports whether the bundle carries any usable token.
func (t *TokenBundle) HasToken() bool {
	return t.AccessToken != "" || t.IDToken != ""
}

// IsExpired checks whether the access token passed its lifetime.
func (t *TokenBundle) IsExpired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return now.After(*t.ExpiresAt)
}

// RemainingSeconds returns whole seconds until expiry, floored at 0.
// Returns -1 when the token has no known lifetime.
func (t *TokenBundle) RemainingSeconds(now time.Time) int {
	if t.ExpiresAt == nil {
		return -1
	}
	remaining := int(t.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AccessClaims decodes the access token's claims without verifying the
// signature. Fails for opaque (non-JWT) access tokens.
func (t *TokenBundle) AccessClaims() (map[string]any, error) {
	return DecodeClaims(t.AccessToken)
}

// IDClaims decodes the ID token's claims without verifying the signature.
func (t *TokenBundle) IDClaims() (map[string]any, error) {
	return DecodeClaims(t.IDToken)
}

// DecodeClaims parses a JWT's claims without signature verification.
// Display only; a decoded claim set proves nothing about the token.
func DecodeClaims(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidInput)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return claims, nil
}
