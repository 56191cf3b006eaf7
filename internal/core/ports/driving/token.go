package driving

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// TokenService owns the back-channel token operations.
type TokenService interface {
	// ExchangeCode trades the session's authorization code for tokens
	ExchangeCode(ctx context.Context, sessionID string) (*domain.TokenBundle, error)

	// Refresh trades the stored refresh token for a new bundle. This is
	// the one sanctioned token-overwrite path besides a restart.
	Refresh(ctx context.Context, sessionID string) (*domain.TokenBundle, error)

	// ClientCredentials performs the client-credentials grant
	ClientCredentials(ctx context.Context, sessionID string) (*domain.TokenBundle, error)

	// Introspect calls the introspection endpoint for the stored token.
	// With no token present it returns a degraded, non-blocking result.
	Introspect(ctx context.Context, sessionID string) (*IntrospectionResult, error)

	// UserInfo fetches the userinfo payload with the stored access token
	UserInfo(ctx context.Context, sessionID string) (map[string]any, error)

	// VerifyIDToken verifies the stored ID token's signature and nonce.
	// When the issuer's keys are unreachable it degrades to an
	// unverified claim decode, flagged as such.
	VerifyIDToken(ctx context.Context, sessionID string) (*IDTokenResult, error)
}

// IntrospectionResult is the introspection step's display payload.
// @Description Token introspection outcome, degraded when no token exists
type IntrospectionResult struct {
	// Available is false when the session holds nothing to introspect
	Available bool `json:"available"`

	// Reason explains an unavailable result
	Reason string `json:"reason,omitempty" example:"no access token obtained yet"`

	// Claims is the raw introspection response
	Claims map[string]any `json:"claims,omitempty"`
}

// IDTokenResult is the outcome of ID token verification.
// @Description ID token claims plus whether the signature was verified
type IDTokenResult struct {
	// Verified is false when claims were decoded without signature
	// verification because the issuer's keys were unreachable
	Verified bool `json:"verified"`

	// Reason explains an unverified result
	Reason string `json:"reason,omitempty" example:"jwks fetch failed"`

	Claims map[string]any `json:"claims"`
}
