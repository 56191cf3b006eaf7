package driving

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// AuthorizeService owns the front-channel half of redirect flows:
// PKCE material, the authorization URL, and callback ingestion.
type AuthorizeService interface {
	// GeneratePKCE creates and persists a fresh verifier/challenge pair
	GeneratePKCE(ctx context.Context, sessionID string) (*domain.PKCEBundle, error)

	// BuildAuthorizationURL assembles the authorization request URL,
	// generating state and nonce and persisting them with the session
	BuildAuthorizationURL(ctx context.Context, sessionID string) (*AuthorizationURLResponse, error)

	// IngestCallback parses a redirect-back URL's query string, checks
	// the state parameter and records the authorization code
	IngestCallback(ctx context.Context, sessionID, callbackURL string) (*FlowSnapshot, error)

	// IngestFragment parses a redirect-back URL's fragment for implicit
	// and hybrid flows, checks state and records tokens and code
	IngestFragment(ctx context.Context, sessionID, callbackURL string) (*FlowSnapshot, error)
}

// AuthorizationURLResponse carries the built authorization request.
// @Description Authorization URL with its bound state and nonce
type AuthorizationURLResponse struct {
	// URL is the authorization request to send the user to
	URL string `json:"url" example:"https://auth.pingone.com/env-1/as/authorize?client_id=..."`

	// State is the CSRF state parameter bound to this request
	State string `json:"state" example:"hZz2K8PqWvYx"`

	// Nonce is the OIDC nonce, empty for plain OAuth sessions
	Nonce string `json:"nonce,omitempty" example:"q7RmN4TsLbVc"`
}
