package driven

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// Endpoints is one provider environment's resolved endpoint set.
type Endpoints struct {
	Issuer                string
	AuthorizationEndpoint string
	TokenEndpoint         string
	DeviceAuthEndpoint    string
	IntrospectionEndpoint string
	UserInfoEndpoint      string
	JWKSEndpoint          string

	// Discovered is false when the set was derived from the conventional
	// well-known layout after discovery failed
	Discovered bool
}

// IdentityProviderGateway performs the outbound protocol calls of a flow.
// Protocol rejections come back as *domain.OAuthError so callers can
// dispatch on the error code; transport failures are ordinary errors.
type IdentityProviderGateway interface {
	// RequestDeviceCode calls the device-authorization endpoint
	RequestDeviceCode(ctx context.Context, endpoints *Endpoints, creds *domain.FlowCredentials) (*domain.DeviceCodeBundle, error)

	// PollDeviceToken makes one device-grant token request
	PollDeviceToken(ctx context.Context, endpoints *Endpoints, creds *domain.FlowCredentials, deviceCode string) (*domain.TokenBundle, error)

	// ExchangeCode trades an authorization code for tokens
	ExchangeCode(ctx context.Context, endpoints *Endpoints, creds *domain.FlowCredentials, code, codeVerifier string) (*domain.TokenBundle, error)

	// RefreshToken trades a refresh token for a new bundle
	RefreshToken(ctx context.Context, endpoints *Endpoints, creds *domain.FlowCredentials, refreshToken string) (*domain.TokenBundle, error)

	// ClientCredentialsToken performs the client-credentials grant
	ClientCredentialsToken(ctx context.Context, endpoints *Endpoints, creds *domain.FlowCredentials) (*domain.TokenBundle, error)

	// Introspect calls the introspection endpoint for a token
	Introspect(ctx context.Context, endpoints *Endpoints, creds *domain.FlowCredentials, token string) (map[string]any, error)

	// UserInfo fetches the userinfo payload with a bearer token
	UserInfo(ctx context.Context, endpoints *Endpoints, accessToken string) (map[string]any, error)
}
