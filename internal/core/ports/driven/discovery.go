package driven

import "context"

// EndpointResolver resolves an environment's endpoint set, via the
// provider's discovery document when possible and a conventional
// well-known layout otherwise.
type EndpointResolver interface {
	// Resolve returns the endpoint set for an environment
	Resolve(ctx context.Context, environmentID string) (*Endpoints, error)

	// Invalidate drops any cached resolution for an environment
	Invalidate(environmentID string)
}

// IDTokenVerifier validates ID token signatures against the issuer's
// published keys and returns the verified claims.
type IDTokenVerifier interface {
	// VerifyIDToken verifies signature, issuer, audience and expiry
	VerifyIDToken(ctx context.Context, environmentID, clientID, rawIDToken string) (map[string]any, error)
}
