package idp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/runtime"
)

// Verify interface compliance
var (
	_ driven.EndpointResolver = (*Resolver)(nil)
	_ driven.IDTokenVerifier  = (*Resolver)(nil)
)

// DefaultDiscoveryTTL caches a resolved environment for this long.
const DefaultDiscoveryTTL = time.Hour

// providerClaims carries the discovery fields the oidc package does not
// surface through Endpoint().
type providerClaims struct {
	DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint"`
	IntrospectionEndpoint       string `json:"introspection_endpoint"`
	UserInfoEndpoint            string `json:"userinfo_endpoint"`
	JWKSURI                     string `json:"jwks_uri"`
}

type resolved struct {
	endpoints *driven.Endpoints
	provider  *oidc.Provider
	fetchedAt time.Time
}

// Resolver resolves an environment's endpoints through the provider's
// discovery document, with a conventional well-known fallback when
// discovery is unreachable. Resolutions are cached per environment; it
// also verifies ID tokens against the discovered issuer's keys.
type Resolver struct {
	cfg       Config
	ttl       time.Duration
	client    *http.Client
	overrides *runtime.Overrides
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[string]*resolved
}

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	Config

	// CacheTTL bounds how long a resolution is reused (default: 1h)
	CacheTTL time.Duration

	// Overrides, when set, pins environments to fixed endpoint sets
	Overrides *runtime.Overrides

	Logger *slog.Logger
}

// NewResolver creates an endpoint resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultDiscoveryTTL
	}
	base := cfg.Config.withDefaults()
	return &Resolver{
		cfg:       base,
		ttl:       ttl,
		client:    newHTTPClient(base.Timeout),
		overrides: cfg.Overrides,
		logger:    logger,
		cache:     make(map[string]*resolved),
	}
}

// Resolve returns the endpoint set for an environment.
func (r *Resolver) Resolve(ctx context.Context, environmentID string) (*driven.Endpoints, error) {
	if environmentID == "" {
		return nil, fmt.Errorf("environment id is empty")
	}

	if r.overrides != nil {
		if pinned, ok := r.overrides.Get(environmentID); ok {
			if pinned.Issuer != "" {
				fillConventional(pinned)
			}
			return pinned, nil
		}
	}

	if entry := r.cached(environmentID); entry != nil {
		return entry.endpoints, nil
	}

	issuer := r.cfg.issuerURL(environmentID)
	oidcCtx := oidc.ClientContext(ctx, r.client)

	entry := &resolved{fetchedAt: time.Now()}
	provider, err := oidc.NewProvider(oidcCtx, issuer)
	if err != nil {
		// Discovery being down must not strand the flows; the provider
		// lays its endpoints out conventionally under the issuer.
		r.logger.Warn("discovery failed, falling back to the well-known layout",
			"issuer", issuer, "error", err)
		entry.endpoints = wellKnownEndpoints(issuer)
	} else {
		var extra providerClaims
		if err := provider.Claims(&extra); err != nil {
			r.logger.Warn("discovery document missing optional claims",
				"issuer", issuer, "error", err)
		}
		endpoint := provider.Endpoint()
		entry.provider = provider
		entry.endpoints = &driven.Endpoints{
			Issuer:                issuer,
			AuthorizationEndpoint: endpoint.AuthURL,
			TokenEndpoint:         endpoint.TokenURL,
			DeviceAuthEndpoint:    extra.DeviceAuthorizationEndpoint,
			IntrospectionEndpoint: extra.IntrospectionEndpoint,
			UserInfoEndpoint:      extra.UserInfoEndpoint,
			JWKSEndpoint:          extra.JWKSURI,
			Discovered:            true,
		}
		fillConventional(entry.endpoints)
	}

	r.mu.Lock()
	r.cache[environmentID] = entry
	r.mu.Unlock()

	r.logger.Info("environment resolved",
		"environment_id", environmentID, "discovered", entry.endpoints.Discovered)
	return entry.endpoints, nil
}

// Invalidate drops any cached resolution for an environment.
func (r *Resolver) Invalidate(environmentID string) {
	r.mu.Lock()
	delete(r.cache, environmentID)
	r.mu.Unlock()
}

// VerifyIDToken verifies signature, issuer, audience and expiry against
// the environment's published keys. It needs a discovered provider;
// with only the well-known fallback there is no key set to check
// against.
func (r *Resolver) VerifyIDToken(ctx context.Context, environmentID, clientID, rawIDToken string) (map[string]any, error) {
	if _, err := r.Resolve(ctx, environmentID); err != nil {
		return nil, err
	}
	entry := r.cached(environmentID)
	if entry == nil || entry.provider == nil {
		return nil, fmt.Errorf("issuer keys unavailable: environment %q resolved without discovery", environmentID)
	}

	verifier := entry.provider.Verifier(&oidc.Config{ClientID: clientID})
	idToken, err := verifier.Verify(oidc.ClientContext(ctx, r.client), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	return claims, nil
}

func (r *Resolver) cached(environmentID string) *resolved {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[environmentID]
	if !ok || time.Since(entry.fetchedAt) > r.ttl {
		return nil
	}
	return entry
}

// wellKnownEndpoints derives the endpoint set from the issuer alone.
func wellKnownEndpoints(issuer string) *driven.Endpoints {
	e := &driven.Endpoints{Issuer: issuer}
	fillConventional(e)
	return e
}

// fillConventional fills any endpoint the discovery document left empty
// with its conventional location under the issuer.
func fillConventional(e *driven.Endpoints) {
	set := func(dst *string, suffix string) {
		if *dst == "" {
			*dst = e.Issuer + suffix
		}
	}
	set(&e.AuthorizationEndpoint, "/authorize")
	set(&e.TokenEndpoint, "/token")
	set(&e.DeviceAuthEndpoint, "/device_authorization")
	set(&e.IntrospectionEndpoint, "/introspect")
	set(&e.UserInfoEndpoint, "/userinfo")
	set(&e.JWKSEndpoint, "/jwks")
}
