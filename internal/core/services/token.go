package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
)

// Ensure tokenService implements the driving port
var _ driving.TokenService = (*tokenService)(nil)

// TokenServiceConfig holds configuration for the back-channel service.
type TokenServiceConfig struct {
	Sessions  driven.FlowSessionStore
	Artifacts *ArtifactStore
	Guard     *SessionGuard
	Gateway   driven.IdentityProviderGateway
	Resolver  driven.EndpointResolver
	Verifier  driven.IDTokenVerifier
	Logger    *slog.Logger
}

type tokenService struct {
	sessions  driven.FlowSessionStore
	artifacts *ArtifactStore
	guard     *SessionGuard
	gateway   driven.IdentityProviderGateway
	resolver  driven.EndpointResolver
	verifier  driven.IDTokenVerifier
	logger    *slog.Logger
}

// NewTokenService creates the back-channel token service.
func NewTokenService(cfg TokenServiceConfig) driving.TokenService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := cfg.Guard
	if guard == nil {
		guard = NewSessionGuard()
	}
	return &tokenService{
		sessions:  cfg.Sessions,
		artifacts: cfg.Artifacts,
		guard:     guard,
		gateway:   cfg.Gateway,
		resolver:  cfg.Resolver,
		verifier:  cfg.Verifier,
		logger:    logger,
	}
}

func (s *tokenService) ExchangeCode(ctx context.Context, sessionID string) (*domain.TokenBundle, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.FlowType != domain.FlowAuthorizationCode && session.FlowType != domain.FlowHybrid {
		return nil, fmt.Errorf("%w: the %s flow exchanges no authorization code", domain.ErrInvalidInput, session.FlowType)
	}
	if session.FlowState.Tokens != nil {
		return nil, fmt.Errorf("%w: tokens already obtained; reset the flow or refresh instead", domain.ErrAlreadyExists)
	}
	code := session.FlowState.AuthorizationCode
	if code == "" {
		return nil, fmt.Errorf("%w: no authorization code extracted; complete the callback step first", domain.ErrStepIncomplete)
	}

	verifier := ""
	if session.PKCEEnforced() {
		verifier, err = s.pkceVerifier(ctx, session)
		if err != nil {
			return nil, err
		}
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}

	tokens, err := s.gateway.ExchangeCode(ctx, endpoints, &session.Credentials, code, verifier)
	if err != nil {
		if isInvalidGrant(err) {
			return nil, fmt.Errorf("authorization code rejected (spent or expired), restart the authorization request: %w", err)
		}
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	if err := session.StoreTokens(tokens); err != nil {
		return nil, err
	}
	if idx, ok := stepIndexOf(session, domain.StepTokenExchange); ok {
		_ = session.CompleteStep(idx)
	}
	if err := s.persistTokens(ctx, session, tokens); err != nil {
		return nil, err
	}

	s.logger.Info("authorization code exchanged",
		"session_id", sessionID,
		"id_token", tokens.IDToken != "",
		"refresh_token", tokens.RefreshToken != "")
	return tokens, nil
}

func (s *tokenService) Refresh(ctx context.Context, sessionID string) (*domain.TokenBundle, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	current := session.FlowState.Tokens
	if current == nil || current.RefreshToken == "" {
		return nil, fmt.Errorf("%w: the session holds no refresh token", domain.ErrInvalidInput)
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}

	tokens, err := s.gateway.RefreshToken(ctx, endpoints, &session.Credentials, current.RefreshToken)
	if err != nil {
		if isInvalidGrant(err) {
			return nil, fmt.Errorf("refresh token rejected (expired or revoked), run the grant again: %w", err)
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	// Some providers omit the refresh token on rotation-free renewals.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = current.RefreshToken
	}
	session.ReplaceTokens(tokens)
	if err := s.persistTokens(ctx, session, tokens); err != nil {
		return nil, err
	}

	s.logger.Info("token bundle refreshed", "session_id", sessionID)
	return tokens, nil
}

func (s *tokenService) ClientCredentials(ctx context.Context, sessionID string) (*domain.TokenBundle, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.FlowType != domain.FlowClientCredentials {
		return nil, fmt.Errorf("%w: the %s flow does not run the client-credentials grant", domain.ErrInvalidInput, session.FlowType)
	}
	if session.FlowState.Tokens != nil {
		return nil, fmt.Errorf("%w: tokens already obtained; reset the flow to run the grant again", domain.ErrAlreadyExists)
	}
	if !session.Credentials.HasSecret() {
		return nil, fmt.Errorf("%w: client-credentials requires a client secret", domain.ErrInvalidInput)
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}

	tokens, err := s.gateway.ClientCredentialsToken(ctx, endpoints, &session.Credentials)
	if err != nil {
		return nil, fmt.Errorf("client-credentials grant: %w", err)
	}

	if err := session.StoreTokens(tokens); err != nil {
		return nil, err
	}
	if idx, ok := stepIndexOf(session, domain.StepTokenExchange); ok {
		_ = session.CompleteStep(idx)
	}
	if err := s.persistTokens(ctx, session, tokens); err != nil {
		return nil, err
	}

	s.logger.Info("client-credentials grant finished", "session_id", sessionID)
	return tokens, nil
}

// Introspect never blocks step navigation: with nothing to introspect,
// or an unreachable endpoint, it reports why instead of failing.
func (s *tokenService) Introspect(ctx context.Context, sessionID string) (*driving.IntrospectionResult, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tokens := session.FlowState.Tokens
	if tokens == nil || tokens.AccessToken == "" {
		return &driving.IntrospectionResult{
			Available: false,
			Reason:    "no access token obtained yet",
		}, nil
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		s.logger.Warn("introspection skipped, endpoint resolution failed",
			"session_id", sessionID, "error", err)
		return &driving.IntrospectionResult{
			Available: false,
			Reason:    fmt.Sprintf("endpoint resolution failed: %v", err),
		}, nil
	}
	if endpoints.IntrospectionEndpoint == "" {
		return &driving.IntrospectionResult{
			Available: false,
			Reason:    "the environment publishes no introspection endpoint",
		}, nil
	}

	claims, err := s.gateway.Introspect(ctx, endpoints, &session.Credentials, tokens.AccessToken)
	if err != nil {
		s.logger.Warn("introspection call failed",
			"session_id", sessionID, "error", err)
		return &driving.IntrospectionResult{
			Available: false,
			Reason:    fmt.Sprintf("introspection call failed: %v", err),
		}, nil
	}

	session.FlowState.Introspection = claims
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &driving.IntrospectionResult{Available: true, Claims: claims}, nil
}

func (s *tokenService) UserInfo(ctx context.Context, sessionID string) (map[string]any, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tokens := session.FlowState.Tokens
	if tokens == nil || tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token to present", domain.ErrInvalidInput)
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}
	if endpoints.UserInfoEndpoint == "" {
		return nil, fmt.Errorf("the environment publishes no userinfo endpoint")
	}

	info, err := s.gateway.UserInfo(ctx, endpoints, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}

	session.FlowState.UserInfo = info
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return info, nil
}

// VerifyIDToken checks the stored ID token against the issuer's keys.
// Unreachable keys degrade to an unverified claim decode so the claims
// stay inspectable; a nonce mismatch is reported, never hidden.
func (s *tokenService) VerifyIDToken(ctx context.Context, sessionID string) (*driving.IDTokenResult, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tokens := session.FlowState.Tokens
	if tokens == nil || tokens.IDToken == "" {
		return nil, fmt.Errorf("%w: the session holds no id token", domain.ErrInvalidInput)
	}

	claims, err := s.verifier.VerifyIDToken(ctx, session.Credentials.EnvironmentID, session.Credentials.ClientID, tokens.IDToken)
	if err != nil {
		decoded, derr := tokens.IDClaims()
		if derr != nil {
			return nil, fmt.Errorf("verify id token: %w", err)
		}
		s.logger.Warn("id token verification degraded to unverified decode",
			"session_id", sessionID, "error", err)
		return &driving.IDTokenResult{
			Verified: false,
			Reason:   fmt.Sprintf("signature not verified: %v", err),
			Claims:   decoded,
		}, nil
	}

	if expected := session.FlowState.Nonce; expected != "" {
		got, _ := claims["nonce"].(string)
		if got != expected {
			return &driving.IDTokenResult{
				Verified: false,
				Reason:   "nonce claim does not match the session's nonce",
				Claims:   claims,
			}, nil
		}
	}
	return &driving.IDTokenResult{Verified: true, Claims: claims}, nil
}

func (s *tokenService) load(ctx context.Context, sessionID string) (*domain.FlowSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// pkceVerifier returns the code verifier for the exchange, falling back
// to the artifact store when the session copy is gone. A stale stored
// bundle fails the exchange outright; reusing it would be worse than
// restarting.
func (s *tokenService) pkceVerifier(ctx context.Context, session *domain.FlowSession) (string, error) {
	if session.FlowState.PKCE != nil && session.FlowState.PKCE.CodeVerifier != "" {
		return session.FlowState.PKCE.CodeVerifier, nil
	}
	bundle, err := s.artifacts.LoadPKCE(ctx, session.FlowType, session.SpecVersion)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: regenerate and restart the authorization request", domain.ErrNoPKCE)
		}
		return "", err
	}
	session.FlowState.PKCE = bundle
	return bundle.CodeVerifier, nil
}

// persistTokens writes the bundle to its artifact slot and saves the
// session.
func (s *tokenService) persistTokens(ctx context.Context, session *domain.FlowSession, tokens *domain.TokenBundle) error {
	key := ArtifactKey(session.FlowType, session.SpecVersion, SlotTokens)
	if err := s.artifacts.SaveJSON(ctx, key, tokens); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
