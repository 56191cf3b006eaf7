package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
)

// Ensure authorizeService implements the driving port
var _ driving.AuthorizeService = (*authorizeService)(nil)

// AuthorizeServiceConfig holds configuration for the front-channel service.
type AuthorizeServiceConfig struct {
	Sessions  driven.FlowSessionStore
	Artifacts *ArtifactStore
	Guard     *SessionGuard
	Resolver  driven.EndpointResolver
	Logger    *slog.Logger
}

type authorizeService struct {
	sessions  driven.FlowSessionStore
	artifacts *ArtifactStore
	guard     *SessionGuard
	resolver  driven.EndpointResolver
	logger    *slog.Logger
}

// NewAuthorizeService creates the front-channel service: PKCE material,
// authorization URL assembly and callback ingestion.
func NewAuthorizeService(cfg AuthorizeServiceConfig) driving.AuthorizeService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := cfg.Guard
	if guard == nil {
		guard = NewSessionGuard()
	}
	return &authorizeService{
		sessions:  cfg.Sessions,
		artifacts: cfg.Artifacts,
		guard:     guard,
		resolver:  cfg.Resolver,
		logger:    logger,
	}
}

func (s *authorizeService) GeneratePKCE(ctx context.Context, sessionID string) (*domain.PKCEBundle, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.FlowType != domain.FlowAuthorizationCode && session.FlowType != domain.FlowHybrid {
		return nil, fmt.Errorf("%w: the %s flow does not use pkce", domain.ErrInvalidInput, session.FlowType)
	}
	if !session.PKCEEnforced() {
		return nil, fmt.Errorf("%w: pkce is disabled for this session", domain.ErrInvalidInput)
	}

	bundle := domain.NewPKCEBundle()

	// The verifier must survive until the token exchange; losing it
	// here would strand the flow at the exchange step.
	if err := s.artifacts.SavePKCE(ctx, session.FlowType, session.SpecVersion, bundle); err != nil {
		return nil, fmt.Errorf("persist pkce bundle: %w", err)
	}
	session.FlowState.PKCE = bundle
	if idx, ok := stepIndexOf(session, domain.StepPKCE); ok {
		if err := session.CompleteStep(idx); err != nil {
			s.logger.Warn("completing pkce step failed", "session_id", sessionID, "error", err)
		}
	}
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("pkce bundle generated",
		"session_id", sessionID, "method", bundle.CodeChallengeMethod)
	return bundle, nil
}

func (s *authorizeService) BuildAuthorizationURL(ctx context.Context, sessionID string) (*driving.AuthorizationURLResponse, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.FlowType.UsesRedirect() {
		return nil, fmt.Errorf("%w: the %s flow makes no authorization request", domain.ErrInvalidInput, session.FlowType)
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}

	var pkce *domain.PKCEBundle
	if session.PKCEEnforced() && session.FlowType != domain.FlowImplicit {
		var minted bool
		pkce, minted, err = ensurePKCE(ctx, s.artifacts, session)
		if err != nil {
			return nil, err
		}
		if minted {
			s.logger.Info("pkce bundle minted for the authorization request",
				"session_id", sessionID)
			if idx, ok := stepIndexOf(session, domain.StepPKCE); ok {
				_ = session.CompleteStep(idx)
			}
		}
	}

	state := domain.NewStateValue()
	nonce := ""
	responseType := session.Credentials.ResponseType
	if responseType == "" {
		responseType = session.Credentials.DefaultResponseType(session.FlowType)
	}
	if session.SpecVersion == domain.SpecOIDC || containsIDToken(responseType) {
		nonce = domain.NewNonceValue()
	}

	authURL := buildAuthCodeURL(endpoints, &session.Credentials, pkce, state, nonce, responseType)

	session.FlowState.AuthorizationURL = authURL
	session.FlowState.State = state
	session.FlowState.Nonce = nonce

	// A fresh request invalidates whatever an earlier redirect carried.
	session.FlowState.AuthorizationCode = ""
	session.FlowState.PendingRedirect = ""

	if idx, ok := stepIndexOf(session, domain.StepAuthorizationRequest); ok {
		if err := session.CompleteStep(idx); err != nil {
			s.logger.Warn("completing authorization step failed", "session_id", sessionID, "error", err)
		}
	}
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("authorization url built",
		"session_id", sessionID,
		"response_type", responseType,
		"pkce", pkce != nil)
	return &driving.AuthorizationURLResponse{URL: authURL, State: state, Nonce: nonce}, nil
}

func (s *authorizeService) IngestCallback(ctx context.Context, sessionID, callbackURL string) (*driving.FlowSnapshot, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := stepIndexOf(session, domain.StepCallback); !ok {
		return nil, fmt.Errorf("%w: the %s flow has no query callback", domain.ErrInvalidInput, session.FlowType)
	}

	if session.CurrentStep().Kind != domain.StepCallback {
		// Arrived early: park the URL and let step entry extract it.
		session.FlowState.PendingRedirect = callbackURL
		session.Touch()
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		s.logger.Info("callback parked for later extraction",
			"session_id", sessionID, "current_step", session.CurrentStepIndex)
		return driving.NewFlowSnapshot(session), nil
	}

	if err := ingestCallback(ctx, s.artifacts, session, callbackURL); err != nil {
		return nil, err
	}
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return driving.NewFlowSnapshot(session), nil
}

func (s *authorizeService) IngestFragment(ctx context.Context, sessionID, callbackURL string) (*driving.FlowSnapshot, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := stepIndexOf(session, domain.StepFragmentCallback); !ok {
		return nil, fmt.Errorf("%w: the %s flow has no fragment callback", domain.ErrInvalidInput, session.FlowType)
	}

	if session.CurrentStep().Kind != domain.StepFragmentCallback {
		session.FlowState.PendingRedirect = callbackURL
		session.Touch()
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		s.logger.Info("fragment parked for later extraction",
			"session_id", sessionID, "current_step", session.CurrentStepIndex)
		return driving.NewFlowSnapshot(session), nil
	}

	if err := ingestFragment(ctx, s.artifacts, session, callbackURL); err != nil {
		return nil, err
	}
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return driving.NewFlowSnapshot(session), nil
}

func (s *authorizeService) load(ctx context.Context, sessionID string) (*domain.FlowSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// ensurePKCE returns the session's active bundle, reviving it from the
// artifact store or minting a fresh one. A stored bundle that fails
// validation (a plain-method leftover, for instance) is dropped rather
// than reused. The second return is true when a new bundle was minted.
func ensurePKCE(ctx context.Context, artifacts *ArtifactStore, session *domain.FlowSession) (*domain.PKCEBundle, bool, error) {
	if session.FlowState.PKCE != nil {
		if err := session.FlowState.PKCE.Validate(); err == nil {
			return session.FlowState.PKCE, false, nil
		}
		session.FlowState.PKCE = nil
	}

	bundle, err := artifacts.LoadPKCE(ctx, session.FlowType, session.SpecVersion)
	if err == nil {
		session.FlowState.PKCE = bundle
		return bundle, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrStalePKCE) {
		return nil, false, fmt.Errorf("load pkce bundle: %w", err)
	}

	bundle = domain.NewPKCEBundle()
	if err := artifacts.SavePKCE(ctx, session.FlowType, session.SpecVersion, bundle); err != nil {
		return nil, false, fmt.Errorf("persist pkce bundle: %w", err)
	}
	session.FlowState.PKCE = bundle
	return bundle, true, nil
}

// buildAuthCodeURL assembles the authorization request. The oauth2
// package always writes response_type=code first, so non-code response
// types are applied as an override option.
func buildAuthCodeURL(endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce, responseType string) string {
	conf := &oauth2.Config{
		ClientID:    creds.ClientID,
		RedirectURL: creds.RedirectURI,
		Scopes:      creds.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL: endpoints.AuthorizationEndpoint,
		},
	}

	var opts []oauth2.AuthCodeOption
	if responseType != "code" {
		opts = append(opts, oauth2.SetAuthURLParam("response_type", responseType))
	}
	if pkce != nil {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", pkce.CodeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", string(pkce.CodeChallengeMethod)))
	}
	if nonce != "" {
		opts = append(opts, oauth2.SetAuthURLParam("nonce", nonce))
	}
	if creds.ResponseMode != "" {
		opts = append(opts, oauth2.SetAuthURLParam("response_mode", creds.ResponseMode))
	}
	if creds.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", creds.Audience))
	}
	if creds.LoginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", creds.LoginHint))
	}
	return conf.AuthCodeURL(state, opts...)
}

// ingestCallback extracts an authorization code from a redirect-back
// URL into the session. The caller holds the session guard and saves
// the session afterwards. The state check runs before anything is
// recorded; a mismatched state means the code is not ours to use.
func ingestCallback(ctx context.Context, artifacts *ArtifactStore, session *domain.FlowSession, callbackURL string) error {
	session.FlowState.PendingRedirect = ""

	data, err := domain.ParseCallbackURL(callbackURL)
	if err != nil {
		return err
	}
	if err := domain.VerifyState(session.FlowState.State, data.State); err != nil {
		return err
	}
	if data.Code == "" {
		return fmt.Errorf("%w: callback carried no authorization code", domain.ErrInvalidInput)
	}

	session.FlowState.AuthorizationCode = data.Code
	key := ArtifactKey(session.FlowType, session.SpecVersion, SlotCallback)
	if err := artifacts.SaveJSON(ctx, key, data); err != nil {
		return fmt.Errorf("persist callback data: %w", err)
	}
	if idx, ok := stepIndexOf(session, domain.StepCallback); ok {
		_ = session.CompleteStep(idx)
	}
	return nil
}

// ingestFragment extracts fragment-borne tokens (and, for hybrid, the
// query-string code) into the session. Same contract as ingestCallback.
func ingestFragment(ctx context.Context, artifacts *ArtifactStore, session *domain.FlowSession, callbackURL string) error {
	session.FlowState.PendingRedirect = ""

	data, err := domain.ParseCallbackFragment(session.FlowType, callbackURL)
	if err != nil {
		return err
	}
	if err := domain.VerifyState(session.FlowState.State, data.State); err != nil {
		return err
	}

	if session.FlowType == domain.FlowHybrid {
		if data.Code == "" {
			return fmt.Errorf("%w: hybrid redirect carried no authorization code", domain.ErrInvalidInput)
		}
		session.FlowState.AuthorizationCode = data.Code
	} else if !data.HasToken() {
		return fmt.Errorf("%w: fragment carried no tokens", domain.ErrInvalidInput)
	}

	if data.HasToken() {
		tokens := domain.NewTokenBundle(data.AccessToken, data.TokenType, data.IDToken, "", data.Scope, data.ExpiresIn)
		if session.FlowState.Tokens == nil {
			if err := session.StoreTokens(tokens); err != nil {
				session.ReplaceTokens(tokens)
			}
		} else {
			session.ReplaceTokens(tokens)
		}
		key := ArtifactKey(session.FlowType, session.SpecVersion, SlotTokens)
		if err := artifacts.SaveJSON(ctx, key, tokens); err != nil {
			return fmt.Errorf("persist tokens: %w", err)
		}
	}

	key := ArtifactKey(session.FlowType, session.SpecVersion, SlotCallback)
	if err := artifacts.SaveJSON(ctx, key, data); err != nil {
		return fmt.Errorf("persist fragment data: %w", err)
	}
	if idx, ok := stepIndexOf(session, domain.StepFragmentCallback); ok {
		_ = session.CompleteStep(idx)
	}
	return nil
}

// stepIndexOf finds the index of a step kind within a session's
// topology.
func stepIndexOf(session *domain.FlowSession, kind domain.StepKind) (int, bool) {
	for _, step := range session.Steps() {
		if step.Kind == kind {
			return step.Index, true
		}
	}
	return 0, false
}

// containsIDToken reports whether a response type requests an ID token.
func containsIDToken(responseType string) bool {
	for _, part := range strings.Fields(responseType) {
		if part == "id_token" {
			return true
		}
	}
	return false
}
