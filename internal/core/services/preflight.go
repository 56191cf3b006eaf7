package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
)

// Ensure PreflightService implements the driving port
var _ driving.PreflightService = (*PreflightService)(nil)

// DefaultPreflightTimeout bounds the remote configuration fetch.
const DefaultPreflightTimeout = 30 * time.Second

// checkInput is what every check inspects. App is nil when the provider
// configuration could not be fetched; remote checks then stay silent and
// the unverified areas surface as one warning.
type checkInput struct {
	flowType    domain.FlowType
	specVersion domain.SpecVersion
	creds       *domain.FlowCredentials
	app         *domain.RegisteredApplication
}

// preflightCheck is one named rule in the validation pipeline.
type preflightCheck struct {
	name string
	run  func(in *checkInput, report *domain.ValidationReport)
}

// localChecks run synchronously against the configuration alone, in
// order. They catch what would fail before any network call.
var localChecks = []preflightCheck{
	{name: "required-fields", run: checkRequiredFields},
	{name: "pkce-consistency", run: checkPKCEConsistency},
	{name: "scope-shape", run: checkScopeShape},
	{name: "response-type", run: checkResponseType},
	{name: "spec-profile", run: checkSpecProfile},
}

// remoteChecks compare the configuration against the provider's live
// registered application, in order.
var remoteChecks = []preflightCheck{
	{name: "app-enabled", run: checkAppEnabled},
	{name: "redirect-registered", run: checkRedirectRegistered},
	{name: "grant-allowed", run: checkGrantAllowed},
	{name: "pkce-enforcement", run: checkPKCEEnforcement},
	{name: "auth-method", run: checkAuthMethod},
	{name: "scopes-granted", run: checkScopesGranted},
}

// PreflightServiceConfig holds configuration for the validator.
type PreflightServiceConfig struct {
	Sessions   driven.FlowSessionStore
	Management driven.ManagementAPI
	Guard      *SessionGuard

	// Timeout bounds the remote fetch (default: 30s)
	Timeout time.Duration

	Logger *slog.Logger
}

// PreflightService validates a session's configuration before a protocol
// exchange. Findings that the provider would hard-reject are errors,
// optionally with a machine-applicable fix; anything unverifiable is a
// warning. The validator never mutates credentials itself.
type PreflightService struct {
	sessions   driven.FlowSessionStore
	management driven.ManagementAPI
	guard      *SessionGuard
	timeout    time.Duration
	logger     *slog.Logger
}

// NewPreflightService creates the validator.
func NewPreflightService(cfg PreflightServiceConfig) *PreflightService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultPreflightTimeout
	}
	guard := cfg.Guard
	if guard == nil {
		guard = NewSessionGuard()
	}
	return &PreflightService{
		sessions:   cfg.Sessions,
		management: cfg.Management,
		guard:      guard,
		timeout:    timeout,
		logger:     logger,
	}
}

// Validate runs the full pipeline for a session and records the outcome
// on its current step.
func (s *PreflightService) Validate(ctx context.Context, sessionID string) (*domain.ValidationReport, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report := s.runPipeline(ctx, session)
	session.SetValidation(report.Errors, report.Warnings)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("pre-flight validation finished",
		"session_id", sessionID,
		"passed", report.Passed,
		"errors", len(report.Errors),
		"warnings", len(report.Warnings),
		"fixes", len(report.Fixes))
	return report, nil
}

// ApplyFix patches the session's credentials with one suggestion and
// re-runs validation; a fix without the follow-up pass would let a stale
// verdict stand.
func (s *PreflightService) ApplyFix(ctx context.Context, sessionID string, fix domain.FixSuggestion) (*domain.ValidationReport, error) {
	unlock := s.guard.Lock(sessionID)
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	session.Credentials = fix.Apply(session.Credentials)
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		unlock()
		return nil, fmt.Errorf("save session: %w", err)
	}
	unlock()

	s.logger.Info("fix applied", "session_id", sessionID, "kind", fix.Kind)
	return s.Validate(ctx, sessionID)
}

// ValidateLocal runs only the local-shape checks against an already
// loaded session. Step-entry hooks use this; the caller holds the
// session guard and persists the outcome itself.
func (s *PreflightService) ValidateLocal(session *domain.FlowSession) *domain.ValidationReport {
	in := &checkInput{
		flowType:    session.FlowType,
		specVersion: session.SpecVersion,
		creds:       &session.Credentials,
	}
	report := &domain.ValidationReport{}
	for _, check := range localChecks {
		check.run(in, report)
	}
	report.Finalize()
	return report
}

// runPipeline executes local checks, then remote checks when the live
// application configuration is obtainable within the timeout.
func (s *PreflightService) runPipeline(ctx context.Context, session *domain.FlowSession) *domain.ValidationReport {
	in := &checkInput{
		flowType:    session.FlowType,
		specVersion: session.SpecVersion,
		creds:       &session.Credentials,
	}
	report := &domain.ValidationReport{}
	for _, check := range localChecks {
		check.run(in, report)
	}

	app, reason := s.fetchApplication(ctx, session)
	if app == nil {
		report.AddWarning(fmt.Sprintf(
			"provider configuration not verified (%s): redirect uri, grant type, pkce enforcement, auth method and scopes were checked locally only", reason))
	} else {
		in.app = app
		for _, check := range remoteChecks {
			check.run(in, report)
		}
	}

	report.Finalize()
	return report
}

// fetchApplication obtains the registered application within the
// timeout. A nil result carries the human-readable reason.
func (s *PreflightService) fetchApplication(ctx context.Context, session *domain.FlowSession) (*domain.RegisteredApplication, string) {
	token := session.Credentials.ManagementToken
	if token == "" {
		minted, err := s.management.ObtainWorkerToken(ctx, session.Credentials.EnvironmentID)
		if err != nil {
			if errors.Is(err, domain.ErrNoManagementToken) {
				return nil, "no management token available"
			}
			s.logger.Warn("obtaining worker token failed",
				"session_id", session.ID, "error", err)
			return nil, "management token request failed"
		}
		token = minted
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	app, err := s.management.FetchApplication(fetchCtx, session.Credentials.EnvironmentID, session.Credentials.ClientID, token)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("application fetch timed out",
				"session_id", session.ID, "timeout", s.timeout)
			return nil, fmt.Sprintf("provider did not answer within %s", s.timeout)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Sprintf("client %q not found in environment", session.Credentials.ClientID)
		}
		s.logger.Warn("application fetch failed",
			"session_id", session.ID, "error", err)
		return nil, "application fetch failed"
	}
	return app, ""
}

// --- local checks ---

func checkRequiredFields(in *checkInput, report *domain.ValidationReport) {
	if in.creds.EnvironmentID == "" {
		report.AddError("environment id is required")
	}
	if in.creds.ClientID == "" {
		report.AddError("client id is required")
	}
	if in.flowType.UsesRedirect() && in.creds.RedirectURI == "" {
		report.AddError(fmt.Sprintf("redirect uri is required for the %s flow", in.flowType))
	}
	if in.flowType == domain.FlowClientCredentials {
		if in.creds.TokenAuthMethod == domain.AuthMethodNone {
			report.AddFixableError(
				"client-credentials cannot authenticate with method none",
				domain.FixSuggestion{
					Kind:            domain.FixSetAuthMethod,
					Description:     "switch token auth method to client_secret_basic",
					TokenAuthMethod: domain.AuthMethodBasic,
				})
		}
		if !in.creds.HasSecret() {
			report.AddError("client secret is required for client-credentials")
		}
	}
}

func checkPKCEConsistency(in *checkInput, report *domain.ValidationReport) {
	if in.flowType != domain.FlowAuthorizationCode && in.flowType != domain.FlowHybrid {
		return
	}
	if in.specVersion == domain.SpecOAuth21 && in.creds.PKCEMode == domain.PKCEDisabled {
		report.AddFixableError(
			"oauth 2.1 mandates pkce for the authorization-code flow",
			domain.FixSuggestion{
				Kind:        domain.FixEnablePKCE,
				Description: "enable pkce (required mode)",
			})
	}
	if in.creds.TokenAuthMethod == domain.AuthMethodNone && in.creds.PKCEMode == domain.PKCEDisabled {
		report.AddFixableError(
			"a public client (auth method none) must use pkce",
			domain.FixSuggestion{
				Kind:        domain.FixEnablePKCE,
				Description: "enable pkce (required mode)",
			})
	}
}

func checkScopeShape(in *checkInput, report *domain.ValidationReport) {
	if in.specVersion == domain.SpecOIDC && !in.creds.HasScope("openid") {
		report.AddFixableError(
			"oidc sessions must request the openid scope",
			domain.FixSuggestion{
				Kind:        domain.FixAddScope,
				Description: "add the openid scope",
				Scope:       "openid",
			})
	}
	if in.flowType == domain.FlowClientCredentials && in.creds.HasScope("openid") {
		report.AddWarning("the openid scope has no effect in client-credentials; no user is involved")
	}
}

func checkResponseType(in *checkInput, report *domain.ValidationReport) {
	rt := in.creds.ResponseType
	if rt == "" {
		return
	}
	switch in.flowType {
	case domain.FlowImplicit:
		if !strings.Contains(rt, "token") {
			report.AddFixableError(
				fmt.Sprintf("response type %q returns no tokens in an implicit flow", rt),
				domain.FixSuggestion{
					Kind:         domain.FixSetResponseType,
					Description:  "set response type to \"token id_token\"",
					ResponseType: "token id_token",
				})
		}
	case domain.FlowAuthorizationCode:
		if rt != "code" {
			report.AddFixableError(
				fmt.Sprintf("response type %q does not match the authorization-code flow", rt),
				domain.FixSuggestion{
					Kind:         domain.FixSetResponseType,
					Description:  "set response type to \"code\"",
					ResponseType: "code",
				})
		}
	case domain.FlowHybrid:
		if !strings.Contains(rt, "code") {
			report.AddFixableError(
				fmt.Sprintf("response type %q carries no code; hybrid needs one", rt),
				domain.FixSuggestion{
					Kind:         domain.FixSetResponseType,
					Description:  "set response type to \"code id_token\"",
					ResponseType: "code id_token",
				})
		}
	}
}

func checkSpecProfile(in *checkInput, report *domain.ValidationReport) {
	if in.specVersion == domain.SpecOAuth21 && in.flowType == domain.FlowImplicit {
		report.AddWarning("oauth 2.1 removes the implicit grant; this exercise runs it for comparison only")
	}
	if in.specVersion == domain.SpecOAuth21 && in.creds.TokenAuthMethod == domain.AuthMethodBasic && !in.creds.HasSecret() {
		report.AddWarning("client_secret_basic without a secret will fail at the token endpoint")
	}
}

// --- remote checks ---

func checkAppEnabled(in *checkInput, report *domain.ValidationReport) {
	if !in.app.Enabled {
		report.AddError(fmt.Sprintf("application %q is disabled in the provider console", in.app.ClientID))
	}
}

func checkRedirectRegistered(in *checkInput, report *domain.ValidationReport) {
	if !in.flowType.UsesRedirect() || in.creds.RedirectURI == "" {
		return
	}
	if in.app.AllowsRedirect(in.creds.RedirectURI) {
		return
	}
	if len(in.app.RedirectURIs) == 0 {
		report.AddError("the application has no redirect uris registered; register one in the provider console")
		return
	}
	registered := in.app.RedirectURIs[0]
	report.AddFixableError(
		fmt.Sprintf("redirect uri %q is not registered with the provider", in.creds.RedirectURI),
		domain.FixSuggestion{
			Kind:        domain.FixSetRedirectURI,
			Description: fmt.Sprintf("set redirect uri to %q (registered with the provider)", registered),
			RedirectURI: registered,
		})
}

func checkGrantAllowed(in *checkInput, report *domain.ValidationReport) {
	for _, grant := range wireGrantTypes(in.flowType) {
		if !in.app.AllowsGrant(grant) {
			report.AddError(fmt.Sprintf("grant type %q is not enabled for this application", grant))
		}
	}
}

func checkPKCEEnforcement(in *checkInput, report *domain.ValidationReport) {
	if !in.app.PKCEEnforced || in.creds.PKCEMode != domain.PKCEDisabled {
		return
	}
	if in.flowType == domain.FlowAuthorizationCode || in.flowType == domain.FlowHybrid {
		report.AddFixableError(
			"the provider enforces pkce for this application but pkce is disabled locally",
			domain.FixSuggestion{
				Kind:        domain.FixEnablePKCE,
				Description: "enable pkce (required mode)",
			})
	}
}

func checkAuthMethod(in *checkInput, report *domain.ValidationReport) {
	registered := domain.TokenAuthMethod(in.app.TokenAuthMethod)
	if registered == "" || !registered.Valid() {
		return
	}
	if in.creds.TokenAuthMethod != registered {
		report.AddFixableError(
			fmt.Sprintf("token auth method %q does not match the registered %q", in.creds.TokenAuthMethod, registered),
			domain.FixSuggestion{
				Kind:            domain.FixSetAuthMethod,
				Description:     fmt.Sprintf("switch token auth method to %q", registered),
				TokenAuthMethod: registered,
			})
	}
}

func checkScopesGranted(in *checkInput, report *domain.ValidationReport) {
	for _, scope := range in.creds.Scopes {
		if !in.app.AllowsScope(scope) {
			report.AddFixableError(
				fmt.Sprintf("scope %q is not granted to this application", scope),
				domain.FixSuggestion{
					Kind:        domain.FixDropScope,
					Description: fmt.Sprintf("drop scope %q (or grant it in the provider console)", scope),
					Scope:       scope,
				})
		}
	}
}

// wireGrantTypes maps a flow type onto the grant identifiers a provider
// registers.
func wireGrantTypes(flowType domain.FlowType) []string {
	switch flowType {
	case domain.FlowAuthorizationCode:
		return []string{"authorization_code"}
	case domain.FlowImplicit:
		return []string{"implicit"}
	case domain.FlowClientCredentials:
		return []string{"client_credentials"}
	case domain.FlowDeviceCode:
		return []string{"urn:ietf:params:oauth:grant-type:device_code"}
	case domain.FlowHybrid:
		return []string{"authorization_code", "implicit"}
	default:
		return nil
	}
}
