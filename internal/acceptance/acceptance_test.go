// Package acceptance runs Gherkin scenarios against the real service
// wiring over in-memory adapters. Only the provider side is faked.
package acceptance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/cucumber/godog"

	"github.com/grantlab/grantlab-core/internal/adapters/driven/memory"
	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
	"github.com/grantlab/grantlab-core/internal/core/services"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("acceptance scenarios failed")
	}
}

func initializeScenario(sc *godog.ScenarioContext) {
	w := newFlowWorld()
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*w = *newFlowWorld()
		return ctx, nil
	})

	sc.Step(`^a fresh "([^"]*)" session against the "([^"]*)" profile$`, w.aFreshSession)
	sc.Step(`^I run the pre-flight checks$`, w.iRunThePreFlightChecks)
	sc.Step(`^the checks pass$`, w.theChecksPass)
	sc.Step(`^I generate pkce parameters$`, w.iGeneratePKCEParameters)
	sc.Step(`^the challenge method is "([^"]*)"$`, w.theChallengeMethodIs)
	sc.Step(`^I build the authorization request$`, w.iBuildTheAuthorizationRequest)
	sc.Step(`^the request url carries the state and the code challenge$`, w.theRequestURLCarriesStateAndChallenge)
	sc.Step(`^the provider redirects back with the issued code$`, w.theProviderRedirectsBack)
	sc.Step(`^the provider redirects back with a forged state$`, w.theProviderRedirectsBackForged)
	sc.Step(`^the callback is rejected for a state mismatch$`, w.theCallbackIsRejected)
	sc.Step(`^the session holds the issued authorization code$`, w.theSessionHoldsTheIssuedCode)
	sc.Step(`^the session holds no authorization code$`, w.theSessionHoldsNoCode)
	sc.Step(`^I exchange the code for tokens$`, w.iExchangeTheCode)
	sc.Step(`^I run the client-credentials grant$`, w.iRunTheClientCredentialsGrant)
	sc.Step(`^the session holds an access token$`, w.theSessionHoldsAnAccessToken)
	sc.Step(`^the provider saw the pkce verifier$`, w.theProviderSawTheVerifier)
	sc.Step(`^the provider saw the scope "([^"]*)"$`, w.theProviderSawTheScope)
	sc.Step(`^I introspect the token$`, w.iIntrospectTheToken)
	sc.Step(`^the token is reported active$`, w.theTokenIsReportedActive)
	sc.Step(`^I walk the remaining steps$`, w.iWalkTheRemainingSteps)
	sc.Step(`^the session rests on the flow summary$`, w.theSessionRestsOnTheFlowSummary)
}

// flowWorld carries the wired services plus the state a scenario
// accumulates between steps.
type flowWorld struct {
	provider   *fakeProvider
	management *fakeManagement

	flows     driving.FlowService
	authorize driving.AuthorizeService
	tokens    driving.TokenService
	preflight driving.PreflightService

	sessionID     string
	creds         domain.FlowCredentials
	report        *domain.ValidationReport
	authzURL      *driving.AuthorizationURLResponse
	pkce          *domain.PKCEBundle
	introspection *driving.IntrospectionResult
	lastErr       error
}

func newFlowWorld() *flowWorld {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := memory.NewFlowSessionStore()
	artifacts := services.NewArtifactStore(services.ArtifactStoreConfig{
		Fast:   memory.NewArtifactBackend(),
		Logger: logger,
	})
	guard := services.NewSessionGuard()
	provider := &fakeProvider{issuedCode: "acceptance-code"}
	management := &fakeManagement{}
	resolver := &fakeResolver{}

	preflight := services.NewPreflightService(services.PreflightServiceConfig{
		Sessions:   sessions,
		Management: management,
		Guard:      guard,
		Logger:     logger,
	})
	return &flowWorld{
		provider:   provider,
		management: management,
		preflight:  preflight,
		flows: services.NewFlowService(services.FlowServiceConfig{
			Sessions:  sessions,
			Artifacts: artifacts,
			Guard:     guard,
			Preflight: preflight,
			Resolver:  resolver,
			Logger:    logger,
		}),
		authorize: services.NewAuthorizeService(services.AuthorizeServiceConfig{
			Sessions:  sessions,
			Artifacts: artifacts,
			Guard:     guard,
			Resolver:  resolver,
			Logger:    logger,
		}),
		tokens: services.NewTokenService(services.TokenServiceConfig{
			Sessions:  sessions,
			Artifacts: artifacts,
			Guard:     guard,
			Gateway:   provider,
			Resolver:  resolver,
			Logger:    logger,
		}),
	}
}

func (w *flowWorld) aFreshSession(ctx context.Context, flowType, profile string) error {
	creds := domain.FlowCredentials{
		EnvironmentID: "env-acceptance",
		ClientID:      "client-acceptance",
		ClientSecret:  "s3cret-acceptance",
		RedirectURI:   "https://localhost:3000/callback",
		Scopes:        []string{"openid", "profile"},
	}
	if domain.FlowType(flowType) == domain.FlowClientCredentials {
		creds.RedirectURI = ""
		creds.Scopes = []string{"api:read"}
	}
	w.creds = creds
	w.management.app = &domain.RegisteredApplication{
		ClientID:        creds.ClientID,
		Name:            "Acceptance Demo",
		Enabled:         true,
		RedirectURIs:    []string{"https://localhost:3000/callback"},
		GrantTypes:      []string{"authorization_code", "client_credentials"},
		ResponseTypes:   []string{"code"},
		TokenAuthMethod: string(domain.AuthMethodBasic),
		PKCEEnforced:    true,
		AllowedScopes:   []string{"openid", "profile", "email", "api:read"},
	}

	snap, err := w.flows.Create(ctx, driving.CreateFlowRequest{
		FlowType:    domain.FlowType(flowType),
		SpecVersion: domain.SpecVersion(profile),
		Credentials: creds,
	})
	if err != nil {
		return err
	}
	w.sessionID = snap.ID
	return nil
}

func (w *flowWorld) iRunThePreFlightChecks(ctx context.Context) error {
	report, err := w.preflight.Validate(ctx, w.sessionID)
	if err != nil {
		return err
	}
	w.report = report
	return nil
}

func (w *flowWorld) theChecksPass() error {
	if w.report == nil {
		return errors.New("no validation report recorded")
	}
	if !w.report.Passed {
		return fmt.Errorf("validation failed: %v", w.report.Errors)
	}
	return nil
}

func (w *flowWorld) iGeneratePKCEParameters(ctx context.Context) error {
	bundle, err := w.authorize.GeneratePKCE(ctx, w.sessionID)
	if err != nil {
		return err
	}
	w.pkce = bundle
	return nil
}

func (w *flowWorld) theChallengeMethodIs(method string) error {
	if w.pkce == nil {
		return errors.New("no pkce bundle recorded")
	}
	if w.pkce.CodeChallengeMethod != method {
		return fmt.Errorf("challenge method %q, expected %q", w.pkce.CodeChallengeMethod, method)
	}
	return nil
}

func (w *flowWorld) iBuildTheAuthorizationRequest(ctx context.Context) error {
	resp, err := w.authorize.BuildAuthorizationURL(ctx, w.sessionID)
	if err != nil {
		return err
	}
	w.authzURL = resp
	return nil
}

func (w *flowWorld) theRequestURLCarriesStateAndChallenge() error {
	if w.authzURL == nil {
		return errors.New("no authorization url recorded")
	}
	parsed, err := url.Parse(w.authzURL.URL)
	if err != nil {
		return fmt.Errorf("parse authorization url: %w", err)
	}
	query := parsed.Query()
	if got := query.Get("state"); got != w.authzURL.State {
		return fmt.Errorf("state param %q, expected %q", got, w.authzURL.State)
	}
	if got := query.Get("code_challenge"); got != w.pkce.CodeChallenge {
		return fmt.Errorf("code_challenge param %q, expected %q", got, w.pkce.CodeChallenge)
	}
	return nil
}

func (w *flowWorld) theProviderRedirectsBack(ctx context.Context) error {
	callback := w.creds.RedirectURI + "?code=" + w.provider.issuedCode + "&state=" + w.authzURL.State
	_, err := w.authorize.IngestCallback(ctx, w.sessionID, callback)
	return err
}

func (w *flowWorld) theProviderRedirectsBackForged(ctx context.Context) error {
	callback := w.creds.RedirectURI + "?code=" + w.provider.issuedCode + "&state=forged"
	_, w.lastErr = w.authorize.IngestCallback(ctx, w.sessionID, callback)
	return nil
}

func (w *flowWorld) theCallbackIsRejected() error {
	if !errors.Is(w.lastErr, domain.ErrStateMismatch) {
		return fmt.Errorf("expected a state mismatch, got %v", w.lastErr)
	}
	return nil
}

func (w *flowWorld) theSessionHoldsTheIssuedCode(ctx context.Context) error {
	snap, err := w.flows.Get(ctx, w.sessionID)
	if err != nil {
		return err
	}
	if snap.State.AuthorizationCode != w.provider.issuedCode {
		return fmt.Errorf("authorization code %q, expected %q", snap.State.AuthorizationCode, w.provider.issuedCode)
	}
	return nil
}

func (w *flowWorld) theSessionHoldsNoCode(ctx context.Context) error {
	snap, err := w.flows.Get(ctx, w.sessionID)
	if err != nil {
		return err
	}
	if snap.State.AuthorizationCode != "" {
		return fmt.Errorf("unexpected authorization code %q", snap.State.AuthorizationCode)
	}
	return nil
}

func (w *flowWorld) iExchangeTheCode(ctx context.Context) error {
	_, err := w.tokens.ExchangeCode(ctx, w.sessionID)
	return err
}

func (w *flowWorld) iRunTheClientCredentialsGrant(ctx context.Context) error {
	_, err := w.tokens.ClientCredentials(ctx, w.sessionID)
	return err
}

func (w *flowWorld) theSessionHoldsAnAccessToken(ctx context.Context) error {
	snap, err := w.flows.Get(ctx, w.sessionID)
	if err != nil {
		return err
	}
	if snap.State.Tokens == nil || snap.State.Tokens.AccessToken == "" {
		return errors.New("no access token on the session")
	}
	return nil
}

func (w *flowWorld) theProviderSawTheVerifier() error {
	seen := w.provider.verifierSeen()
	if seen != w.pkce.CodeVerifier {
		return fmt.Errorf("provider saw verifier %q, expected %q", seen, w.pkce.CodeVerifier)
	}
	return nil
}

func (w *flowWorld) theProviderSawTheScope(scope string) error {
	seen := w.provider.scopesSeen()
	if !slices.Contains(seen, scope) {
		return fmt.Errorf("provider saw scopes %v, expected %q among them", seen, scope)
	}
	return nil
}

func (w *flowWorld) iIntrospectTheToken(ctx context.Context) error {
	result, err := w.tokens.Introspect(ctx, w.sessionID)
	if err != nil {
		return err
	}
	w.introspection = result
	return nil
}

func (w *flowWorld) theTokenIsReportedActive() error {
	if w.introspection == nil {
		return errors.New("no introspection result recorded")
	}
	if !w.introspection.Available {
		return fmt.Errorf("introspection unavailable: %s", w.introspection.Reason)
	}
	if active, _ := w.introspection.Claims["active"].(bool); !active {
		return fmt.Errorf("token not active: %v", w.introspection.Claims)
	}
	return nil
}

func (w *flowWorld) iWalkTheRemainingSteps(ctx context.Context) error {
	snap, err := w.flows.Get(ctx, w.sessionID)
	if err != nil {
		return err
	}
	for snap.CurrentStepIndex < snap.TotalSteps-1 {
		if _, err := w.flows.MarkStepComplete(ctx, w.sessionID); err != nil {
			return fmt.Errorf("complete step %d: %w", snap.CurrentStepIndex, err)
		}
		next, err := w.flows.GoNext(ctx, w.sessionID)
		if err != nil {
			return fmt.Errorf("advance from step %d: %w", snap.CurrentStepIndex, err)
		}
		snap = next
	}
	return nil
}

func (w *flowWorld) theSessionRestsOnTheFlowSummary(ctx context.Context) error {
	snap, err := w.flows.Get(ctx, w.sessionID)
	if err != nil {
		return err
	}
	if snap.CurrentStepIndex != snap.TotalSteps-1 {
		return fmt.Errorf("on step %d of %d", snap.CurrentStepIndex, snap.TotalSteps)
	}
	if kind := snap.Steps[snap.CurrentStepIndex].Kind; kind != domain.StepDocumentation {
		return fmt.Errorf("resting on %q, expected the summary step", kind)
	}
	return nil
}

// fakeProvider plays the authorization server's back channel. It issues
// one fixed code and records what the client presents.
type fakeProvider struct {
	issuedCode string

	mu           sync.Mutex
	seenVerifier string
	seenScopes   []string
}

var _ driven.IdentityProviderGateway = (*fakeProvider)(nil)

func (p *fakeProvider) ExchangeCode(_ context.Context, _ *driven.Endpoints, creds *domain.FlowCredentials, code, codeVerifier string) (*domain.TokenBundle, error) {
	p.mu.Lock()
	p.seenVerifier = codeVerifier
	p.mu.Unlock()
	if code != p.issuedCode {
		return nil, &domain.OAuthError{Code: "invalid_grant", Description: "unknown authorization code"}
	}
	return domain.NewTokenBundle("acceptance-access-token", "Bearer", "", "acceptance-refresh-token", strings.Join(creds.Scopes, " "), 3600), nil
}

func (p *fakeProvider) ClientCredentialsToken(_ context.Context, _ *driven.Endpoints, creds *domain.FlowCredentials) (*domain.TokenBundle, error) {
	p.mu.Lock()
	p.seenScopes = slices.Clone(creds.Scopes)
	p.mu.Unlock()
	return domain.NewTokenBundle("acceptance-access-token", "Bearer", "", "", strings.Join(creds.Scopes, " "), 3600), nil
}

func (p *fakeProvider) Introspect(_ context.Context, _ *driven.Endpoints, creds *domain.FlowCredentials, _ string) (map[string]any, error) {
	return map[string]any{"active": true, "client_id": creds.ClientID, "token_type": "Bearer"}, nil
}

func (p *fakeProvider) RequestDeviceCode(context.Context, *driven.Endpoints, *domain.FlowCredentials) (*domain.DeviceCodeBundle, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) PollDeviceToken(context.Context, *driven.Endpoints, *domain.FlowCredentials, string) (*domain.TokenBundle, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) RefreshToken(context.Context, *driven.Endpoints, *domain.FlowCredentials, string) (*domain.TokenBundle, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) UserInfo(context.Context, *driven.Endpoints, string) (map[string]any, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) verifierSeen() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seenVerifier
}

func (p *fakeProvider) scopesSeen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.seenScopes)
}

// fakeResolver hands every environment the same conventional layout.
type fakeResolver struct{}

var _ driven.EndpointResolver = (*fakeResolver)(nil)

func (r *fakeResolver) Resolve(_ context.Context, environmentID string) (*driven.Endpoints, error) {
	issuer := fmt.Sprintf("https://auth.example.com/%s/as", environmentID)
	return &driven.Endpoints{
		Issuer:                issuer,
		AuthorizationEndpoint: issuer + "/authorize",
		TokenEndpoint:         issuer + "/token",
		DeviceAuthEndpoint:    issuer + "/device_authorization",
		IntrospectionEndpoint: issuer + "/introspect",
		UserInfoEndpoint:      issuer + "/userinfo",
		JWKSEndpoint:          issuer + "/jwks",
		Discovered:            true,
	}, nil
}

func (r *fakeResolver) Invalidate(string) {}

// fakeManagement returns whatever registration the scenario configured.
type fakeManagement struct {
	app *domain.RegisteredApplication
}

var _ driven.ManagementAPI = (*fakeManagement)(nil)

func (m *fakeManagement) FetchApplication(context.Context, string, string, string) (*domain.RegisteredApplication, error) {
	if m.app == nil {
		return nil, domain.ErrNotFound
	}
	return m.app, nil
}

func (m *fakeManagement) ObtainWorkerToken(context.Context, string) (string, error) {
	return "acceptance-worker-token", nil
}
