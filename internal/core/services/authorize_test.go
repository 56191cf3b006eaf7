package services

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// seedRedirectSession stores a session parked at the given step index with
// all earlier steps completed.
func seedRedirectSession(t *testing.T, store *mockSessionStore, flowType domain.FlowType, specVersion domain.SpecVersion, stepIndex int, mutate func(*domain.FlowSession)) string {
	t.Helper()
	session, err := domain.NewFlowSession(flowType, specVersion, testCredentials(), time.Hour)
	if err != nil {
		t.Fatalf("NewFlowSession() error = %v", err)
	}
	session.CurrentStepIndex = stepIndex
	for i := 0; i < stepIndex; i++ {
		session.CompletedSteps = append(session.CompletedSteps, i)
	}
	if mutate != nil {
		mutate(session)
	}
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return session.ID
}

func TestAuthorizeService_GeneratePKCE(t *testing.T) {
	store := newMockSessionStore()
	fast := newStubBackend("memory")
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: fast}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 1, nil)

	bundle, err := svc.GeneratePKCE(context.Background(), id)
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}
	if bundle.CodeVerifier == "" || bundle.CodeChallenge == "" {
		t.Fatalf("incomplete bundle: %+v", bundle)
	}
	if bundle.CodeChallengeMethod != domain.ChallengeS256 {
		t.Errorf("expected S256, got %q", bundle.CodeChallengeMethod)
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.FlowState.PKCE == nil || session.FlowState.PKCE.CodeVerifier != bundle.CodeVerifier {
		t.Error("expected the bundle stored on the session")
	}
	if !slices.Contains(session.CompletedSteps, 1) {
		t.Errorf("expected the pkce step completed, got %v", session.CompletedSteps)
	}
	if !fast.has("artifact:authorization-code:oidc:pkce") {
		t.Error("expected the bundle persisted as an artifact")
	}
}

func TestAuthorizeService_GeneratePKCE_WrongFlow(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowDeviceCode, domain.SpecOIDC, 0, nil)

	_, err := svc.GeneratePKCE(context.Background(), id)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthorizeService_GeneratePKCE_Disabled(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOAuth20, 0, func(s *domain.FlowSession) {
		s.Credentials.PKCEMode = domain.PKCEDisabled
	})

	_, err := svc.GeneratePKCE(context.Background(), id)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthorizeService_GeneratePKCE_SessionExpired(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 1, func(s *domain.FlowSession) {
		s.ExpiresAt = time.Now().Add(-time.Minute)
	})

	_, err := svc.GeneratePKCE(context.Background(), id)
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestAuthorizeService_BuildAuthorizationURL(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	pkce := domain.NewPKCEBundle()
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.PKCE = pkce
	})

	resp, err := svc.BuildAuthorizationURL(context.Background(), id)
	if err != nil {
		t.Fatalf("BuildAuthorizationURL() error = %v", err)
	}
	if resp.State == "" || resp.Nonce == "" {
		t.Fatalf("expected state and nonce, got %+v", resp)
	}

	parsed, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("parsing authorization url: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-1" {
		t.Errorf("unexpected client_id: %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "https://localhost:3000/callback" {
		t.Errorf("unexpected redirect_uri: %q", q.Get("redirect_uri"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("unexpected response_type: %q", q.Get("response_type"))
	}
	if q.Get("scope") != "openid profile" {
		t.Errorf("unexpected scope: %q", q.Get("scope"))
	}
	if q.Get("state") != resp.State {
		t.Error("expected the response state in the url")
	}
	if q.Get("nonce") != resp.Nonce {
		t.Error("expected the response nonce in the url")
	}
	if q.Get("code_challenge") != pkce.CodeChallenge {
		t.Error("expected the session's pkce challenge in the url")
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("unexpected challenge method: %q", q.Get("code_challenge_method"))
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.FlowState.State != resp.State || session.FlowState.Nonce != resp.Nonce {
		t.Error("expected state and nonce bound to the session")
	}
	if session.FlowState.AuthorizationURL != resp.URL {
		t.Error("expected the url stored on the session")
	}
	if !slices.Contains(session.CompletedSteps, 2) {
		t.Errorf("expected the request step completed, got %v", session.CompletedSteps)
	}
}

func TestAuthorizeService_BuildAuthorizationURL_MintsPKCE(t *testing.T) {
	store := newMockSessionStore()
	fast := newStubBackend("memory")
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: fast}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	resp, err := svc.BuildAuthorizationURL(context.Background(), id)
	if err != nil {
		t.Fatalf("BuildAuthorizationURL() error = %v", err)
	}
	parsed, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("parsing authorization url: %v", err)
	}
	if parsed.Query().Get("code_challenge") == "" {
		t.Error("expected a minted challenge in the url")
	}
	if !fast.has("artifact:authorization-code:oidc:pkce") {
		t.Error("expected the minted bundle persisted")
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !slices.Contains(session.CompletedSteps, 1) {
		t.Errorf("expected the pkce step completed alongside, got %v", session.CompletedSteps)
	}
}

func TestAuthorizeService_BuildAuthorizationURL_ResumesStoredPKCE(t *testing.T) {
	store := newMockSessionStore()
	artifacts := NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")})
	stored := domain.NewPKCEBundle()
	if err := artifacts.SavePKCE(context.Background(), domain.FlowAuthorizationCode, domain.SpecOIDC, stored); err != nil {
		t.Fatalf("SavePKCE() error = %v", err)
	}
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: artifacts,
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	resp, err := svc.BuildAuthorizationURL(context.Background(), id)
	if err != nil {
		t.Fatalf("BuildAuthorizationURL() error = %v", err)
	}
	parsed, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("parsing authorization url: %v", err)
	}
	if parsed.Query().Get("code_challenge") != stored.CodeChallenge {
		t.Error("expected the stored bundle reused instead of a fresh one")
	}
}

func TestAuthorizeService_BuildAuthorizationURL_ImplicitOmitsPKCE(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowImplicit, domain.SpecOIDC, 1, nil)

	resp, err := svc.BuildAuthorizationURL(context.Background(), id)
	if err != nil {
		t.Fatalf("BuildAuthorizationURL() error = %v", err)
	}
	parsed, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("parsing authorization url: %v", err)
	}
	q := parsed.Query()
	if q.Get("response_type") != "token id_token" {
		t.Errorf("unexpected response_type: %q", q.Get("response_type"))
	}
	if q.Get("code_challenge") != "" {
		t.Error("implicit requests must not carry a challenge")
	}
	if q.Get("nonce") == "" {
		t.Error("expected a nonce for the id_token request")
	}
}

func TestAuthorizeService_BuildAuthorizationURL_OptionalParams(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.Credentials.ResponseMode = "pi.flow"
		s.Credentials.Audience = "https://api.example.com"
		s.Credentials.LoginHint = "user@example.com"
	})

	resp, err := svc.BuildAuthorizationURL(context.Background(), id)
	if err != nil {
		t.Fatalf("BuildAuthorizationURL() error = %v", err)
	}
	parsed, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("parsing authorization url: %v", err)
	}
	q := parsed.Query()
	if q.Get("response_mode") != "pi.flow" {
		t.Errorf("unexpected response_mode: %q", q.Get("response_mode"))
	}
	if q.Get("audience") != "https://api.example.com" {
		t.Errorf("unexpected audience: %q", q.Get("audience"))
	}
	if q.Get("login_hint") != "user@example.com" {
		t.Errorf("unexpected login_hint: %q", q.Get("login_hint"))
	}
}

func TestAuthorizeService_BuildAuthorizationURL_WrongFlow(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowClientCredentials, domain.SpecOAuth20, 0, nil)

	_, err := svc.BuildAuthorizationURL(context.Background(), id)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthorizeService_BuildAuthorizationURL_ResolverError(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{resolveErr: errors.New("discovery unreachable")},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	_, err := svc.BuildAuthorizationURL(context.Background(), id)
	if err == nil || !strings.Contains(err.Error(), "resolve endpoints") {
		t.Errorf("expected a resolve error, got %v", err)
	}
}

func TestAuthorizeService_IngestCallback(t *testing.T) {
	store := newMockSessionStore()
	fast := newStubBackend("memory")
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: fast}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 3, func(s *domain.FlowSession) {
		s.FlowState.State = "state-123"
	})

	snap, err := svc.IngestCallback(context.Background(), id, "https://localhost:3000/callback?code=abc123&state=state-123")
	if err != nil {
		t.Fatalf("IngestCallback() error = %v", err)
	}
	if snap.State.AuthorizationCode != "abc123" {
		t.Errorf("unexpected code: %q", snap.State.AuthorizationCode)
	}
	if !slices.Contains(snap.CompletedSteps, 3) {
		t.Errorf("expected the callback step completed, got %v", snap.CompletedSteps)
	}
	if !fast.has("artifact:authorization-code:oidc:callback") {
		t.Error("expected the callback payload persisted")
	}
}

func TestAuthorizeService_IngestCallback_ParkedEarly(t *testing.T) {
	store := newMockSessionStore()
	fast := newStubBackend("memory")
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: fast}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 1, func(s *domain.FlowSession) {
		s.FlowState.State = "state-123"
	})

	raw := "https://localhost:3000/callback?code=abc123&state=state-123"
	snap, err := svc.IngestCallback(context.Background(), id, raw)
	if err != nil {
		t.Fatalf("IngestCallback() error = %v", err)
	}
	if snap.State.PendingRedirect != raw {
		t.Error("expected the url parked on the session")
	}
	if snap.State.AuthorizationCode != "" {
		t.Error("expected no extraction before the callback step")
	}
	if fast.has("artifact:authorization-code:oidc:callback") {
		t.Error("expected no artifact before extraction")
	}
}

func TestAuthorizeService_IngestCallback_StateMismatch(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 3, func(s *domain.FlowSession) {
		s.FlowState.State = "state-123"
	})

	_, err := svc.IngestCallback(context.Background(), id, "https://localhost:3000/callback?code=abc123&state=evil")
	if !errors.Is(err, domain.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.FlowState.AuthorizationCode != "" {
		t.Error("a mismatched callback must not leave a code behind")
	}
}

func TestAuthorizeService_IngestCallback_ProviderError(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 3, func(s *domain.FlowSession) {
		s.FlowState.State = "state-123"
	})

	_, err := svc.IngestCallback(context.Background(), id, "https://localhost:3000/callback?error=access_denied&error_description=user+cancelled&state=state-123")
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

func TestAuthorizeService_IngestCallback_WrongFlow(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowImplicit, domain.SpecOIDC, 2, nil)

	_, err := svc.IngestCallback(context.Background(), id, "https://localhost:3000/callback?code=abc123&state=s")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthorizeService_IngestFragment_Implicit(t *testing.T) {
	store := newMockSessionStore()
	fast := newStubBackend("memory")
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: fast}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowImplicit, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.State = "state-123"
	})

	raw := "https://localhost:3000/callback#access_token=frag-token&token_type=Bearer&id_token=header.payload.sig&expires_in=3600&scope=openid&state=state-123"
	snap, err := svc.IngestFragment(context.Background(), id, raw)
	if err != nil {
		t.Fatalf("IngestFragment() error = %v", err)
	}
	if snap.State.Tokens == nil || snap.State.Tokens.AccessToken != "frag-token" {
		t.Fatalf("expected fragment tokens on the session, got %+v", snap.State.Tokens)
	}
	if snap.State.Tokens.IDToken != "header.payload.sig" {
		t.Errorf("unexpected id token: %q", snap.State.Tokens.IDToken)
	}
	if !slices.Contains(snap.CompletedSteps, 2) {
		t.Errorf("expected the fragment step completed, got %v", snap.CompletedSteps)
	}
	if !fast.has("artifact:implicit:oidc:tokens") || !fast.has("artifact:implicit:oidc:callback") {
		t.Error("expected tokens and callback payload persisted")
	}
}

func TestAuthorizeService_IngestFragment_Hybrid(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowHybrid, domain.SpecOIDC, 3, func(s *domain.FlowSession) {
		s.FlowState.State = "state-123"
	})

	raw := "https://localhost:3000/callback#code=hy-code&access_token=frag-token&token_type=Bearer&state=state-123"
	snap, err := svc.IngestFragment(context.Background(), id, raw)
	if err != nil {
		t.Fatalf("IngestFragment() error = %v", err)
	}
	if snap.State.AuthorizationCode != "hy-code" {
		t.Errorf("unexpected code: %q", snap.State.AuthorizationCode)
	}
	if snap.State.Tokens == nil || snap.State.Tokens.AccessToken != "frag-token" {
		t.Error("expected the fragment token recorded")
	}
}

func TestAuthorizeService_IngestFragment_HybridMissingCode(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowHybrid, domain.SpecOIDC, 3, func(s *domain.FlowSession) {
		s.FlowState.State = "state-123"
	})

	_, err := svc.IngestFragment(context.Background(), id, "https://localhost:3000/callback#access_token=frag-token&token_type=Bearer&state=state-123")
	if err == nil || !strings.Contains(err.Error(), "no authorization code") {
		t.Errorf("expected a missing-code error, got %v", err)
	}
}

func TestAuthorizeService_IngestFragment_NoTokens(t *testing.T) {
	store := newMockSessionStore()
	svc := NewAuthorizeService(AuthorizeServiceConfig{
		Sessions:  store,
		Artifacts: NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")}),
		Resolver:  &stubResolver{endpoints: testEndpoints()},
	})
	id := seedRedirectSession(t, store, domain.FlowImplicit, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.State = "state-123"
	})

	_, err := svc.IngestFragment(context.Background(), id, "https://localhost:3000/callback#state=state-123")
	if err == nil || !strings.Contains(err.Error(), "no tokens") {
		t.Errorf("expected a no-tokens error, got %v", err)
	}
}
