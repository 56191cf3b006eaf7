package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
)

// mockDirectGateway implements driven.DirectAuthGateway.
type mockDirectGateway struct {
	startFn          func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error)
	checkFn          func(ctx context.Context, endpoints *driven.Endpoints, correlator, username, password string) (map[string]any, error)
	resumeFn         func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, correlator, resumeURL string) (map[string]any, error)
	changePasswordFn func(ctx context.Context, endpoints *driven.Endpoints, workerToken, username, currentPassword, newPassword string) error
}

func (m *mockDirectGateway) StartDirectAuth(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
	if m.startFn != nil {
		return m.startFn(ctx, endpoints, creds, pkce, state, nonce)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDirectGateway) CheckCredentials(ctx context.Context, endpoints *driven.Endpoints, correlator, username, password string) (map[string]any, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, endpoints, correlator, username, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDirectGateway) ResumeDirectAuth(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, correlator, resumeURL string) (map[string]any, error) {
	if m.resumeFn != nil {
		return m.resumeFn(ctx, endpoints, creds, correlator, resumeURL)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDirectGateway) ChangePassword(ctx context.Context, endpoints *driven.Endpoints, workerToken, username, currentPassword, newPassword string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, endpoints, workerToken, username, currentPassword, newPassword)
	}
	return errors.New("not implemented")
}

func newRedirectlessService(store *mockSessionStore, fast *stubBackend, gateway *mockDirectGateway, management *mockManagement) driving.RedirectlessService {
	if management == nil {
		management = &mockManagement{}
	}
	return NewRedirectlessService(RedirectlessServiceConfig{
		Sessions:   store,
		Artifacts:  NewArtifactStore(ArtifactStoreConfig{Fast: fast}),
		Gateway:    gateway,
		Resolver:   &stubResolver{endpoints: testEndpoints()},
		Management: management,
	})
}

func TestRedirectlessService_Start_CredentialsRequired(t *testing.T) {
	store := newMockSessionStore()
	fast := newStubBackend("memory")
	var gotPKCE *domain.PKCEBundle
	var gotState, gotNonce string
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			gotPKCE, gotState, gotNonce = pkce, state, nonce
			return map[string]any{
				"status":    "USERNAME_PASSWORD_REQUIRED",
				"id":        "corr-1",
				"resumeUrl": "https://auth.example.com/resume",
			}, nil
		},
	}
	svc := newRedirectlessService(store, fast, gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	outcome, err := svc.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusUsernamePasswordRequired {
		t.Errorf("unexpected status: %s", outcome.Status)
	}
	if !outcome.AwaitingCredentials {
		t.Error("expected the outcome to ask for credentials")
	}
	if outcome.NextStepIndex != -1 {
		t.Errorf("expected no step change, got %d", outcome.NextStepIndex)
	}
	if gotPKCE == nil || gotState == "" || gotNonce == "" {
		t.Error("expected pkce, state and nonce on the initial request")
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.FlowState.Correlator != "corr-1" {
		t.Errorf("unexpected correlator: %q", session.FlowState.Correlator)
	}
	if session.FlowState.ResumeURL != "https://auth.example.com/resume" {
		t.Errorf("unexpected resume url: %q", session.FlowState.ResumeURL)
	}
	if !fast.has("artifact:authorization-code:oidc:correlator") {
		t.Error("expected the correlator persisted as an artifact")
	}
}

func TestRedirectlessService_Start_WrongFlow(t *testing.T) {
	store := newMockSessionStore()
	svc := newRedirectlessService(store, newStubBackend("memory"), &mockDirectGateway{}, nil)
	id := seedRedirectSession(t, store, domain.FlowDeviceCode, domain.SpecOIDC, 0, nil)

	_, err := svc.Start(context.Background(), id)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRedirectlessService_Start_CompletedWithCode(t *testing.T) {
	store := newMockSessionStore()
	fast := newStubBackend("memory")
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			return map[string]any{
				"status":            "COMPLETED",
				"id":                "corr-1",
				"authorizeResponse": map[string]any{"code": "rl-code"},
			}, nil
		},
	}
	svc := newRedirectlessService(store, fast, gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	outcome, err := svc.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusCompleted || outcome.Code != "rl-code" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if outcome.TokensObtained {
		t.Error("a code-only completion yields no tokens")
	}
	if outcome.NextStepIndex != 4 {
		t.Errorf("expected a jump to the exchange step, got %d", outcome.NextStepIndex)
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.FlowState.AuthorizationCode != "rl-code" {
		t.Errorf("unexpected code: %q", session.FlowState.AuthorizationCode)
	}
	if session.CurrentStepIndex != 4 {
		t.Errorf("expected the session at the exchange step, got %d", session.CurrentStepIndex)
	}
	for _, idx := range []int{0, 1, 2, 3} {
		if !session.IsStepComplete(idx) {
			t.Errorf("expected step %d completed", idx)
		}
	}
	if !fast.has("artifact:authorization-code:oidc:callback") {
		t.Error("expected the code persisted as callback data")
	}
}

func TestRedirectlessService_Start_CompletedWithTokens(t *testing.T) {
	store := newMockSessionStore()
	fast := newStubBackend("memory")
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			return map[string]any{
				"status":       "COMPLETED",
				"id":           "corr-1",
				"access_token": "rl-token",
				"id_token":     "rl-id-token",
			}, nil
		},
	}
	svc := newRedirectlessService(store, fast, gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	outcome, err := svc.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !outcome.TokensObtained {
		t.Fatal("expected tokens from the attempt")
	}
	if outcome.NextStepIndex != 5 {
		t.Errorf("expected a jump to the tokens step, got %d", outcome.NextStepIndex)
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.FlowState.Tokens == nil || session.FlowState.Tokens.AccessToken != "rl-token" {
		t.Error("expected the token bundle on the session")
	}
	if !fast.has("artifact:authorization-code:oidc:tokens") {
		t.Error("expected tokens persisted as an artifact")
	}
}

func TestRedirectlessService_Start_ReadyToResume(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			return map[string]any{
				"status":    "READY_TO_RESUME",
				"id":        "corr-1",
				"resumeUrl": "https://auth.example.com/resume",
			}, nil
		},
		resumeFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, correlator, resumeURL string) (map[string]any, error) {
			if correlator != "corr-1" || resumeURL != "https://auth.example.com/resume" {
				t.Errorf("unexpected resume arguments: %s %s", correlator, resumeURL)
			}
			return map[string]any{"status": "COMPLETED", "code": "rl-code"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	outcome, err := svc.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusCompleted || outcome.Code != "rl-code" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestRedirectlessService_Start_ResumeLoopGuard(t *testing.T) {
	store := newMockSessionStore()
	readyToResume := map[string]any{
		"status":    "READY_TO_RESUME",
		"id":        "corr-1",
		"resumeUrl": "https://auth.example.com/resume",
	}
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			return readyToResume, nil
		},
		resumeFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, correlator, resumeURL string) (map[string]any, error) {
			return readyToResume, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	_, err := svc.Start(context.Background(), id)
	if !errors.Is(err, domain.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestRedirectlessService_Start_InProgress(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			return map[string]any{"status": "IN_PROGRESS", "id": "corr-1"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	outcome, err := svc.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusInProgress || outcome.AwaitingCredentials {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestRedirectlessService_Start_UnknownStatus(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			return map[string]any{"status": "HALTED", "detail": "unknown"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	_, err := svc.Start(context.Background(), id)
	if !errors.Is(err, domain.ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "HALTED") || !strings.Contains(err.Error(), "detail, status") {
		t.Errorf("expected the status and response keys in the error, got %v", err)
	}
}

func TestRedirectlessService_SubmitCredentials(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		checkFn: func(ctx context.Context, endpoints *driven.Endpoints, correlator, username, password string) (map[string]any, error) {
			if correlator != "corr-1" || username != "demo.user" || password != "pa55" {
				t.Errorf("unexpected check arguments: %s %s %s", correlator, username, password)
			}
			return map[string]any{"status": "COMPLETED", "code": "rl-code"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.Correlator = "corr-1"
		s.FlowState.AuthStatus = domain.AuthStatusUsernamePasswordRequired
	})

	outcome, err := svc.SubmitCredentials(context.Background(), id, driving.CredentialsRequest{Username: "demo.user", Password: "pa55"})
	if err != nil {
		t.Fatalf("SubmitCredentials() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusCompleted || outcome.Code != "rl-code" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.FlowState.Correlator != "corr-1" {
		t.Error("a response without a correlator must not clear the stored one")
	}
}

func TestRedirectlessService_SubmitCredentials_NoAttempt(t *testing.T) {
	store := newMockSessionStore()
	svc := newRedirectlessService(store, newStubBackend("memory"), &mockDirectGateway{}, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	_, err := svc.SubmitCredentials(context.Background(), id, driving.CredentialsRequest{Username: "demo.user", Password: "pa55"})
	if !errors.Is(err, domain.ErrNoActiveAuth) {
		t.Errorf("expected ErrNoActiveAuth, got %v", err)
	}
}

func TestRedirectlessService_SubmitCredentials_MissingFields(t *testing.T) {
	store := newMockSessionStore()
	svc := newRedirectlessService(store, newStubBackend("memory"), &mockDirectGateway{}, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.Correlator = "corr-1"
	})

	_, err := svc.SubmitCredentials(context.Background(), id, driving.CredentialsRequest{Username: "demo.user"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRedirectlessService_SubmitCredentials_PasswordChangeAnnounced(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		checkFn: func(ctx context.Context, endpoints *driven.Endpoints, correlator, username, password string) (map[string]any, error) {
			return map[string]any{"status": "MUST_CHANGE_PASSWORD"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.Correlator = "corr-1"
	})

	outcome, err := svc.SubmitCredentials(context.Background(), id, driving.CredentialsRequest{Username: "demo.user", Password: "pa55"})
	if err != nil {
		t.Fatalf("SubmitCredentials() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusMustChangePassword || !outcome.AwaitingCredentials {
		t.Errorf("unexpected outcome: %+v", outcome)
	}

	session, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.FlowState.AuthStatus != domain.AuthStatusMustChangePassword {
		t.Errorf("unexpected stored status: %s", session.FlowState.AuthStatus)
	}
}

func TestRedirectlessService_SubmitCredentials_PasswordChangeRotates(t *testing.T) {
	store := newMockSessionStore()
	checks := 0
	gateway := &mockDirectGateway{
		checkFn: func(ctx context.Context, endpoints *driven.Endpoints, correlator, username, password string) (map[string]any, error) {
			checks++
			if checks == 1 {
				return map[string]any{"status": "MUST_CHANGE_PASSWORD"}, nil
			}
			if password != "n3w-pa55" {
				t.Errorf("expected the retry with the new password, got %q", password)
			}
			return map[string]any{"status": "COMPLETED", "code": "rl-code"}, nil
		},
		changePasswordFn: func(ctx context.Context, endpoints *driven.Endpoints, workerToken, username, currentPassword, newPassword string) error {
			if workerToken != "worker-token" {
				t.Errorf("expected the minted worker token, got %q", workerToken)
			}
			if currentPassword != "pa55" || newPassword != "n3w-pa55" {
				t.Errorf("unexpected rotation arguments: %s %s", currentPassword, newPassword)
			}
			return nil
		},
	}
	management := &mockManagement{
		obtainWorkerTokenFn: func(ctx context.Context, environmentID string) (string, error) {
			return "worker-token", nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, management)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.Correlator = "corr-1"
	})

	outcome, err := svc.SubmitCredentials(context.Background(), id, driving.CredentialsRequest{
		Username:    "demo.user",
		Password:    "pa55",
		NewPassword: "n3w-pa55",
	})
	if err != nil {
		t.Fatalf("SubmitCredentials() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusCompleted {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if checks != 2 {
		t.Errorf("expected a second credential check, got %d", checks)
	}
}

func TestRedirectlessService_SubmitCredentials_PasswordChangeNeedsManagementToken(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		checkFn: func(ctx context.Context, endpoints *driven.Endpoints, correlator, username, password string) (map[string]any, error) {
			return map[string]any{"status": "MUST_CHANGE_PASSWORD"}, nil
		},
	}
	management := &mockManagement{
		obtainWorkerTokenFn: func(ctx context.Context, environmentID string) (string, error) {
			return "", domain.ErrNoManagementToken
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, management)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.Correlator = "corr-1"
	})

	_, err := svc.SubmitCredentials(context.Background(), id, driving.CredentialsRequest{
		Username:    "demo.user",
		Password:    "pa55",
		NewPassword: "n3w-pa55",
	})
	if !errors.Is(err, domain.ErrNoManagementToken) {
		t.Errorf("expected ErrNoManagementToken, got %v", err)
	}
}

func TestRedirectlessService_SubmitCredentials_Failed(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		checkFn: func(ctx context.Context, endpoints *driven.Endpoints, correlator, username, password string) (map[string]any, error) {
			return map[string]any{"status": "FAILED", "message": "invalid credentials"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.Correlator = "corr-1"
	})

	outcome, err := svc.SubmitCredentials(context.Background(), id, driving.CredentialsRequest{Username: "demo.user", Password: "wrong"})
	if err != nil {
		t.Fatalf("SubmitCredentials() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusFailed {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestRedirectlessService_Resume(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		resumeFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, correlator, resumeURL string) (map[string]any, error) {
			return map[string]any{"status": "COMPLETED", "code": "rl-code"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, func(s *domain.FlowSession) {
		s.FlowState.Correlator = "corr-1"
		s.FlowState.ResumeURL = "https://auth.example.com/resume"
	})

	outcome, err := svc.Resume(context.Background(), id)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if outcome.Status != domain.AuthStatusCompleted || outcome.Code != "rl-code" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestRedirectlessService_Resume_NoAttempt(t *testing.T) {
	store := newMockSessionStore()
	svc := newRedirectlessService(store, newStubBackend("memory"), &mockDirectGateway{}, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	_, err := svc.Resume(context.Background(), id)
	if !errors.Is(err, domain.ErrNoActiveAuth) {
		t.Errorf("expected ErrNoActiveAuth, got %v", err)
	}
}

func TestRedirectlessService_CompletedEmptyThenResumeDeliversCode(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			return map[string]any{
				"status":    "COMPLETED",
				"id":        "corr-1",
				"resumeUrl": "https://auth.example.com/resume",
			}, nil
		},
		resumeFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, correlator, resumeURL string) (map[string]any, error) {
			return map[string]any{"status": "COMPLETED", "code": "rl-code"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	outcome, err := svc.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if outcome.Code != "rl-code" {
		t.Errorf("expected the code from the follow-up resume, got %+v", outcome)
	}
}

func TestRedirectlessService_CompletedEmptyWithoutResumeURL(t *testing.T) {
	store := newMockSessionStore()
	gateway := &mockDirectGateway{
		startFn: func(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
			return map[string]any{"status": "COMPLETED", "id": "corr-1"}, nil
		},
	}
	svc := newRedirectlessService(store, newStubBackend("memory"), gateway, nil)
	id := seedRedirectSession(t, store, domain.FlowAuthorizationCode, domain.SpecOIDC, 2, nil)

	_, err := svc.Start(context.Background(), id)
	if !errors.Is(err, domain.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
}
