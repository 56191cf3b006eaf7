package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
)

// Ensure redirectlessService implements the driving port
var _ driving.RedirectlessService = (*redirectlessService)(nil)

// RedirectlessServiceConfig holds configuration for the decoupled
// authorization service.
type RedirectlessServiceConfig struct {
	Sessions   driven.FlowSessionStore
	Artifacts  *ArtifactStore
	Guard      *SessionGuard
	Gateway    driven.DirectAuthGateway
	Resolver   driven.EndpointResolver
	Management driven.ManagementAPI
	Logger     *slog.Logger
}

type redirectlessService struct {
	sessions   driven.FlowSessionStore
	artifacts  *ArtifactStore
	guard      *SessionGuard
	gateway    driven.DirectAuthGateway
	resolver   driven.EndpointResolver
	management driven.ManagementAPI
	logger     *slog.Logger
}

// correlatorRecord is what the correlator artifact slot stores: enough
// to rejoin a half-finished attempt after a restart.
type correlatorRecord struct {
	Correlator string            `json:"correlator"`
	ResumeURL  string            `json:"resume_url,omitempty"`
	Status     domain.AuthStatus `json:"status,omitempty"`
}

// NewRedirectlessService creates the decoupled authorization service.
func NewRedirectlessService(cfg RedirectlessServiceConfig) driving.RedirectlessService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := cfg.Guard
	if guard == nil {
		guard = NewSessionGuard()
	}
	return &redirectlessService{
		sessions:   cfg.Sessions,
		artifacts:  cfg.Artifacts,
		guard:      guard,
		gateway:    cfg.Gateway,
		resolver:   cfg.Resolver,
		management: cfg.Management,
		logger:     logger,
	}
}

func (s *redirectlessService) Start(ctx context.Context, sessionID string) (*driving.RedirectlessOutcome, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.FlowType != domain.FlowAuthorizationCode {
		return nil, fmt.Errorf("%w: the redirectless variant runs on the authorization-code flow", domain.ErrInvalidInput)
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}

	var pkce *domain.PKCEBundle
	if session.PKCEEnforced() {
		pkce, _, err = ensurePKCE(ctx, s.artifacts, session)
		if err != nil {
			return nil, err
		}
	}

	state := domain.NewStateValue()
	nonce := ""
	if session.SpecVersion == domain.SpecOIDC {
		nonce = domain.NewNonceValue()
	}
	session.FlowState.State = state
	session.FlowState.Nonce = nonce

	// No URL is handed to a browser here; record the endpoint the
	// request went to so the attempt stays inspectable.
	session.FlowState.AuthorizationURL = endpoints.AuthorizationEndpoint

	raw, err := s.gateway.StartDirectAuth(ctx, endpoints, &session.Credentials, pkce, state, nonce)
	if err != nil {
		return nil, fmt.Errorf("start direct authorization: %w", err)
	}

	outcome, err := s.dispatch(ctx, session, endpoints, domain.ParseDirectAuthResponse(raw), false)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("redirectless attempt started",
		"session_id", sessionID, "status", outcome.Status)
	return outcome, nil
}

func (s *redirectlessService) SubmitCredentials(ctx context.Context, sessionID string, req driving.CredentialsRequest) (*driving.RedirectlessOutcome, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	correlator := session.FlowState.Correlator
	if correlator == "" {
		return nil, fmt.Errorf("%w: start the redirectless attempt first", domain.ErrNoActiveAuth)
	}
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}

	raw, err := s.gateway.CheckCredentials(ctx, endpoints, correlator, req.Username, req.Password)
	if err != nil {
		return nil, fmt.Errorf("credential check: %w", err)
	}
	result := domain.ParseDirectAuthResponse(raw)

	if result.Status == domain.AuthStatusMustChangePassword {
		result, err = s.changePassword(ctx, session, endpoints, correlator, req, result)
		if err != nil {
			return nil, err
		}
		if result == nil {
			// Caller must resubmit with a new password.
			session.FlowState.AuthStatus = domain.AuthStatusMustChangePassword
			if err := s.save(ctx, session); err != nil {
				return nil, err
			}
			return &driving.RedirectlessOutcome{
				Status:              domain.AuthStatusMustChangePassword,
				AwaitingCredentials: true,
				NextStepIndex:       -1,
				Raw:                 raw,
			}, nil
		}
	}

	outcome, err := s.dispatch(ctx, session, endpoints, result, false)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("redirectless credentials submitted",
		"session_id", sessionID, "status", outcome.Status)
	return outcome, nil
}

func (s *redirectlessService) Resume(ctx context.Context, sessionID string) (*driving.RedirectlessOutcome, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.FlowState.Correlator == "" {
		return nil, fmt.Errorf("%w: start the redirectless attempt first", domain.ErrNoActiveAuth)
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}

	result, err := s.performResume(ctx, session, endpoints)
	if err != nil {
		return nil, err
	}
	outcome, err := s.dispatch(ctx, session, endpoints, result, true)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("redirectless attempt resumed",
		"session_id", sessionID, "status", outcome.Status)
	return outcome, nil
}

// dispatch routes one parsed response. resumed guards against a
// provider that answers a resume with another READY_TO_RESUME.
func (s *redirectlessService) dispatch(ctx context.Context, session *domain.FlowSession, endpoints *driven.Endpoints, result *domain.DirectAuthResult, resumed bool) (*driving.RedirectlessOutcome, error) {
	s.recordAttempt(ctx, session, result)

	switch result.Status {
	case domain.AuthStatusUsernamePasswordRequired, domain.AuthStatusMustChangePassword:
		return &driving.RedirectlessOutcome{
			Status:              result.Status,
			AwaitingCredentials: true,
			NextStepIndex:       -1,
			Raw:                 result.Raw,
		}, nil

	case domain.AuthStatusInProgress:
		return &driving.RedirectlessOutcome{
			Status:        result.Status,
			NextStepIndex: -1,
			Raw:           result.Raw,
		}, nil

	case domain.AuthStatusReadyToResume:
		if resumed {
			return nil, fmt.Errorf("%w: resume answered READY_TO_RESUME again", domain.ErrUnexpectedStatus)
		}
		next, err := s.performResume(ctx, session, endpoints)
		if err != nil {
			return nil, err
		}
		return s.dispatch(ctx, session, endpoints, next, true)

	case domain.AuthStatusCompleted:
		return s.completeAttempt(ctx, session, endpoints, result, resumed)

	case domain.AuthStatusFailed:
		s.logger.Warn("redirectless attempt failed",
			"session_id", session.ID, "detail", messageFrom(result.Raw))
		return &driving.RedirectlessOutcome{
			Status:        result.Status,
			NextStepIndex: -1,
			Raw:           result.Raw,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q (response keys: %s)",
			domain.ErrUnexpectedStatus, string(result.Status), keysOf(result.Raw))
	}
}

// completeAttempt lands a COMPLETED response: record the code or the
// tokens and jump the session to the matching downstream step. A
// completed response with no artifacts but a resume URL earns exactly
// one follow-up resume; some providers deliver the code only there.
func (s *redirectlessService) completeAttempt(ctx context.Context, session *domain.FlowSession, endpoints *driven.Endpoints, result *domain.DirectAuthResult, resumed bool) (*driving.RedirectlessOutcome, error) {
	if result.Code == "" && result.Tokens == nil {
		if !resumed && session.FlowState.ResumeURL != "" {
			s.logger.Info("completed response carried no artifacts, resuming once",
				"session_id", session.ID)
			next, err := s.performResume(ctx, session, endpoints)
			if err != nil {
				return nil, err
			}
			s.recordAttempt(ctx, session, next)
			if next.Code != "" || next.Tokens != nil {
				result = next
			}
		}
		if result.Code == "" && result.Tokens == nil {
			return nil, fmt.Errorf("%w: COMPLETED without a code or tokens (response keys: %s)",
				domain.ErrUnexpectedStatus, keysOf(result.Raw))
		}
	}

	session.FlowState.AuthStatus = domain.AuthStatusCompleted
	nextStep := -1

	if result.Tokens != nil {
		if session.FlowState.Tokens == nil {
			if err := session.StoreTokens(result.Tokens); err != nil {
				session.ReplaceTokens(result.Tokens)
			}
		} else {
			session.ReplaceTokens(result.Tokens)
		}
		key := ArtifactKey(session.FlowType, session.SpecVersion, SlotTokens)
		if err := s.artifacts.SaveJSON(ctx, key, result.Tokens); err != nil {
			return nil, fmt.Errorf("persist tokens: %w", err)
		}
		s.completeThrough(session, domain.StepTokenExchange)
		if idx, ok := stepIndexOf(session, domain.StepTokens); ok {
			_ = session.GoToStep(idx)
			nextStep = idx
		}
	} else {
		session.FlowState.AuthorizationCode = result.Code
		data := &domain.CallbackData{Code: result.Code, State: session.FlowState.State}
		key := ArtifactKey(session.FlowType, session.SpecVersion, SlotCallback)
		if err := s.artifacts.SaveJSON(ctx, key, data); err != nil {
			return nil, fmt.Errorf("persist authorization code: %w", err)
		}
		s.completeThrough(session, domain.StepCallback)
		if idx, ok := stepIndexOf(session, domain.StepTokenExchange); ok {
			_ = session.GoToStep(idx)
			nextStep = idx
		}
	}

	return &driving.RedirectlessOutcome{
		Status:         domain.AuthStatusCompleted,
		Code:           result.Code,
		TokensObtained: result.Tokens != nil,
		NextStepIndex:  nextStep,
		Raw:            result.Raw,
	}, nil
}

// changePassword handles the MUST_CHANGE_PASSWORD branch: rotate the
// password with a worker token, then retry the login once with the new
// password. A nil result with nil error means the caller must resubmit
// with a new password.
func (s *redirectlessService) changePassword(ctx context.Context, session *domain.FlowSession, endpoints *driven.Endpoints, correlator string, req driving.CredentialsRequest, current *domain.DirectAuthResult) (*domain.DirectAuthResult, error) {
	if req.NewPassword == "" {
		s.logger.Info("password change required",
			"session_id", session.ID, "username", req.Username)
		return nil, nil
	}

	workerToken := session.Credentials.ManagementToken
	if workerToken == "" {
		minted, err := s.management.ObtainWorkerToken(ctx, session.Credentials.EnvironmentID)
		if err != nil {
			return nil, fmt.Errorf("%w: the password change needs a management token", domain.ErrNoManagementToken)
		}
		workerToken = minted
	}

	if err := s.gateway.ChangePassword(ctx, endpoints, workerToken, req.Username, req.Password, req.NewPassword); err != nil {
		return nil, fmt.Errorf("change password: %w", err)
	}
	s.logger.Info("password rotated, retrying login",
		"session_id", session.ID, "username", req.Username)

	raw, err := s.gateway.CheckCredentials(ctx, endpoints, correlator, req.Username, req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("credential check after password change: %w", err)
	}
	return domain.ParseDirectAuthResponse(raw), nil
}

func (s *redirectlessService) performResume(ctx context.Context, session *domain.FlowSession, endpoints *driven.Endpoints) (*domain.DirectAuthResult, error) {
	raw, err := s.gateway.ResumeDirectAuth(ctx, endpoints, &session.Credentials, session.FlowState.Correlator, session.FlowState.ResumeURL)
	if err != nil {
		return nil, fmt.Errorf("resume authorization: %w", err)
	}
	return domain.ParseDirectAuthResponse(raw), nil
}

// recordAttempt folds a parsed response into the session and refreshes
// the correlator artifact. Absent fields keep their previous values;
// the correlator especially must survive responses that omit it.
func (s *redirectlessService) recordAttempt(ctx context.Context, session *domain.FlowSession, result *domain.DirectAuthResult) {
	if result.Status != "" {
		session.FlowState.AuthStatus = result.Status
	}
	changed := false
	if result.Correlator != "" && result.Correlator != session.FlowState.Correlator {
		session.FlowState.Correlator = result.Correlator
		changed = true
	}
	if result.ResumeURL != "" && result.ResumeURL != session.FlowState.ResumeURL {
		session.FlowState.ResumeURL = result.ResumeURL
		changed = true
	}
	if !changed {
		return
	}
	record := correlatorRecord{
		Correlator: session.FlowState.Correlator,
		ResumeURL:  session.FlowState.ResumeURL,
		Status:     session.FlowState.AuthStatus,
	}
	key := ArtifactKey(session.FlowType, session.SpecVersion, SlotCorrelator)
	if err := s.artifacts.SaveJSON(ctx, key, record); err != nil {
		s.logger.Warn("persisting correlator failed",
			"session_id", session.ID, "error", err)
	}
}

// completeThrough marks every step up to and including the given kind
// complete, so a jump past skipped steps leaves a coherent trail.
func (s *redirectlessService) completeThrough(session *domain.FlowSession, kind domain.StepKind) {
	for _, step := range session.Steps() {
		_ = session.CompleteStep(step.Index)
		if step.Kind == kind {
			return
		}
	}
}

func (s *redirectlessService) load(ctx context.Context, sessionID string) (*domain.FlowSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

func (s *redirectlessService) save(ctx context.Context, session *domain.FlowSession) error {
	session.Touch()
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// keysOf lists a payload's top-level keys for error messages.
func keysOf(m map[string]any) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// messageFrom digs a human-readable detail out of a failure payload.
func messageFrom(m map[string]any) string {
	for _, key := range []string{"message", "error_description", "error", "detail"} {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return "no detail provided"
}
