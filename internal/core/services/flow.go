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

// Ensure flowService implements FlowService
var _ driving.FlowService = (*flowService)(nil)

// DefaultSessionTTL bounds an exercise session's lifetime.
const DefaultSessionTTL = 4 * time.Hour

// FlowServiceConfig holds configuration for the flow sequencer.
type FlowServiceConfig struct {
	// Sessions persists flow sessions.
	Sessions driven.FlowSessionStore

	// Artifacts is the storage redundancy layer.
	Artifacts *ArtifactStore

	// Guard serializes per-session mutations.
	Guard *SessionGuard

	// Preflight, when set, re-runs local-shape validation on entry to
	// the configuration, PKCE and token-exchange steps.
	Preflight *PreflightService

	// Poller, when set, is told to stop polling when navigation leaves
	// the polling step or the session restarts.
	Poller driving.DeviceService

	// Resolver, when set, has its endpoint cache invalidated when a
	// session's environment changes.
	Resolver driven.EndpointResolver

	// SessionTTL overrides the default session lifetime.
	SessionTTL time.Duration

	Logger *slog.Logger
}

// flowService implements the step sequencer.
type flowService struct {
	sessions   driven.FlowSessionStore
	artifacts  *ArtifactStore
	guard      *SessionGuard
	preflight  *PreflightService
	poller     driving.DeviceService
	resolver   driven.EndpointResolver
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewFlowService creates the flow sequencer.
func NewFlowService(cfg FlowServiceConfig) driving.FlowService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	guard := cfg.Guard
	if guard == nil {
		guard = NewSessionGuard()
	}
	return &flowService{
		sessions:   cfg.Sessions,
		artifacts:  cfg.Artifacts,
		guard:      guard,
		preflight:  cfg.Preflight,
		poller:     cfg.Poller,
		resolver:   cfg.Resolver,
		sessionTTL: ttl,
		logger:     logger,
	}
}

// Create starts a new session at the configuration step.
func (s *flowService) Create(ctx context.Context, req driving.CreateFlowRequest) (*driving.FlowSnapshot, error) {
	creds := req.Credentials
	if creds.TokenAuthMethod == "" {
		creds.TokenAuthMethod = domain.AuthMethodBasic
	}
	if creds.PKCEMode == "" {
		creds.PKCEMode = domain.PKCERequired
	}

	session, err := domain.NewFlowSession(req.FlowType, req.SpecVersion, creds, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("flow session created",
		"session_id", session.ID,
		"flow_type", session.FlowType,
		"spec_version", session.SpecVersion,
		"total_steps", session.TotalSteps())
	return driving.NewFlowSnapshot(session), nil
}

// Get returns the current session state.
func (s *flowService) Get(ctx context.Context, sessionID string) (*driving.FlowSnapshot, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return driving.NewFlowSnapshot(session), nil
}

// Delete removes a session and tears down its resources.
func (s *flowService) Delete(ctx context.Context, sessionID string) error {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	s.stopPolling(ctx, sessionID)
	if err := s.artifacts.ClearFlow(ctx, session.FlowType, session.SpecVersion); err != nil {
		s.logger.Warn("clearing artifacts on delete failed", "session_id", sessionID, "error", err)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.guard.Forget(sessionID)
	s.logger.Info("flow session deleted", "session_id", sessionID)
	return nil
}

// GoNext advances one step when the current step permits it.
func (s *flowService) GoNext(ctx context.Context, sessionID string) (*driving.FlowSnapshot, error) {
	return s.navigate(ctx, sessionID, func(session *domain.FlowSession) error {
		return session.GoNext()
	})
}

// GoPrevious moves one step back.
func (s *flowService) GoPrevious(ctx context.Context, sessionID string) (*driving.FlowSnapshot, error) {
	return s.navigate(ctx, sessionID, func(session *domain.FlowSession) error {
		return session.GoPrevious()
	})
}

// GoToStep jumps to a step index. Out-of-range targets are rejected and
// logged, never clamped.
func (s *flowService) GoToStep(ctx context.Context, sessionID string, index int) (*driving.FlowSnapshot, error) {
	return s.navigate(ctx, sessionID, func(session *domain.FlowSession) error {
		if err := session.GoToStep(index); err != nil {
			s.logger.Warn("step jump rejected",
				"session_id", session.ID,
				"requested", index,
				"total_steps", session.TotalSteps())
			return err
		}
		return nil
	})
}

// navigate runs one guarded navigation transition plus its entry hooks.
func (s *flowService) navigate(ctx context.Context, sessionID string, move func(*domain.FlowSession) error) (*driving.FlowSnapshot, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prev := session.CurrentStepIndex
	if err := move(session); err != nil {
		return nil, err
	}
	s.afterNavigation(ctx, session, prev)

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return driving.NewFlowSnapshot(session), nil
}

// afterNavigation applies step-entry side effects: polling teardown when
// the polling step is exited, validation re-run on the validating steps,
// and callback extraction when a stored redirect is pending.
func (s *flowService) afterNavigation(ctx context.Context, session *domain.FlowSession, prevIndex int) {
	steps := session.Steps()
	if prevIndex != session.CurrentStepIndex &&
		prevIndex >= 0 && prevIndex < len(steps) &&
		steps[prevIndex].Kind == domain.StepDevicePolling {
		s.stopPolling(ctx, session.ID)
	}

	switch session.CurrentStep().Kind {
	case domain.StepConfiguration, domain.StepPKCE, domain.StepTokenExchange:
		if s.preflight != nil {
			report := s.preflight.ValidateLocal(session)
			session.SetValidation(report.Errors, report.Warnings)
		}
	case domain.StepCallback:
		if pending := session.FlowState.PendingRedirect; pending != "" {
			if err := ingestCallback(ctx, s.artifacts, session, pending); err != nil {
				session.SetValidation([]string{err.Error()}, nil)
				s.logger.Warn("pending callback extraction failed",
					"session_id", session.ID, "error", err)
			}
		}
	case domain.StepFragmentCallback:
		if pending := session.FlowState.PendingRedirect; pending != "" {
			if err := ingestFragment(ctx, s.artifacts, session, pending); err != nil {
				session.SetValidation([]string{err.Error()}, nil)
				s.logger.Warn("pending fragment extraction failed",
					"session_id", session.ID, "error", err)
			}
		}
	}
}

// MarkStepComplete records the current step as complete.
func (s *flowService) MarkStepComplete(ctx context.Context, sessionID string) (*driving.FlowSnapshot, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.MarkStepComplete(); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return driving.NewFlowSnapshot(session), nil
}

// Reset restarts the session: step 0, no completion or validation state,
// no protocol artifacts, storage slots cleared.
func (s *flowService) Reset(ctx context.Context, sessionID string) (*driving.FlowSnapshot, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.stopPolling(ctx, sessionID)
	if err := s.artifacts.ClearFlow(ctx, session.FlowType, session.SpecVersion); err != nil {
		s.logger.Warn("clearing artifacts on reset failed", "session_id", sessionID, "error", err)
	}
	session.Reset()
	session.ClearProtocolState()

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("flow session reset", "session_id", sessionID)
	return driving.NewFlowSnapshot(session), nil
}

// ChangeFlowType restarts the session under a different grant type.
// Different flow types are not resumable from each other's state, so
// both the old and the new type's storage slots are cleared.
func (s *flowService) ChangeFlowType(ctx context.Context, sessionID string, flowType domain.FlowType) (*driving.FlowSnapshot, error) {
	if !flowType.Valid() {
		return nil, fmt.Errorf("%w: flow type %q", domain.ErrInvalidInput, flowType)
	}

	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.stopPolling(ctx, sessionID)
	if err := s.artifacts.ClearFlow(ctx, session.FlowType, session.SpecVersion); err != nil {
		s.logger.Warn("clearing old flow artifacts failed", "session_id", sessionID, "error", err)
	}
	if err := s.artifacts.ClearFlow(ctx, flowType, session.SpecVersion); err != nil {
		s.logger.Warn("clearing new flow artifacts failed", "session_id", sessionID, "error", err)
	}

	fresh, err := domain.NewFlowSession(flowType, session.SpecVersion, session.Credentials, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	fresh.ID = session.ID
	fresh.CreatedAt = session.CreatedAt

	if err := s.sessions.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("flow type changed",
		"session_id", sessionID,
		"from", session.FlowType,
		"to", flowType)
	return driving.NewFlowSnapshot(fresh), nil
}

// UpdateCredentials replaces the session's client configuration. A
// topology change (PKCE step appearing or disappearing) restarts the
// wizard, since step identities shifted under the completed set. An
// environment change invalidates the cached endpoint resolution.
func (s *flowService) UpdateCredentials(ctx context.Context, sessionID string, creds domain.FlowCredentials) (*driving.FlowSnapshot, error) {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	oldEnv := session.Credentials.EnvironmentID
	oldTotal := session.TotalSteps()

	if creds.TokenAuthMethod == "" {
		creds.TokenAuthMethod = domain.AuthMethodBasic
	}
	if creds.PKCEMode == "" {
		creds.PKCEMode = session.Credentials.PKCEMode
	}
	session.Credentials = creds
	session.Touch()

	if s.resolver != nil && creds.EnvironmentID != oldEnv {
		s.resolver.Invalidate(oldEnv)
	}
	if session.TotalSteps() != oldTotal {
		s.logger.Info("step topology changed, restarting wizard",
			"session_id", sessionID,
			"old_total", oldTotal,
			"new_total", session.TotalSteps())
		session.Reset()
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return driving.NewFlowSnapshot(session), nil
}

// load fetches a live session.
func (s *flowService) load(ctx context.Context, sessionID string) (*domain.FlowSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// stopPolling tears down the session's polling run, if any.
func (s *flowService) stopPolling(ctx context.Context, sessionID string) {
	if s.poller == nil {
		return
	}
	if err := s.poller.StopPolling(ctx, sessionID); err != nil {
		s.logger.Warn("stopping polling failed", "session_id", sessionID, "error", err)
	}
}
