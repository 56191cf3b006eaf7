package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
)

// Ensure deviceService implements DeviceService
var _ driving.DeviceService = (*deviceService)(nil)

const (
	// DefaultSlowDownStep is the minimum interval increase applied on a
	// slow_down response, on top of whatever the server asks for. RFC
	// 8628 names 5 seconds; this is a policy constant, not a protocol
	// requirement, and can be overridden in configuration.
	DefaultSlowDownStep = 5

	// DefaultAttemptBuffer pads the attempt budget derived from the
	// device code lifetime, covering slow responses near the boundary.
	DefaultAttemptBuffer = 5
)

// DeviceServiceConfig holds configuration for the device grant engine.
type DeviceServiceConfig struct {
	Sessions  driven.FlowSessionStore
	Artifacts *ArtifactStore
	Guard     *SessionGuard
	Gateway   driven.IdentityProviderGateway
	Resolver  driven.EndpointResolver

	// SlowDownStep overrides DefaultSlowDownStep, in seconds
	SlowDownStep int

	// AttemptBuffer overrides DefaultAttemptBuffer
	AttemptBuffer int

	Logger *slog.Logger
}

// deviceService implements the device-authorization grant: code issuance
// and the polling run. One polling run may execute per session; the run
// is a single goroutine that checks cancellation before each request,
// after each response and during each wait.
type deviceService struct {
	sessions      driven.FlowSessionStore
	artifacts     *ArtifactStore
	guard         *SessionGuard
	gateway       driven.IdentityProviderGateway
	resolver      driven.EndpointResolver
	slowDownStep  int
	attemptBuffer int
	logger        *slog.Logger

	runs *pollRuns

	// tick is the duration of one interval second; tests shrink it
	tick time.Duration
}

// NewDeviceService creates the device grant engine.
func NewDeviceService(cfg DeviceServiceConfig) driving.DeviceService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	step := cfg.SlowDownStep
	if step <= 0 {
		step = DefaultSlowDownStep
	}
	buffer := cfg.AttemptBuffer
	if buffer <= 0 {
		buffer = DefaultAttemptBuffer
	}
	guard := cfg.Guard
	if guard == nil {
		guard = NewSessionGuard()
	}
	return &deviceService{
		sessions:      cfg.Sessions,
		artifacts:     cfg.Artifacts,
		guard:         guard,
		gateway:       cfg.Gateway,
		resolver:      cfg.Resolver,
		slowDownStep:  step,
		attemptBuffer: buffer,
		logger:        logger,
		runs:          newPollRuns(),
		tick:          time.Second,
	}
}

// RequestDeviceCode obtains a fresh device/user code pair. The sequence
// matters: any active run is cancelled and has fully exited before the
// request is made, so an old loop can never consume the new code.
func (s *deviceService) RequestDeviceCode(ctx context.Context, sessionID string) (*domain.DeviceCodeBundle, error) {
	s.runs.block(sessionID)
	defer s.runs.unblock(sessionID)
	s.runs.cancelAndWait(sessionID)

	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}
	bundle, err := s.gateway.RequestDeviceCode(ctx, endpoints, &session.Credentials)
	if err != nil {
		return nil, fmt.Errorf("request device code: %w", err)
	}

	session.SetDeviceBundle(bundle)
	key := ArtifactKey(session.FlowType, session.SpecVersion, SlotDevice)
	if err := s.artifacts.SaveJSON(ctx, key, bundle); err != nil {
		s.logger.Warn("persisting device bundle failed", "session_id", sessionID, "error", err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("device code issued",
		"session_id", sessionID,
		"user_code", bundle.UserCode,
		"expires_in", bundle.ExpiresIn,
		"interval", bundle.PollInterval)
	return bundle, nil
}

// StartPolling begins the polling run for the active device code. A
// start while a run is active is a no-op, never a second loop.
func (s *deviceService) StartPolling(ctx context.Context, sessionID string) error {
	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	bundle := session.FlowState.Device
	if bundle == nil {
		return domain.ErrNoDeviceCode
	}
	if bundle.Expired(time.Now()) {
		return domain.ErrDeviceCodeExpired
	}

	endpoints, err := s.resolver.Resolve(ctx, session.Credentials.EnvironmentID)
	if err != nil {
		return fmt.Errorf("resolve endpoints: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &pollRun{
		cancel:     cancel,
		done:       make(chan struct{}),
		deviceCode: bundle.DeviceCode,
	}
	switch s.runs.register(sessionID, run) {
	case registerActive:
		cancel()
		s.logger.Debug("polling already active, start ignored", "session_id", sessionID)
		return nil
	case registerBlocked:
		cancel()
		return fmt.Errorf("%w: device code is being replaced", domain.ErrPollingActive)
	}

	session.FlowState.Polling.BeginRun(bundle.PollInterval)
	if err := s.sessions.Save(ctx, session); err != nil {
		s.runs.remove(sessionID, run)
		cancel()
		return fmt.Errorf("save session: %w", err)
	}

	input := pollInput{
		sessionID:   sessionID,
		flowType:    session.FlowType,
		specVersion: session.SpecVersion,
		oidc:        session.SpecVersion == domain.SpecOIDC,
		creds:       session.Credentials.Clone(),
		endpoints:   endpoints,
		bundle:      *bundle,
		maxAttempts: bundle.MaxAttempts(s.attemptBuffer),
	}
	s.logger.Info("device polling started",
		"session_id", sessionID,
		"interval", bundle.PollInterval,
		"max_attempts", input.maxAttempts)
	go s.runPolling(runCtx, run, input)
	return nil
}

// StopPolling cancels the active run. It is idempotent and safe to call
// when no run is active, and it never waits: cancellation is observed at
// the run's next suspension point, within one tick.
func (s *deviceService) StopPolling(ctx context.Context, sessionID string) error {
	if s.runs.cancelOnly(sessionID) {
		s.logger.Info("device polling stop requested", "session_id", sessionID)
	}
	return nil
}

// PollingStatus reports the current run's state.
func (s *deviceService) PollingStatus(ctx context.Context, sessionID string) (*driving.DevicePollStatus, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	status := &driving.DevicePollStatus{
		IsPolling:       session.FlowState.Polling.IsPolling,
		PollCount:       session.FlowState.Polling.PollCount,
		IntervalSeconds: session.FlowState.Polling.IntervalSeconds,
		LastError:       session.FlowState.Polling.LastError,
		TokensObtained:  session.FlowState.Tokens != nil && session.FlowState.Tokens.AccessToken != "",
	}
	if session.FlowState.Device != nil {
		status.DeviceRemainingSeconds = session.FlowState.Device.RemainingSeconds(time.Now())
	}
	return status, nil
}

// Shutdown cancels every run and waits for them to exit.
func (s *deviceService) Shutdown() {
	s.runs.shutdown()
}

// pollInput is the immutable snapshot one polling run works from.
type pollInput struct {
	sessionID   string
	flowType    domain.FlowType
	specVersion domain.SpecVersion
	oidc        bool
	creds       domain.FlowCredentials
	endpoints   *driven.Endpoints
	bundle      domain.DeviceCodeBundle
	maxAttempts int
}

// runPolling is the polling loop. Attempts are strictly sequential:
// attempt N+1 never starts before attempt N's response resolves.
func (s *deviceService) runPolling(runCtx context.Context, run *pollRun, in pollInput) {
	defer close(run.done)
	defer s.runs.remove(in.sessionID, run)

	intervalSeconds := in.bundle.PollInterval
	if intervalSeconds <= 0 {
		intervalSeconds = domain.DefaultPollInterval
	}

	for attempt := 1; ; attempt++ {
		if runCtx.Err() != nil {
			s.markStopped(in.sessionID)
			return
		}
		if time.Now().After(in.bundle.ExpiresAt) {
			s.markFailed(in.sessionID, "device code expired, request a new one")
			return
		}
		if attempt > in.maxAttempts {
			s.markFailed(in.sessionID, fmt.Sprintf("polling gave up after %d attempts, request a new device code", in.maxAttempts))
			return
		}

		tokens, pollErr := s.gateway.PollDeviceToken(runCtx, in.endpoints, &in.creds, in.bundle.DeviceCode)
		if runCtx.Err() != nil {
			s.markStopped(in.sessionID)
			return
		}

		stop := s.applyPollOutcome(in, attempt, tokens, pollErr, &intervalSeconds)
		if stop {
			return
		}

		timer := time.NewTimer(time.Duration(intervalSeconds) * s.tick)
		select {
		case <-runCtx.Done():
			timer.Stop()
			s.markStopped(in.sessionID)
			return
		case <-timer.C:
		}
	}
}

// applyPollOutcome persists one attempt's result and decides whether the
// run stops. Transport failures are transient: retried on the next tick
// while still consuming the attempt budget.
func (s *deviceService) applyPollOutcome(in pollInput, attempt int, tokens *domain.TokenBundle, pollErr error, intervalSeconds *int) (stop bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	unlock := s.guard.Lock(in.sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, in.sessionID)
	if err != nil {
		s.logger.Error("polling lost its session", "session_id", in.sessionID, "error", err)
		return true
	}
	session.FlowState.Polling.RecordAttempt()

	switch {
	case pollErr == nil:
		s.applySuccess(ctx, session, in, tokens)
		stop = true

	case errors.Is(pollErr, domain.ErrAuthorizationPending):
		s.logger.Debug("authorization pending",
			"session_id", in.sessionID, "attempt", attempt)

	case errors.Is(pollErr, domain.ErrSlowDown):
		server := 0
		var oauthErr *domain.OAuthError
		if errors.As(pollErr, &oauthErr) {
			server = oauthErr.Interval
		}
		next := *intervalSeconds + s.slowDownStep
		if server > next {
			next = server
		}
		*intervalSeconds = next
		session.FlowState.Polling.SlowDown(next)
		s.logger.Info("server asked to slow down",
			"session_id", in.sessionID,
			"interval", next)

	case errors.Is(pollErr, domain.ErrAccessDenied):
		session.FlowState.Polling.Fail("authorization denied by user")
		s.logger.Info("device authorization denied", "session_id", in.sessionID)
		stop = true

	case errors.Is(pollErr, domain.ErrDeviceCodeExpired), isInvalidGrant(pollErr):
		session.FlowState.Polling.Fail("device code expired, request a new one")
		s.logger.Info("device code expired during polling", "session_id", in.sessionID)
		stop = true

	case isOAuthError(pollErr):
		session.FlowState.Polling.Fail(pollErr.Error())
		s.logger.Warn("device polling failed",
			"session_id", in.sessionID, "error", pollErr)
		stop = true

	default:
		// Transport failure: transient, retried next tick
		s.logger.Warn("device poll attempt failed, will retry",
			"session_id", in.sessionID,
			"attempt", attempt,
			"error", pollErr)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("persisting polling status failed", "session_id", in.sessionID, "error", err)
	}
	return stop
}

// applySuccess stores the tokens, completes the polling step and fetches
// userinfo for OIDC sessions. A second run's success replaces tokens
// deliberately: a new device code request is an explicit re-execution.
func (s *deviceService) applySuccess(ctx context.Context, session *domain.FlowSession, in pollInput, tokens *domain.TokenBundle) {
	if session.FlowState.Tokens == nil {
		if err := session.StoreTokens(tokens); err != nil {
			session.ReplaceTokens(tokens)
		}
	} else {
		session.ReplaceTokens(tokens)
	}
	session.FlowState.Polling.Finish()

	if idx, ok := stepIndexOf(session, domain.StepDevicePolling); ok {
		if err := session.CompleteStep(idx); err != nil {
			s.logger.Warn("completing polling step failed", "session_id", session.ID, "error", err)
		}
	}

	key := ArtifactKey(in.flowType, in.specVersion, SlotTokens)
	if err := s.artifacts.SaveJSON(ctx, key, tokens); err != nil {
		s.logger.Warn("persisting tokens failed", "session_id", session.ID, "error", err)
	}

	if in.oidc && tokens.AccessToken != "" {
		info, err := s.gateway.UserInfo(ctx, in.endpoints, tokens.AccessToken)
		if err != nil {
			s.logger.Warn("userinfo fetch after polling failed", "session_id", session.ID, "error", err)
		} else {
			session.FlowState.UserInfo = info
		}
	}

	// One-shot success signal for this run
	s.logger.Info("device authorization succeeded",
		"session_id", session.ID,
		"poll_count", session.FlowState.Polling.PollCount)
}

// markStopped persists a cancelled run's final state. Cancellation is
// not an error; LastError stays empty.
func (s *deviceService) markStopped(sessionID string) {
	s.finalize(sessionID, func(p *domain.PollingStatus) {
		p.IsPolling = false
	})
	s.logger.Info("device polling stopped", "session_id", sessionID)
}

// markFailed persists a terminal failure.
func (s *deviceService) markFailed(sessionID, msg string) {
	s.finalize(sessionID, func(p *domain.PollingStatus) {
		p.Fail(msg)
	})
	s.logger.Info("device polling ended", "session_id", sessionID, "reason", msg)
}

func (s *deviceService) finalize(sessionID string, apply func(*domain.PollingStatus)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	unlock := s.guard.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return
	}
	apply(&session.FlowState.Polling)
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("persisting polling state failed", "session_id", sessionID, "error", err)
	}
}

func isOAuthError(err error) bool {
	var oauthErr *domain.OAuthError
	return errors.As(err, &oauthErr)
}

func isInvalidGrant(err error) bool {
	var oauthErr *domain.OAuthError
	return errors.As(err, &oauthErr) && oauthErr.Code == domain.OAuthErrInvalidGrant
}

// registerResult is the outcome of registering a polling run.
type registerResult int

const (
	registerOK registerResult = iota
	registerActive
	registerBlocked
)

// pollRun is one polling loop's handle.
type pollRun struct {
	cancel     context.CancelFunc
	done       chan struct{}
	deviceCode string
}

// pollRuns tracks at most one run per session plus a blocked flag that
// closes the window between cancelling an old run and installing a new
// device code.
type pollRuns struct {
	mu      sync.Mutex
	runs    map[string]*pollRun
	blocked map[string]bool
}

func newPollRuns() *pollRuns {
	return &pollRuns{
		runs:    make(map[string]*pollRun),
		blocked: make(map[string]bool),
	}
}

// register installs the run unless one is active or the session is
// blocked for a device-code replacement.
func (r *pollRuns) register(sessionID string, run *pollRun) registerResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blocked[sessionID] {
		return registerBlocked
	}
	if _, ok := r.runs[sessionID]; ok {
		return registerActive
	}
	r.runs[sessionID] = run
	return registerOK
}

// remove deregisters a run if it is still the installed one.
func (r *pollRuns) remove(sessionID string, run *pollRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs[sessionID] == run {
		delete(r.runs, sessionID)
	}
}

// cancelOnly signals the active run without waiting. Reports whether a
// run was there to cancel.
func (r *pollRuns) cancelOnly(sessionID string) bool {
	r.mu.Lock()
	run, ok := r.runs[sessionID]
	r.mu.Unlock()
	if ok {
		run.cancel()
	}
	return ok
}

// cancelAndWait signals the active run and blocks until it has exited.
func (r *pollRuns) cancelAndWait(sessionID string) {
	r.mu.Lock()
	run, ok := r.runs[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	run.cancel()
	<-run.done
}

// block prevents new runs from registering for the session.
func (r *pollRuns) block(sessionID string) {
	r.mu.Lock()
	r.blocked[sessionID] = true
	r.mu.Unlock()
}

// unblock lifts the registration block.
func (r *pollRuns) unblock(sessionID string) {
	r.mu.Lock()
	delete(r.blocked, sessionID)
	r.mu.Unlock()
}

// shutdown cancels every run and waits for all of them.
func (r *pollRuns) shutdown() {
	r.mu.Lock()
	active := make([]*pollRun, 0, len(r.runs))
	for _, run := range r.runs {
		active = append(active, run)
	}
	r.mu.Unlock()
	for _, run := range active {
		run.cancel()
	}
	for _, run := range active {
		<-run.done
	}
}
