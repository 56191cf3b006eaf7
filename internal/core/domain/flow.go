package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// FlowType identifies the OAuth grant type a session exercises
type FlowType string

const (
	FlowAuthorizationCode FlowType = "authorization-code"
	FlowImplicit          FlowType = "implicit"
	FlowClientCredentials FlowType = "client-credentials"
	FlowDeviceCode        FlowType = "device-code"
	FlowHybrid            FlowType = "hybrid"
)

// Valid reports whether the flow type is a known grant type.
func (f FlowType) Valid() bool {
	switch f {
	case FlowAuthorizationCode, FlowImplicit, FlowClientCredentials, FlowDeviceCode, FlowHybrid:
		return true
	}
	return false
}

// UsesRedirect reports whether the flow returns through a browser redirect.
func (f FlowType) UsesRedirect() bool {
	switch f {
	case FlowAuthorizationCode, FlowImplicit, FlowHybrid:
		return true
	}
	return false
}

// SpecVersion identifies which protocol profile the session follows
type SpecVersion string

const (
	SpecOAuth20 SpecVersion = "oauth2.0"
	SpecOAuth21 SpecVersion = "oauth2.1"
	SpecOIDC    SpecVersion = "oidc"
)

// Valid reports whether the spec version is known.
func (v SpecVersion) Valid() bool {
	switch v {
	case SpecOAuth20, SpecOAuth21, SpecOIDC:
		return true
	}
	return false
}

// FlowState accumulates the protocol artifacts a session produces step by step
type FlowState struct {
	// AuthorizationURL is the most recently built authorization request URL
	AuthorizationURL string `json:"authorization_url,omitempty"`

	// State is the CSRF state parameter bound to the authorization request
	State string `json:"state,omitempty"`

	// Nonce is the OIDC nonce bound to the authorization request
	Nonce string `json:"nonce,omitempty"`

	// PKCE is the active verifier/challenge pair, nil when not generated
	PKCE *PKCEBundle `json:"pkce,omitempty"`

	// AuthorizationCode is the code extracted from the callback
	AuthorizationCode string `json:"authorization_code,omitempty"`

	// Device is the active device-authorization bundle, nil before request
	Device *DeviceCodeBundle `json:"device,omitempty"`

	// Polling tracks the current device polling run
	Polling PollingStatus `json:"polling"`

	// Tokens holds the obtained token bundle, nil before any grant succeeds
	Tokens *TokenBundle `json:"tokens,omitempty"`

	// UserInfo is the raw userinfo payload for OIDC sessions
	UserInfo map[string]any `json:"user_info,omitempty"`

	// Introspection is the raw introspection payload, if fetched
	Introspection map[string]any `json:"introspection,omitempty"`

	// Correlator is the provider-assigned identifier for a redirectless
	// attempt; it substitutes for cookie continuity and is threaded
	// through every call of the same attempt
	Correlator string `json:"correlator,omitempty"`

	// ResumeURL is the provider-supplied resume location, when present
	ResumeURL string `json:"resume_url,omitempty"`

	// AuthStatus is the last redirectless status the provider reported
	AuthStatus AuthStatus `json:"auth_status,omitempty"`

	// PendingRedirect holds a callback URL awaiting extraction on step entry
	PendingRedirect string `json:"pending_redirect,omitempty"`
}

// FlowSession is the aggregate root for one in-progress OAuth exercise.
// FlowType and SpecVersion are immutable for the session's lifetime; a
// flow-type change is modeled as a reset into a fresh topology, never as
// an in-place mutation of a live flow.
type FlowSession struct {
	// ID is the unique identifier for this session
	ID string `json:"id"`

	// FlowType is the grant type this session walks through
	FlowType FlowType `json:"flow_type"`

	// SpecVersion is the protocol profile in effect
	SpecVersion SpecVersion `json:"spec_version"`

	// CurrentStepIndex is the 0-based position in the step topology
	CurrentStepIndex int `json:"current_step_index"`

	// CompletedSteps lists step indices marked complete, sorted ascending
	CompletedSteps []int `json:"completed_steps"`

	// ValidationErrors are blocking messages scoped to the current step
	ValidationErrors []string `json:"validation_errors,omitempty"`

	// ValidationWarnings are non-blocking messages scoped to the current step
	ValidationWarnings []string `json:"validation_warnings,omitempty"`

	// Credentials is the locally configured OAuth client configuration
	Credentials FlowCredentials `json:"credentials"`

	// FlowState is the accumulated protocol state
	FlowState FlowState `json:"flow_state"`

	// CreatedAt is when the session was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the session was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// ExpiresAt is when the session becomes eligible for cleanup
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFlowSession creates a session at the configuration step.
func NewFlowSession(flowType FlowType, specVersion SpecVersion, creds FlowCredentials, ttl time.Duration) (*FlowSession, error) {
	if !flowType.Valid() {
		return nil, fmt.Errorf("%w: flow type %q", ErrInvalidInput, flowType)
	}
	if !specVersion.Valid() {
		return nil, fmt.Errorf("%w: spec version %q", ErrInvalidInput, specVersion)
	}
	now := time.Now()
	return &FlowSession{
		ID:          uuid.NewString(),
		FlowType:    flowType,
		SpecVersion: specVersion,
		Credentials: creds,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// PKCEEnforced reports whether this session's topology carries a PKCE step.
// OAuth 2.1 mandates PKCE regardless of the configured mode.
func (s *FlowSession) PKCEEnforced() bool {
	if s.SpecVersion == SpecOAuth21 {
		return true
	}
	return s.Credentials.PKCEMode != PKCEDisabled
}

// Steps returns the session's step topology.
func (s *FlowSession) Steps() []Step {
	return StepsFor(s.FlowType, s.PKCEEnforced())
}

// TotalSteps returns the number of steps in the session's topology.
func (s *FlowSession) TotalSteps() int {
	return len(s.Steps())
}

// CurrentStep returns the step the session is on.
func (s *FlowSession) CurrentStep() Step {
	return s.Steps()[s.CurrentStepIndex]
}

// IsStepComplete reports whether the given index is marked complete.
func (s *FlowSession) IsStepComplete(index int) bool {
	return slices.Contains(s.CompletedSteps, index)
}

// StepCompletable reports whether the given step's completion predicate
// holds against the current flow state.
func (s *FlowSession) StepCompletable(index int) error {
	steps := s.Steps()
	if index < 0 || index >= len(steps) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidStep, index, len(steps))
	}
	kind := steps[index].Kind
	switch kind {
	case StepConfiguration:
		if err := s.Credentials.Validate(s.FlowType, s.SpecVersion); err != nil {
			return fmt.Errorf("%w: %v", ErrStepIncomplete, err)
		}
	case StepPKCE:
		if s.FlowState.PKCE == nil {
			return fmt.Errorf("%w: no pkce bundle generated", ErrStepIncomplete)
		}
	case StepAuthorizationRequest:
		if s.FlowState.AuthorizationURL == "" {
			return fmt.Errorf("%w: no authorization url built", ErrStepIncomplete)
		}
	case StepCallback:
		if s.FlowState.AuthorizationCode == "" {
			return fmt.Errorf("%w: no authorization code received", ErrStepIncomplete)
		}
	case StepFragmentCallback:
		if s.FlowType == FlowHybrid {
			if s.FlowState.AuthorizationCode == "" {
				return fmt.Errorf("%w: no authorization code received", ErrStepIncomplete)
			}
		} else if s.FlowState.Tokens == nil || !s.FlowState.Tokens.HasToken() {
			return fmt.Errorf("%w: no tokens in fragment", ErrStepIncomplete)
		}
	case StepDeviceAuthorization:
		if s.FlowState.Device == nil {
			return fmt.Errorf("%w: no device code requested", ErrStepIncomplete)
		}
	case StepDevicePolling, StepTokenExchange, StepTokens:
		if s.FlowState.Tokens == nil || s.FlowState.Tokens.AccessToken == "" {
			return fmt.Errorf("%w: no access token obtained", ErrStepIncomplete)
		}
	case StepIntrospection, StepDocumentation:
		// Always completable. Introspection degrades when no token exists
		// rather than gating navigation.
	}
	return nil
}

// MarkStepComplete records the current step as complete. Idempotent; the
// step's completion predicate must hold.
func (s *FlowSession) MarkStepComplete() error {
	return s.CompleteStep(s.CurrentStepIndex)
}

// CompleteStep marks a specific step complete when its predicate holds.
// Used by asynchronous outcomes (a polling success completes the polling
// step even if navigation has since moved). Idempotent.
func (s *FlowSession) CompleteStep(index int) error {
	if err := s.StepCompletable(index); err != nil {
		return err
	}
	if !s.IsStepComplete(index) {
		s.CompletedSteps = append(s.CompletedSteps, index)
		slices.Sort(s.CompletedSteps)
	}
	s.Touch()
	return nil
}

// CanGoNext reports whether advancing is currently allowed: not on the
// last step, no outstanding validation errors, current step complete.
func (s *FlowSession) CanGoNext() error {
	if s.CurrentStepIndex >= s.TotalSteps()-1 {
		return fmt.Errorf("%w: already on last step", ErrInvalidStep)
	}
	if len(s.ValidationErrors) > 0 {
		return fmt.Errorf("%w: %d unresolved", ErrStepBlocked, len(s.ValidationErrors))
	}
	if !s.IsStepComplete(s.CurrentStepIndex) {
		return fmt.Errorf("%w: step %d not marked complete", ErrStepIncomplete, s.CurrentStepIndex)
	}
	return nil
}

// GoNext advances one step when allowed. A disallowed advance leaves the
// session unchanged and returns the reason.
func (s *FlowSession) GoNext() error {
	if err := s.CanGoNext(); err != nil {
		return err
	}
	s.enterStep(s.CurrentStepIndex + 1)
	return nil
}

// GoPrevious moves one step back. Always permitted above step 0.
func (s *FlowSession) GoPrevious() error {
	if s.CurrentStepIndex <= 0 {
		return fmt.Errorf("%w: already on first step", ErrInvalidStep)
	}
	s.enterStep(s.CurrentStepIndex - 1)
	return nil
}

// GoToStep jumps to an arbitrary step. Out-of-range targets are rejected,
// never clamped.
func (s *FlowSession) GoToStep(index int) error {
	if index < 0 || index >= s.TotalSteps() {
		return fmt.Errorf("%w: %d of %d", ErrInvalidStep, index, s.TotalSteps())
	}
	s.enterStep(index)
	return nil
}

// enterStep moves to the step and clears step-scoped validation state.
func (s *FlowSession) enterStep(index int) {
	s.CurrentStepIndex = index
	s.ValidationErrors = nil
	s.ValidationWarnings = nil
	s.Touch()
}

// Reset returns the session to step 0 and clears completion and
// validation state. Protocol artifacts are left to ClearProtocolState.
func (s *FlowSession) Reset() {
	s.CurrentStepIndex = 0
	s.CompletedSteps = nil
	s.ValidationErrors = nil
	s.ValidationWarnings = nil
	s.Touch()
}

// ClearProtocolState discards every accumulated protocol artifact.
// Used by restarts and flow-type changes, where stale state from one
// grant type must never leak into another.
func (s *FlowSession) ClearProtocolState() {
	s.FlowState = FlowState{}
	s.Touch()
}

// SetValidation replaces the current step's validation messages.
func (s *FlowSession) SetValidation(errs, warns []string) {
	s.ValidationErrors = errs
	s.ValidationWarnings = warns
	s.Touch()
}

// StoreTokens records a token bundle for a session that has none.
// Overwriting an existing bundle requires ReplaceTokens, so tokens are
// never clobbered by accident.
func (s *FlowSession) StoreTokens(t *TokenBundle) error {
	if s.FlowState.Tokens != nil {
		return fmt.Errorf("%w: tokens already present", ErrAlreadyExists)
	}
	s.FlowState.Tokens = t
	s.Touch()
	return nil
}

// ReplaceTokens overwrites the token bundle. Only explicit refresh and
// restart paths call this.
func (s *FlowSession) ReplaceTokens(t *TokenBundle) {
	s.FlowState.Tokens = t
	s.Touch()
}

// SetDeviceBundle installs a device-authorization bundle, superseding any
// previous one whole and resetting the polling status for a fresh run.
func (s *FlowSession) SetDeviceBundle(b *DeviceCodeBundle) {
	s.FlowState.Device = b
	s.FlowState.Polling = PollingStatus{}
	s.Touch()
}

// IsExpired reports whether the session passed its expiry deadline.
func (s *FlowSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Touch updates the modification timestamp.
func (s *FlowSession) Touch() {
	s.UpdatedAt = time.Now()
}
