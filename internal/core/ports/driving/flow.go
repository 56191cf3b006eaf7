package driving

import (
	"context"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// FlowService is the single source of truth for where a session is in
// its flow and which transitions are allowed. All navigation goes
// through it; nothing else mutates step state.
type FlowService interface {
	// Create starts a new session at the configuration step
	Create(ctx context.Context, req CreateFlowRequest) (*FlowSnapshot, error)

	// Get returns the current session state
	Get(ctx context.Context, sessionID string) (*FlowSnapshot, error)

	// Delete removes a session and tears down its resources
	Delete(ctx context.Context, sessionID string) error

	// GoNext advances one step when the current step permits it
	GoNext(ctx context.Context, sessionID string) (*FlowSnapshot, error)

	// GoPrevious moves one step back
	GoPrevious(ctx context.Context, sessionID string) (*FlowSnapshot, error)

	// GoToStep jumps to a step index, validated against the topology
	GoToStep(ctx context.Context, sessionID string, index int) (*FlowSnapshot, error)

	// MarkStepComplete records the current step as complete
	MarkStepComplete(ctx context.Context, sessionID string) (*FlowSnapshot, error)

	// Reset returns the session to step 0, clearing all flow state
	Reset(ctx context.Context, sessionID string) (*FlowSnapshot, error)

	// ChangeFlowType restarts the session under a different grant type,
	// clearing stored artifacts of both the old and new types
	ChangeFlowType(ctx context.Context, sessionID string, flowType domain.FlowType) (*FlowSnapshot, error)

	// UpdateCredentials replaces the session's client configuration
	UpdateCredentials(ctx context.Context, sessionID string, creds domain.FlowCredentials) (*FlowSnapshot, error)
}

// CreateFlowRequest starts a new flow session.
// @Description Request to create a new flow session
type CreateFlowRequest struct {
	// FlowType is the grant type to exercise
	FlowType domain.FlowType `json:"flow_type" example:"authorization-code"`

	// SpecVersion is the protocol profile to follow
	SpecVersion domain.SpecVersion `json:"spec_version" example:"oidc"`

	// Credentials is the initial client configuration
	Credentials domain.FlowCredentials `json:"credentials"`
}

// FlowSnapshot is the externally visible state of a session.
// @Description Current state of a flow session
type FlowSnapshot struct {
	ID               string             `json:"id"`
	FlowType         domain.FlowType    `json:"flow_type" example:"authorization-code"`
	SpecVersion      domain.SpecVersion `json:"spec_version" example:"oidc"`
	CurrentStepIndex int                `json:"current_step_index" example:"2"`
	TotalSteps       int                `json:"total_steps" example:"8"`
	Steps            []domain.Step      `json:"steps"`
	CompletedSteps   []int              `json:"completed_steps"`

	ValidationErrors   []string `json:"validation_errors,omitempty"`
	ValidationWarnings []string `json:"validation_warnings,omitempty"`

	Credentials domain.CredentialsSummary `json:"credentials"`
	State       domain.FlowState          `json:"state"`

	// DeviceRemainingSeconds counts down to device-code expiry
	DeviceRemainingSeconds int `json:"device_remaining_seconds,omitempty"`

	// TokenRemainingSeconds counts down to access-token expiry
	TokenRemainingSeconds int `json:"token_remaining_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFlowSnapshot projects a session into its external view, computing
// the countdown values from stored absolute deadlines.
func NewFlowSnapshot(s *domain.FlowSession) *FlowSnapshot {
	now := time.Now()
	snap := &FlowSnapshot{
		ID:                 s.ID,
		FlowType:           s.FlowType,
		SpecVersion:        s.SpecVersion,
		CurrentStepIndex:   s.CurrentStepIndex,
		TotalSteps:         s.TotalSteps(),
		Steps:              s.Steps(),
		CompletedSteps:     s.CompletedSteps,
		ValidationErrors:   s.ValidationErrors,
		ValidationWarnings: s.ValidationWarnings,
		Credentials:        s.Credentials.ToSummary(),
		State:              s.FlowState,
		CreatedAt:          s.CreatedAt,
		ExpiresAt:          s.ExpiresAt,
	}
	if s.FlowState.Device != nil {
		snap.DeviceRemainingSeconds = s.FlowState.Device.RemainingSeconds(now)
	}
	if s.FlowState.Tokens != nil {
		snap.TokenRemainingSeconds = s.FlowState.Tokens.RemainingSeconds(now)
	}
	return snap
}
