package driving

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// RedirectlessService drives the decoupled authorization variant: the
// client posts to the authorization endpoint directly and walks a
// status-dispatched resume protocol instead of following redirects.
type RedirectlessService interface {
	// Start posts the initial authorization request and dispatches on
	// the returned status
	Start(ctx context.Context, sessionID string) (*RedirectlessOutcome, error)

	// SubmitCredentials supplies username/password for an attempt that
	// asked for them, handling the password-change branch internally
	SubmitCredentials(ctx context.Context, sessionID string, req CredentialsRequest) (*RedirectlessOutcome, error)

	// Resume continues an attempt the provider marked ready to resume
	Resume(ctx context.Context, sessionID string) (*RedirectlessOutcome, error)
}

// CredentialsRequest carries the end user's login for a redirectless
// attempt.
// @Description Username and password for the decoupled login
type CredentialsRequest struct {
	Username string `json:"username" example:"demo.user"`
	Password string `json:"password"`

	// NewPassword is consumed when the provider demands a password
	// change; ignored otherwise
	NewPassword string `json:"new_password,omitempty"`
}

// RedirectlessOutcome reports where the attempt stands after one call.
// @Description Current state of the redirectless attempt
type RedirectlessOutcome struct {
	// Status is the provider-reported attempt status
	Status domain.AuthStatus `json:"status" example:"READY_TO_RESUME"`

	// AwaitingCredentials is true when the caller must supply a login
	AwaitingCredentials bool `json:"awaiting_credentials"`

	// Code is the extracted authorization code, once present
	Code string `json:"code,omitempty"`

	// TokensObtained is true when the attempt yielded tokens directly
	TokensObtained bool `json:"tokens_obtained"`

	// NextStepIndex is where the sequencer moved the session, -1 when
	// the step did not change
	NextStepIndex int `json:"next_step_index"`

	// Raw is the provider's last response payload, for display
	Raw map[string]any `json:"raw,omitempty"`
}
