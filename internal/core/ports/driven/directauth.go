package driven

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// DirectAuthGateway performs the redirectless authorization calls. The
// provider answers these with structured statuses instead of HTTP
// redirects; responses are returned as decoded JSON objects because
// their shape varies by provider and the extraction rules live in the
// domain layer.
type DirectAuthGateway interface {
	// StartDirectAuth posts the initial authorization request
	StartDirectAuth(ctx context.Context, endpoints *Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error)

	// CheckCredentials submits username/password for a started attempt,
	// carrying the provider-assigned correlator
	CheckCredentials(ctx context.Context, endpoints *Endpoints, correlator, username, password string) (map[string]any, error)

	// ResumeDirectAuth continues an attempt that is ready to resume
	ResumeDirectAuth(ctx context.Context, endpoints *Endpoints, creds *domain.FlowCredentials, correlator, resumeURL string) (map[string]any, error)

	// ChangePassword rotates an account password using a worker token,
	// for accounts the provider flags as must-change-password
	ChangePassword(ctx context.Context, endpoints *Endpoints, workerToken, username, currentPassword, newPassword string) error
}
