package driven

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// ManagementAPI queries the provider's management plane. Pre-flight uses
// it to fetch the live registered application configuration; the
// redirectless password-change branch uses the worker token it mints.
type ManagementAPI interface {
	// FetchApplication returns the registered client configuration,
	// or domain.ErrNotFound when the client is unknown
	FetchApplication(ctx context.Context, environmentID, clientID, bearerToken string) (*domain.RegisteredApplication, error)

	// ObtainWorkerToken mints a management token for the environment,
	// or domain.ErrNoManagementToken when none is configured
	ObtainWorkerToken(ctx context.Context, environmentID string) (string, error)
}
