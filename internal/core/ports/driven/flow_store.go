package driven

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// FlowSessionStore persists flow sessions across requests.
type FlowSessionStore interface {
	// Save stores or replaces a session
	Save(ctx context.Context, session *domain.FlowSession) error

	// Get retrieves a session by ID, or domain.ErrSessionNotFound
	Get(ctx context.Context, id string) (*domain.FlowSession, error)

	// Delete removes a session; deleting an absent session is not an error
	Delete(ctx context.Context, id string) error

	// List returns all live sessions
	List(ctx context.Context) ([]*domain.FlowSession, error)

	// DeleteExpired removes sessions past their expiry deadline and
	// returns their IDs so callers can tear down attached resources
	DeleteExpired(ctx context.Context) ([]string, error)
}
