package driven

import (
	"context"
	"time"
)

// ArtifactBackend is one storage backend in the redundancy layer.
// Implementations hold small protocol secrets (PKCE bundles, device
// codes, tokens) that must survive redirects and process restarts.
// Absence is reported as domain.ErrNotFound, never as a bare nil value.
type ArtifactBackend interface {
	// Name identifies the backend in logs and aggregated errors
	Name() string

	// Put stores a value under the key with a time-to-live
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value, or domain.ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a value; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}
