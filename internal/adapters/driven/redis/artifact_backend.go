package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ArtifactBackend = (*ArtifactBackend)(nil)

// ArtifactBackend is a Redis tier of the artifact store. Keys arrive
// already namespaced; expiry rides on Redis TTLs.
type ArtifactBackend struct {
	client *redis.Client
}

// NewArtifactBackend creates a Redis-backed artifact tier.
func NewArtifactBackend(client *redis.Client) *ArtifactBackend {
	return &ArtifactBackend{client: client}
}

// Name identifies the backend in logs and repair messages.
func (b *ArtifactBackend) Name() string { return "redis" }

// Put stores a value under a key with the given TTL. A zero TTL stores
// without expiry.
func (b *ArtifactBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis put %q: %w", key, err)
	}
	return nil
}

// Get returns the value for a key, or domain.ErrNotFound.
func (b *ArtifactBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, nil
}

// Delete removes a key; deleting an absent key is not an error.
func (b *ArtifactBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", key, err)
	}
	return nil
}

// Ping reports whether the server answers.
func (b *ArtifactBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
