package memory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ArtifactBackend = (*ArtifactBackend)(nil)

// ArtifactBackend is the in-process fast tier of the artifact store.
// Entries expire on their own TTL; reads do not extend it, the TTL is
// a hygiene bound rather than an activity window.
type ArtifactBackend struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewArtifactBackend creates the in-memory backend and starts its
// expiry loop.
func NewArtifactBackend() *ArtifactBackend {
	cache := ttlcache.New[string, []byte](
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go cache.Start()
	return &ArtifactBackend{cache: cache}
}

// Name identifies the backend in logs and repair messages.
func (b *ArtifactBackend) Name() string { return "memory" }

// Put stores a value under a key with the given TTL.
func (b *ArtifactBackend) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	// The cache keeps the slice it is handed; copy so later caller
	// mutations cannot leak in.
	buf := make([]byte, len(value))
	copy(buf, value)
	b.cache.Set(key, buf, ttl)
	return nil
}

// Get returns the value for a key, or domain.ErrNotFound.
func (b *ArtifactBackend) Get(_ context.Context, key string) ([]byte, error) {
	item := b.cache.Get(key)
	if item == nil {
		return nil, domain.ErrNotFound
	}
	value := item.Value()
	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, nil
}

// Delete removes a key; deleting an absent key is not an error.
func (b *ArtifactBackend) Delete(_ context.Context, key string) error {
	b.cache.Delete(key)
	return nil
}

// Ping reports readiness; the in-process tier is always ready.
func (b *ArtifactBackend) Ping(_ context.Context) error { return nil }

// Close stops the expiry loop.
func (b *ArtifactBackend) Close() {
	b.cache.Stop()
}
