package bunt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ArtifactBackend = (*ArtifactBackend)(nil)

// ArtifactBackend is an embedded durable tier backed by a single-file
// buntdb database. It survives process restarts without any external
// service, which keeps the redundant-store default useful on a laptop.
type ArtifactBackend struct {
	db *buntdb.DB
}

// NewArtifactBackend opens the database at path; an empty path keeps
// everything in memory, which the tests rely on.
func NewArtifactBackend(path string) (*ArtifactBackend, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb at %q: %w", path, err)
	}
	return &ArtifactBackend{db: db}, nil
}

// Name identifies the backend in logs and repair messages.
func (b *ArtifactBackend) Name() string { return "bunt" }

// Put stores a value under a key with the given TTL.
func (b *ArtifactBackend) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		var opts *buntdb.SetOptions
		if ttl > 0 {
			opts = &buntdb.SetOptions{Expires: true, TTL: ttl}
		}
		_, _, err := tx.Set(key, string(value), opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("bunt put %q: %w", key, err)
	}
	return nil
}

// Get returns the value for a key, or domain.ErrNotFound.
func (b *ArtifactBackend) Get(_ context.Context, key string) ([]byte, error) {
	var value string
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bunt get %q: %w", key, err)
	}
	return []byte(value), nil
}

// Delete removes a key; deleting an absent key is not an error.
func (b *ArtifactBackend) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("bunt delete %q: %w", key, err)
	}
	return nil
}

// Ping reports readiness by running an empty read transaction.
func (b *ArtifactBackend) Ping(_ context.Context) error {
	return b.db.View(func(tx *buntdb.Tx) error { return nil })
}

// Close closes the database file.
func (b *ArtifactBackend) Close() error {
	return b.db.Close()
}
