package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ArtifactBackend = (*ArtifactBackend)(nil)

// ArtifactBackend is the durable PostgreSQL tier of the artifact store.
// Every value is encrypted before it reaches a row, so a database dump
// never exposes verifiers or tokens.
type ArtifactBackend struct {
	db  *DB
	enc *SecretEncryptor
}

// NewArtifactBackend creates a PostgreSQL-backed artifact tier.
func NewArtifactBackend(db *DB, enc *SecretEncryptor) *ArtifactBackend {
	return &ArtifactBackend{db: db, enc: enc}
}

// Name identifies the backend in logs and repair messages.
func (b *ArtifactBackend) Name() string { return "postgres" }

// Put stores a value under a key with the given TTL. A zero TTL stores
// without expiry.
func (b *ArtifactBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	blob, err := b.enc.EncryptBytes(value)
	if err != nil {
		return fmt.Errorf("encrypt artifact %q: %w", key, err)
	}

	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
	}

	query := `
		INSERT INTO artifacts (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`

	if _, err := b.db.ExecContext(ctx, query, key, blob, expiresAt); err != nil {
		return fmt.Errorf("store artifact %q: %w", key, err)
	}
	return nil
}

// Get returns the value for a key, or domain.ErrNotFound. Expired rows
// count as absent; the janitor removes them later.
func (b *ArtifactBackend) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM artifacts
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
	`

	var blob []byte
	err := b.db.QueryRowContext(ctx, query, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %q: %w", key, err)
	}

	value, err := b.enc.DecryptBytes(blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt artifact %q: %w", key, err)
	}
	return value, nil
}

// Delete removes a key; deleting an absent key is not an error.
func (b *ArtifactBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM artifacts WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete artifact %q: %w", key, err)
	}
	return nil
}

// Ping checks if the database is reachable.
func (b *ArtifactBackend) Ping(ctx context.Context) error {
	return b.db.Ping(ctx)
}

// PruneExpired removes rows whose TTL has passed and reports how many
// went away. The cleanup worker calls this on its sweep.
func (b *ArtifactBackend) PruneExpired(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE expires_at IS NOT NULL AND expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("prune artifacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
