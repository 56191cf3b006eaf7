package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FlowSessionStore = (*FlowSessionStore)(nil)

// credentialSecrets is the encrypted remainder of a session: the fields
// the JSON document deliberately strips.
type credentialSecrets struct {
	ClientSecret    string `json:"client_secret,omitempty"`
	ManagementToken string `json:"management_token,omitempty"`
}

// FlowSessionStore implements driven.FlowSessionStore using PostgreSQL.
// The session document is stored as plain JSON minus its secrets, which
// travel in a separately encrypted blob and are rejoined on load.
type FlowSessionStore struct {
	db  *DB
	enc *SecretEncryptor
}

// NewFlowSessionStore creates a PostgreSQL-backed session store.
func NewFlowSessionStore(db *DB, enc *SecretEncryptor) *FlowSessionStore {
	return &FlowSessionStore{db: db, enc: enc}
}

// Save stores a session, overwriting any previous version.
func (s *FlowSessionStore) Save(ctx context.Context, session *domain.FlowSession) error {
	document, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	secrets, err := s.enc.Encrypt(credentialSecrets{
		ClientSecret:    session.Credentials.ClientSecret,
		ManagementToken: session.Credentials.ManagementToken,
	})
	if err != nil {
		return fmt.Errorf("encrypt session secrets: %w", err)
	}

	query := `
		INSERT INTO flow_sessions (id, flow_type, spec_version, document, secrets, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			flow_type = EXCLUDED.flow_type,
			spec_version = EXCLUDED.spec_version,
			document = EXCLUDED.document,
			secrets = EXCLUDED.secrets,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		string(session.FlowType),
		string(session.SpecVersion),
		document,
		secrets,
		session.CreatedAt,
		session.UpdatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save session %q: %w", session.ID, err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *FlowSessionStore) Get(ctx context.Context, id string) (*domain.FlowSession, error) {
	query := `
		SELECT document, secrets
		FROM flow_sessions
		WHERE id = $1
	`

	var document, secrets []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&document, &secrets)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", id, err)
	}

	var session domain.FlowSession
	if err := json.Unmarshal(document, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %q: %w", id, err)
	}

	if len(secrets) > 0 {
		var sec credentialSecrets
		if err := s.enc.Decrypt(secrets, &sec); err != nil {
			return nil, fmt.Errorf("decrypt session secrets %q: %w", id, err)
		}
		session.Credentials.ClientSecret = sec.ClientSecret
		session.Credentials.ManagementToken = sec.ManagementToken
	}

	return &session, nil
}

// Delete removes a session; deleting an absent session is not an error.
func (s *FlowSessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flow_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	return nil
}

// List returns every stored session, expired ones included; callers
// filter by expiry themselves.
func (s *FlowSessionStore) List(ctx context.Context) ([]*domain.FlowSession, error) {
	query := `
		SELECT document, secrets
		FROM flow_sessions
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.FlowSession
	for rows.Next() {
		var document, secrets []byte
		if err := rows.Scan(&document, &secrets); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		var session domain.FlowSession
		if err := json.Unmarshal(document, &session); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		if len(secrets) > 0 {
			var sec credentialSecrets
			if err := s.enc.Decrypt(secrets, &sec); err != nil {
				return nil, fmt.Errorf("decrypt session secrets %q: %w", session.ID, err)
			}
			session.Credentials.ClientSecret = sec.ClientSecret
			session.Credentials.ManagementToken = sec.ManagementToken
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// DeleteExpired removes sessions past their expiry and returns their IDs
// so the caller can release any per-session resources.
func (s *FlowSessionStore) DeleteExpired(ctx context.Context) ([]string, error) {
	query := `
		DELETE FROM flow_sessions
		WHERE expires_at < now()
		RETURNING id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
