package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ChallengeMethod is the PKCE code-challenge transformation.
type ChallengeMethod string

const (
	// ChallengeS256 is the only method this playground issues
	ChallengeS256 ChallengeMethod = "S256"
	// ChallengePlain exists solely so stored legacy bundles can be
	// recognised and discarded; it is never generated or sent
	ChallengePlain ChallengeMethod = "plain"
)

// Verifier length bounds from RFC 7636 section 4.1.
const (
	minVerifierLen = 43
	maxVerifierLen = 128
	verifierBytes  = 48 // 64 base64url characters
)

// PKCEBundle binds an authorization code to the client that requested it.
// Verifier and challenge are created together by the constructor; a bundle
// with one but not the other cannot exist.
type PKCEBundle struct {
	CodeVerifier        string          `json:"code_verifier"`
	CodeChallenge       string          `json:"code_challenge"`
	CodeChallengeMethod ChallengeMethod `json:"code_challenge_method"`
}

// NewPKCEBundle generates a fresh verifier and its S256 challenge.
func NewPKCEBundle() *PKCEBundle {
	verifier := randomURLSafe(verifierBytes)
	return &PKCEBundle{
		CodeVerifier:        verifier,
		CodeChallenge:       ChallengeS256.Transform(verifier),
		CodeChallengeMethod: ChallengeS256,
	}
}

// Transform applies the challenge method to a verifier.
func (m ChallengeMethod) Transform(verifier string) string {
	if m == ChallengePlain {
		return verifier
	}
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Validate rejects bundles that must not feed a new authorization URL:
// anything not S256 (stale storage from older renditions), a verifier
// outside the RFC length bounds, or a challenge that does not match the
// verifier.
func (b *PKCEBundle) Validate() error {
	if b.CodeChallengeMethod != ChallengeS256 {
		return fmt.Errorf("%w: method %q", ErrStalePKCE, b.CodeChallengeMethod)
	}
	if len(b.CodeVerifier) < minVerifierLen || len(b.CodeVerifier) > maxVerifierLen {
		return fmt.Errorf("%w: verifier length %d", ErrStalePKCE, len(b.CodeVerifier))
	}
	if ChallengeS256.Transform(b.CodeVerifier) != b.CodeChallenge {
		return fmt.Errorf("%w: challenge does not match verifier", ErrStalePKCE)
	}
	return nil
}

// NewStateValue generates a CSRF state parameter.
func NewStateValue() string {
	return randomURLSafe(32)
}

// NewNonceValue generates an OIDC nonce.
func NewNonceValue() string {
	return randomURLSafe(32)
}

func randomURLSafe(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
