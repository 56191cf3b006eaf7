package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidStep indicates a step index outside the flow's range
	ErrInvalidStep = errors.New("invalid step index")

	// ErrStepIncomplete indicates the current step has unmet completion criteria
	ErrStepIncomplete = errors.New("step incomplete")

	// ErrStepBlocked indicates the current step has unresolved validation errors
	ErrStepBlocked = errors.New("step blocked by validation errors")

	// ErrSessionNotFound indicates the flow session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the flow session passed its expiry deadline
	ErrSessionExpired = errors.New("session expired")

	// ErrStateMismatch indicates the callback state does not match the stored state
	ErrStateMismatch = errors.New("state parameter mismatch")

	// ErrStalePKCE indicates a stored PKCE bundle with an unusable challenge method
	ErrStalePKCE = errors.New("stale pkce bundle")

	// ErrNoPKCE indicates an operation that needs a PKCE bundle found none
	ErrNoPKCE = errors.New("no pkce bundle")

	// ErrNoDeviceCode indicates polling was requested without a device code
	ErrNoDeviceCode = errors.New("no device code")

	// ErrDeviceCodeExpired indicates the device code passed its lifetime
	ErrDeviceCodeExpired = errors.New("device code expired")

	// ErrPollingActive indicates a polling run is already in progress
	ErrPollingActive = errors.New("polling already active")

	// ErrPollingTimeout indicates the polling attempt budget was exhausted
	ErrPollingTimeout = errors.New("polling attempt budget exhausted")

	// ErrAccessDenied indicates the end user declined the authorization
	ErrAccessDenied = errors.New("access denied by user")

	// ErrAuthorizationPending indicates the user has not yet approved the device
	ErrAuthorizationPending = errors.New("authorization pending")

	// ErrSlowDown indicates the server asked for a longer polling interval
	ErrSlowDown = errors.New("slow down")

	// ErrNoActiveAuth indicates a redirectless call without a started authorization
	ErrNoActiveAuth = errors.New("no active authorization")

	// ErrUnexpectedStatus indicates a redirectless response status with no handler
	ErrUnexpectedStatus = errors.New("unexpected authorization status")

	// ErrPasswordChangeRequired indicates the account must rotate its password first
	ErrPasswordChangeRequired = errors.New("password change required")

	// ErrNoManagementToken indicates pre-flight could not obtain a check token
	ErrNoManagementToken = errors.New("no management token available")

	// ErrBackendUnavailable indicates a storage backend could not be reached
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

// OAuth protocol error codes as returned in error response bodies.
const (
	OAuthErrAuthorizationPending = "authorization_pending"
	OAuthErrSlowDown             = "slow_down"
	OAuthErrAccessDenied         = "access_denied"
	OAuthErrExpiredToken         = "expired_token"
	OAuthErrInvalidGrant         = "invalid_grant"
	OAuthErrInvalidClient        = "invalid_client"
	OAuthErrInvalidScope         = "invalid_scope"
	OAuthErrInvalidRequest       = "invalid_request"
)

// OAuthError carries a protocol error body verbatim alongside its mapping
// onto a domain sentinel. Transport failures are never wrapped in this type;
// only responses the provider actually sent become OAuthErrors.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`

	// Interval is the server-provided polling interval some providers
	// attach to slow_down responses, in seconds
	Interval int `json:"interval,omitempty"`
}

// Error implements the error interface.
func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth error %q: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("oauth error %q", e.Code)
}

// Unwrap maps well-known protocol codes onto domain sentinels so callers
// can use errors.Is without inspecting code strings.
func (e *OAuthError) Unwrap() error {
	switch e.Code {
	case OAuthErrAuthorizationPending:
		return ErrAuthorizationPending
	case OAuthErrSlowDown:
		return ErrSlowDown
	case OAuthErrAccessDenied:
		return ErrAccessDenied
	case OAuthErrExpiredToken:
		return ErrDeviceCodeExpired
	default:
		return nil
	}
}
