package driving

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// DeviceService owns the device-authorization grant: code issuance and
// the polling run against the token endpoint.
type DeviceService interface {
	// RequestDeviceCode obtains a fresh device/user code pair. Any
	// active polling run is cancelled and has fully stopped before the
	// new bundle exists.
	RequestDeviceCode(ctx context.Context, sessionID string) (*domain.DeviceCodeBundle, error)

	// StartPolling begins the polling run for the active device code.
	// A start while a run is active is a no-op.
	StartPolling(ctx context.Context, sessionID string) error

	// StopPolling cancels the active run. Idempotent; safe with no run.
	StopPolling(ctx context.Context, sessionID string) error

	// PollingStatus reports the current run's state
	PollingStatus(ctx context.Context, sessionID string) (*DevicePollStatus, error)
}

// DevicePollStatus is the externally visible polling state.
// @Description Device polling run status with countdown values
type DevicePollStatus struct {
	IsPolling       bool   `json:"is_polling"`
	PollCount       int    `json:"poll_count" example:"3"`
	IntervalSeconds int    `json:"interval_seconds" example:"5"`
	LastError       string `json:"last_error,omitempty"`

	// DeviceRemainingSeconds counts down to device-code expiry
	DeviceRemainingSeconds int `json:"device_remaining_seconds" example:"412"`

	// TokensObtained is true once the run succeeded
	TokensObtained bool `json:"tokens_obtained"`
}
