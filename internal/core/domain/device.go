package domain

import (
	"time"
)

// DefaultPollInterval is the RFC 8628 fallback when the server omits one.
const DefaultPollInterval = 5

// DeviceCodeBundle is one device-authorization response. Each request
// supersedes the previous bundle whole; bundles are never merged.
type DeviceCodeBundle struct {
	// DeviceCode is the code the client polls the token endpoint with
	DeviceCode string `json:"device_code"`

	// UserCode is the short code the user types on the verification page
	UserCode string `json:"user_code"`

	// VerificationURI is where the user authorizes the device
	VerificationURI string `json:"verification_uri"`

	// VerificationURIComplete embeds the user code, when provided
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`

	// ExpiresIn is the code lifetime in seconds as issued
	ExpiresIn int `json:"expires_in"`

	// ExpiresAt is the absolute deadline, derived at creation
	ExpiresAt time.Time `json:"expires_at"`

	// PollInterval is the server-requested polling interval in seconds
	PollInterval int `json:"poll_interval"`

	// IssuedAt is when the bundle was created
	IssuedAt time.Time `json:"issued_at"`
}

// NewDeviceCodeBundle derives the absolute expiry from the issued
// lifetime and fills in the RFC default interval when the server omits it.
func NewDeviceCodeBundle(deviceCode, userCode, verificationURI, verificationURIComplete string, expiresIn, interval int) *DeviceCodeBundle {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	now := time.Now()
	return &DeviceCodeBundle{
		DeviceCode:              deviceCode,
		UserCode:                userCode,
		VerificationURI:         verificationURI,
		VerificationURIComplete: verificationURIComplete,
		ExpiresIn:               expiresIn,
		ExpiresAt:               now.Add(time.Duration(expiresIn) * time.Second),
		PollInterval:            interval,
		IssuedAt:                now,
	}
}

// Interval returns the server-requested interval as a duration.
func (d *DeviceCodeBundle) Interval() time.Duration {
	return time.Duration(d.PollInterval) * time.Second
}

// Expired reports whether the device code passed its lifetime.
func (d *DeviceCodeBundle) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// RemainingSeconds returns the whole seconds until expiry, floored at 0.
func (d *DeviceCodeBundle) RemainingSeconds(now time.Time) int {
	remaining := int(d.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MaxAttempts derives the polling attempt budget from the code lifetime
// and the starting interval, plus a safety buffer for slow responses.
func (d *DeviceCodeBundle) MaxAttempts(buffer int) int {
	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	attempts := (d.ExpiresIn + interval - 1) / interval
	if attempts < 1 {
		attempts = 1
	}
	return attempts + buffer
}

// PollingStatus tracks one device polling run. Rebuilt for each run;
// PollCount increases monotonically within a run and resets to 0 when a
// new run begins.
type PollingStatus struct {
	// IsPolling is true while a run is executing
	IsPolling bool `json:"is_polling"`

	// PollCount is the number of attempts made in the current run
	PollCount int `json:"poll_count"`

	// IntervalSeconds is the effective interval, adjusted by slow_down
	IntervalSeconds int `json:"interval_seconds"`

	// LastPolledAt is when the most recent attempt was made
	LastPolledAt *time.Time `json:"last_polled_at,omitempty"`

	// LastError is the terminal error of the run, empty on success
	LastError string `json:"last_error,omitempty"`
}

// BeginRun resets the status for a fresh polling run.
func (p *PollingStatus) BeginRun(intervalSeconds int) {
	p.IsPolling = true
	p.PollCount = 0
	p.IntervalSeconds = intervalSeconds
	p.LastPolledAt = nil
	p.LastError = ""
}

// RecordAttempt counts one poll attempt.
func (p *PollingStatus) RecordAttempt() {
	now := time.Now()
	p.PollCount++
	p.LastPolledAt = &now
}

// SlowDown raises the effective interval for subsequent attempts.
func (p *PollingStatus) SlowDown(intervalSeconds int) {
	p.IntervalSeconds = intervalSeconds
}

// Finish ends the run successfully.
func (p *PollingStatus) Finish() {
	p.IsPolling = false
	p.LastError = ""
}

// Fail ends the run with a terminal error.
func (p *PollingStatus) Fail(msg string) {
	p.IsPolling = false
	p.LastError = msg
}

// Interval returns the effective interval as a duration.
func (p *PollingStatus) Interval() time.Duration {
	interval := p.IntervalSeconds
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return time.Duration(interval) * time.Second
}
