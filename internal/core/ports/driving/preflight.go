package driving

import (
	"context"

	"github.com/grantlab/grantlab-core/internal/core/domain"
)

// PreflightService validates a session's configuration before a protocol
// exchange, so mismatches surface as actionable findings instead of
// cryptic remote rejections.
type PreflightService interface {
	// Validate runs the check pipeline for the session's flow type.
	// The report is also recorded on the session's current step.
	Validate(ctx context.Context, sessionID string) (*domain.ValidationReport, error)

	// ApplyFix applies one suggested fix to the session's credentials
	// and re-runs validation, returning the fresh report. The fix is
	// the one the caller picked from a previous report.
	ApplyFix(ctx context.Context, sessionID string, fix domain.FixSuggestion) (*domain.ValidationReport, error)
}
