package domain

import "time"

// StepResult is the outcome of one workflow step. It is produced by the
// orchestrator's stage wrapper and consumed by the reporter and the retry
// policy.
type StepResult struct {
	Stage       Stage
	Success     bool
	Err         error
	Screenshot  string // path of the diagnostic screenshot, if one was captured
	Artifact    string // path of a produced artifact (downloaded file), if any
	Attempt     int    // 1-based attempt index for retryable stages, 0 otherwise
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration returns how long the step took.
func (r StepResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// ErrorDetail returns the error text, or an empty string on success.
func (r StepResult) ErrorDetail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
