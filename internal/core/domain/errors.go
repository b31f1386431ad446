package domain

import (
	"errors"
	"fmt"
)

// ErrCaptchaExhausted is returned when every configured CAPTCHA attempt was
// rejected by the portal.
var ErrCaptchaExhausted = errors.New("captcha_exhausted")

// ConfigError marks a missing or invalid configuration value. It is fatal and
// is never retried: a missing credential is an operator mistake, not a
// transient fault.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// NavigationErrorKind distinguishes the two ways waiting for a page marker
// can fail. A marker that never existed usually means the portal layout
// changed; a marker that simply took too long is a transient fault.
type NavigationErrorKind string

const (
	// NavigationTimedOut means the marker existed (or could still appear)
	// but did not become visible within the configured timeout.
	NavigationTimedOut NavigationErrorKind = "timed_out"

	// NavigationMarkerMissing means the marker was absent from the page when
	// the timeout elapsed, suggesting a site-layout change rather than a
	// slow page load.
	NavigationMarkerMissing NavigationErrorKind = "marker_missing"
)

// NavigationError records a failed page-marker wait.
type NavigationError struct {
	Stage   Stage
	Marker  string
	Kind    NavigationErrorKind
	Timeout string
	Err     error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed at %s: marker %q %s after %s", e.Stage, e.Marker, e.Kind, e.Timeout)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// VerificationError marks a download that completed but produced an unusable
// artifact. It is terminal and never treated as success.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("download verification failed: %s", e.Reason)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsVerificationError reports whether err is (or wraps) a VerificationError.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}
