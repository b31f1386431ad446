package ports

import (
	"context"
	"errors"
	"time"

	"tmexport.in/cli/internal/core/domain"
)

// Sentinel errors returned by BrowserDriver.WaitVisible so the orchestrator
// can tell a slow page apart from a changed page layout.
var (
	// ErrWaitTimedOut means the marker did not become visible in time but
	// was present in the DOM when the deadline hit.
	ErrWaitTimedOut = errors.New("wait for marker timed out")

	// ErrMarkerMissing means the marker was absent from the DOM entirely
	// when the deadline hit.
	ErrMarkerMissing = errors.New("marker not present in page")
)

// Download describes a completed browser download before it is moved to its
// final destination.
type Download struct {
	// Path is where the browser wrote the file.
	Path string

	// SuggestedName is the filename the portal suggested for the download.
	SuggestedName string

	// Size is the byte size reported on completion.
	Size int64
}

// BrowserDriver is the port for the browser automation engine. Selectors are
// CSS queries, or XPath expressions when prefixed with "//". The workflow
// treats the engine purely through this interface; adapters live under
// internal/browser.
type BrowserDriver interface {
	// Navigate opens the given URL and waits for the page load to settle.
	Navigate(ctx context.Context, url string) error

	// Fill types value into the element matched by selector.
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the element matched by selector.
	Click(ctx context.Context, selector string) error

	// WaitVisible blocks until the element matched by selector is visible,
	// the timeout elapses, or ctx is cancelled. On deadline it returns an
	// error wrapping ErrWaitTimedOut or ErrMarkerMissing.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// CurrentURL returns the URL of the active page.
	CurrentURL(ctx context.Context) (string, error)

	// CaptureScreenshot returns a PNG of the full viewport.
	CaptureScreenshot(ctx context.Context) ([]byte, error)

	// CaptureElement returns a PNG of just the element matched by selector.
	CaptureElement(ctx context.Context, selector string) ([]byte, error)

	// ScrollToBottom scrolls the page to its full height.
	ScrollToBottom(ctx context.Context) error

	// AwaitDownload blocks until a download started after the call completes,
	// returning its location, or fails once the timeout elapses.
	AwaitDownload(ctx context.Context, trigger func(context.Context) error, timeout time.Duration) (Download, error)

	// Close releases the browser and every OS-level process it owns. Safe to
	// call on every exit path.
	Close() error
}

// CaptchaSolver is the port for the external image-understanding service:
// given challenge image bytes it returns a short candidate string. The
// orchestrator never trusts the answer; acceptance is decided by inspecting
// portal state after submission.
type CaptchaSolver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// StepReporter receives structured step events. Implementations must not
// fail the run; reporting is observability only.
type StepReporter interface {
	ReportStep(result domain.StepResult)
	ReportCaptchaAttempt(attempt domain.CaptchaAttempt)
}
