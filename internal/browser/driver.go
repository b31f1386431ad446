// Package browser adapts the chromedp automation engine to the
// BrowserDriver port.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"tmexport.in/cli/internal/core/ports"
)

// presenceProbeTimeout bounds the DOM probe used to classify a wait failure.
const presenceProbeTimeout = 2 * time.Second

// Driver drives one Chrome instance for the lifetime of a run. It owns the
// browser process: Close releases it on every exit path.
type Driver struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	stagingDir  string
}

// Options configures the Chrome instance.
type Options struct {
	Headless bool
}

// New launches Chrome and opens a fresh tab. The returned driver stages
// downloads in a private temp directory that Close removes.
func New(ctx context.Context, opts Options) (*Driver, error) {
	stagingDir, err := os.MkdirTemp("", "tmexport-download-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create download staging dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1024, 768),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	d := &Driver{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		stagingDir:  stagingDir,
	}

	// Starting the browser eagerly surfaces a missing Chrome binary here
	// instead of at the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// All downloads land in the staging dir under their GUID, with progress
	// events enabled so AwaitDownload can observe completion.
	behavior := browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(stagingDir).
		WithEventsEnabled(true)
	if err := chromedp.Run(tabCtx, behavior); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to configure downloads: %w", err)
	}

	return d, nil
}

// Navigate implements the BrowserDriver port.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// Fill implements the BrowserDriver port.
func (d *Driver) Fill(ctx context.Context, selector, value string) error {
	err := d.run(ctx, 0,
		chromedp.WaitVisible(selector, matcher(selector)),
		chromedp.Clear(selector, matcher(selector)),
		chromedp.SendKeys(selector, value, matcher(selector)),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %q: %w", selector, err)
	}
	return nil
}

// Click implements the BrowserDriver port.
func (d *Driver) Click(ctx context.Context, selector string) error {
	if err := d.run(ctx, 0, chromedp.Click(selector, matcher(selector))); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// WaitVisible implements the BrowserDriver port. On deadline it probes the
// DOM once more to decide whether the marker was merely slow
// (ErrWaitTimedOut) or absent entirely (ErrMarkerMissing).
func (d *Driver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := d.run(ctx, timeout, chromedp.WaitVisible(selector, matcher(selector)))
	if err == nil {
		return nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}

	present, probeErr := d.isPresent(ctx, selector)
	if probeErr == nil && !present {
		return fmt.Errorf("marker %q: %w", selector, ports.ErrMarkerMissing)
	}
	return fmt.Errorf("marker %q: %w", selector, ports.ErrWaitTimedOut)
}

// CurrentURL implements the BrowserDriver port.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, 0, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

// CaptureScreenshot implements the BrowserDriver port.
func (d *Driver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, 0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// CaptureElement implements the BrowserDriver port.
func (d *Driver) CaptureElement(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	err := d.run(ctx, 0,
		chromedp.WaitVisible(selector, matcher(selector)),
		chromedp.Screenshot(selector, &buf, matcher(selector)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture element %q: %w", selector, err)
	}
	return buf, nil
}

// ScrollToBottom implements the BrowserDriver port. Two passes, because long
// listing pages on the portal grow once the first scroll settles.
func (d *Driver) ScrollToBottom(ctx context.Context) error {
	err := d.run(ctx, 0,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight * 0.7)`, nil),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(500*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("failed to scroll to bottom: %w", err)
	}
	return nil
}

// AwaitDownload implements the BrowserDriver port. The completion listener
// is registered before trigger runs, so a download that finishes quickly is
// never missed.
func (d *Driver) AwaitDownload(ctx context.Context, trigger func(context.Context) error, timeout time.Duration) (ports.Download, error) {
	done := make(chan ports.Download, 1)

	var mu sync.Mutex
	names := make(map[string]string) // download GUID -> suggested filename

	listenCtx, stopListening := context.WithCancel(d.ctx)
	defer stopListening()

	chromedp.ListenBrowser(listenCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *browser.EventDownloadWillBegin:
			mu.Lock()
			names[e.GUID] = e.SuggestedFilename
			mu.Unlock()
		case *browser.EventDownloadProgress:
			if e.State != browser.DownloadProgressStateCompleted {
				return
			}
			mu.Lock()
			name := names[e.GUID]
			mu.Unlock()
			dl := ports.Download{
				Path:          filepath.Join(d.stagingDir, e.GUID),
				SuggestedName: name,
				Size:          int64(e.ReceivedBytes),
			}
			select {
			case done <- dl:
			default:
			}
		}
	})

	if err := trigger(ctx); err != nil {
		return ports.Download{}, fmt.Errorf("export trigger failed: %w", err)
	}

	select {
	case dl := <-done:
		return dl, nil
	case <-time.After(timeout):
		return ports.Download{}, fmt.Errorf("download did not complete within %s", timeout)
	case <-ctx.Done():
		return ports.Download{}, ctx.Err()
	case <-d.ctx.Done():
		return ports.Download{}, d.ctx.Err()
	}
}

// Close releases the tab, the browser process and the staging directory.
func (d *Driver) Close() error {
	// Graceful browser shutdown first so Chrome child processes do not leak.
	_ = chromedp.Cancel(d.ctx)
	d.cancelTab()
	d.cancelAlloc()
	return os.RemoveAll(d.stagingDir)
}

// isPresent reports whether selector currently matches any DOM node.
func (d *Driver) isPresent(ctx context.Context, selector string) (bool, error) {
	var count int
	err := d.run(ctx, presenceProbeTimeout,
		chromedp.Evaluate(presenceExpr(selector), &count),
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// presenceExpr builds a JS expression counting matches for a CSS or XPath
// selector without waiting.
func presenceExpr(selector string) string {
	if isXPath(selector) {
		return fmt.Sprintf(
			`document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength`,
			selector,
		)
	}
	return fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
}

// run executes chromedp actions against the driver's tab, bounded by an
// optional timeout and cancelled early if the caller's ctx is cancelled.
func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(d.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(d.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// matcher picks the chromedp query option for a selector: XPath expressions
// use the search matcher, everything else is a CSS query.
func matcher(selector string) chromedp.QueryOption {
	if isXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(//")
}
