// Package workflow sequences the portal export run: login, CAPTCHA
// solve-and-submit with bounded retries, page navigation and export trigger.
// Every stage runs inside one uniform wrapper that handles failure capture,
// logging and the session transition, so stages never duplicate
// error-handling logic.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tmexport.in/cli/internal/artifacts"
	"tmexport.in/cli/internal/core/domain"
	"tmexport.in/cli/internal/core/ports"
	"tmexport.in/cli/internal/core/session"
)

// Config carries everything the orchestrator needs for one run. It is plain
// data so tests can construct it without touching the environment.
type Config struct {
	LoginURL string
	Username string
	Password string

	CaptchaMaxAttempts int
	NavigationTimeout  time.Duration
	DownloadTimeout    time.Duration

	// LoginCheckTimeout bounds the wait for the welcome marker after a
	// CAPTCHA submission, deciding accept vs reject.
	LoginCheckTimeout time.Duration

	Selectors Selectors
}

// normalize fills unset optional fields with defaults.
func (c *Config) normalize() {
	if c.CaptchaMaxAttempts <= 0 {
		c.CaptchaMaxAttempts = 3
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 90 * time.Second
	}
	if c.LoginCheckTimeout <= 0 {
		c.LoginCheckTimeout = 10 * time.Second
	}
	if c.Selectors == (Selectors{}) {
		c.Selectors = DefaultSelectors()
	}
}

// Orchestrator owns one session and drives it through the stage sequence.
// The browser, solver and reporter are ports; the caller owns their
// lifetimes.
type Orchestrator struct {
	driver   ports.BrowserDriver
	solver   ports.CaptchaSolver
	store    *artifacts.Store
	reporter ports.StepReporter
	cfg      Config
	logger   *zap.Logger
}

// New creates an orchestrator.
func New(driver ports.BrowserDriver, solver ports.CaptchaSolver, store *artifacts.Store, reporter ports.StepReporter, cfg Config, logger *zap.Logger) *Orchestrator {
	cfg.normalize()
	return &Orchestrator{
		driver:   driver,
		solver:   solver,
		store:    store,
		reporter: reporter,
		cfg:      cfg,
		logger:   logger,
	}
}

// step binds a stage to the work that completes it. On success the session
// advances to the next stage on the forward path.
type step struct {
	stage domain.Stage
	run   func(ctx context.Context, sess *session.Session) (artifactPath string, err error)
}

// Run executes the full workflow and returns the terminal session. The
// returned error is non-nil whenever the session did not reach Downloaded;
// it names the failing stage and reason. Failures never propagate as panics
// past the orchestrator.
func (o *Orchestrator) Run(ctx context.Context) (*session.Session, error) {
	sess := session.New()
	o.logger.Info("run started", zap.String("run_id", sess.ID().Value()), zap.String("login_url", o.cfg.LoginURL))

	steps := []step{
		{domain.StageInit, o.openLoginPage},
		{domain.StageLoggingIn, o.fillCredentials},
		{domain.StageSolvingCaptcha, o.solveCaptcha},
		{domain.StageAuthenticated, o.openNotifications},
		{domain.StageNavigatingToNotifications, o.openDetailListing},
		{domain.StageNavigatingToDetail, o.locateExportControl},
		{domain.StageExporting, o.exportAndVerify},
	}

	for _, st := range steps {
		if err := o.runStage(ctx, sess, st); err != nil {
			o.logger.Error("run failed",
				zap.String("run_id", sess.ID().Value()),
				zap.String("stage", st.stage.String()),
				zap.String("reason", sess.FailReason()),
			)
			return sess, fmt.Errorf("run failed at stage %s: %w", st.stage, err)
		}
	}

	o.logger.Info("run completed",
		zap.String("run_id", sess.ID().Value()),
		zap.Duration("duration", sess.Duration()),
	)
	return sess, nil
}

// runStage executes one step inside the uniform failure boundary: panics are
// converted to errors, a diagnostic screenshot is captured when anything goes
// wrong, the result is reported, and the session transitions exactly once.
func (o *Orchestrator) runStage(ctx context.Context, sess *session.Session, st step) error {
	started := time.Now()

	var artifactPath string
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("unexpected panic in stage %s: %v", st.stage, r)
			}
		}()
		artifactPath, err = st.run(ctx, sess)
	}()

	result := domain.StepResult{
		Stage:       st.stage,
		Success:     err == nil,
		Err:         err,
		Artifact:    artifactPath,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}

	if err != nil && ctx.Err() == nil {
		result.Screenshot = o.captureFailureScreenshot(ctx, st.stage)
	}

	o.reporter.ReportStep(result)
	if recordErr := sess.RecordStep(result); recordErr != nil {
		return recordErr
	}
	return err
}

// captureFailureScreenshot best-effort saves the current page for post-hoc
// diagnosis. It never fails the run.
func (o *Orchestrator) captureFailureScreenshot(ctx context.Context, stage domain.Stage) string {
	png, err := o.driver.CaptureScreenshot(ctx)
	if err != nil {
		o.logger.Warn("failure screenshot unavailable", zap.String("stage", stage.String()), zap.Error(err))
		return ""
	}
	path, err := o.store.SaveScreenshot("failure_"+stage.String(), png)
	if err != nil {
		o.logger.Warn("failure screenshot not saved", zap.String("stage", stage.String()), zap.Error(err))
		return ""
	}
	return path
}

// waitForMarker waits for a page marker and converts a miss into the
// navigation error taxonomy, distinguishing a marker that never existed from
// one that was merely slow.
func (o *Orchestrator) waitForMarker(ctx context.Context, stage domain.Stage, marker string, timeout time.Duration) error {
	err := o.driver.WaitVisible(ctx, marker, timeout)
	if err == nil {
		return nil
	}

	kind := domain.NavigationTimedOut
	if errors.Is(err, ports.ErrMarkerMissing) {
		kind = domain.NavigationMarkerMissing
	}
	return &domain.NavigationError{
		Stage:   stage,
		Marker:  marker,
		Kind:    kind,
		Timeout: timeout.String(),
		Err:     err,
	}
}
