package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tmexport.in/cli/internal/core/domain"
	"tmexport.in/cli/internal/core/ports"
	"tmexport.in/cli/internal/core/session"
	"tmexport.in/cli/internal/retry"
	"tmexport.in/cli/internal/vision"
)

// solveOutcome is one CAPTCHA solve cycle as seen by the retry combinator.
type solveOutcome struct {
	attempt  domain.CaptchaAttempt
	accepted bool
}

// solveCaptcha completes the SolvingCaptcha stage. Each cycle captures a
// fresh challenge, asks the solver for a guess, submits it, and decides
// accept/reject from the portal's post-submit state - the solver's answer is
// never trusted on its own. Exhausting the attempt budget is a terminal
// failure with reason captcha_exhausted.
func (o *Orchestrator) solveCaptcha(ctx context.Context, sess *session.Session) (string, error) {
	policy := retry.Policy{
		MaxAttempts: o.cfg.CaptchaMaxAttempts,
		OnReject: func(attempt int, err error) {
			o.logger.Warn("captcha attempt rejected",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", o.cfg.CaptchaMaxAttempts),
				zap.Error(err),
			)
		},
	}

	_, attempts, err := retry.Do(ctx, policy,
		func(ctx context.Context, attempt int) (solveOutcome, error) {
			return o.solveCycle(ctx, sess, attempt)
		},
		func(out solveOutcome) bool { return out.accepted },
	)
	if err != nil {
		if errors.Is(err, retry.ErrAttemptsExhausted) {
			return "", fmt.Errorf("%w: %d attempts rejected by portal", domain.ErrCaptchaExhausted, attempts)
		}
		return "", err
	}
	return "", nil
}

// solveCycle runs one capture/solve/submit/inspect cycle and records it on
// the session. A rejected guess is not an error; the combinator's accept
// predicate handles it.
func (o *Orchestrator) solveCycle(ctx context.Context, sess *session.Session, attemptIdx int) (solveOutcome, error) {
	image, imagePath, err := o.captureChallenge(ctx, attemptIdx)
	if err != nil {
		return solveOutcome{}, err
	}

	raw, err := o.solver.Solve(ctx, image)
	if err != nil {
		return solveOutcome{}, fmt.Errorf("captcha solver failed: %w", err)
	}
	text := domain.SanitizeCaptchaText(raw)
	if text == "" {
		return solveOutcome{}, fmt.Errorf("captcha solver returned no usable characters (raw output %q)", raw)
	}

	if err := o.driver.Fill(ctx, o.cfg.Selectors.CaptchaField, text); err != nil {
		return solveOutcome{}, err
	}
	if err := o.driver.Click(ctx, o.cfg.Selectors.LoginButton); err != nil {
		return solveOutcome{}, err
	}

	accepted := o.loginAccepted(ctx)

	attempt := domain.CaptchaAttempt{
		Index:      attemptIdx,
		ImagePath:  imagePath,
		SolvedText: text,
		Accepted:   accepted,
	}
	sess.RecordCaptchaAttempt(attempt)
	o.reporter.ReportCaptchaAttempt(attempt)

	if !accepted {
		// Diagnostic screenshot tagged with the attempt index, then make
		// sure a fresh challenge is on screen: the submitted one is
		// consumed by the portal and must never be replayed.
		o.captureFailureScreenshot(ctx, domain.StageSolvingCaptcha)
		if err := o.restoreLoginForm(ctx); err != nil {
			return solveOutcome{}, err
		}
	}

	return solveOutcome{attempt: attempt, accepted: accepted}, nil
}

// captureChallenge grabs the CAPTCHA element image, falling back to a
// fixed-region crop of the full page when the element cannot be captured.
// Both forms are saved for post-hoc diagnosis.
func (o *Orchestrator) captureChallenge(ctx context.Context, attemptIdx int) ([]byte, string, error) {
	image, err := o.driver.CaptureElement(ctx, o.cfg.Selectors.CaptchaImage)
	if err == nil {
		path, saveErr := o.store.SaveScreenshot(fmt.Sprintf("captcha_attempt%d", attemptIdx), image)
		if saveErr != nil {
			o.logger.Warn("captcha image not saved", zap.Error(saveErr))
		}
		return image, path, nil
	}
	o.logger.Debug("captcha element capture failed, cropping full screenshot", zap.Error(err))

	full, err := o.driver.CaptureScreenshot(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to capture captcha challenge: %w", err)
	}
	if _, saveErr := o.store.SaveScreenshot(fmt.Sprintf("captcha_full_attempt%d", attemptIdx), full); saveErr != nil {
		o.logger.Warn("full captcha screenshot not saved", zap.Error(saveErr))
	}

	cropped, err := vision.CropCaptchaRegion(full)
	if err != nil {
		// A full screenshot is still solvable by the vision model, just
		// with worse odds.
		o.logger.Warn("captcha crop failed, using full screenshot", zap.Error(err))
		return full, "", nil
	}
	path, saveErr := o.store.SaveScreenshot(fmt.Sprintf("captcha_crop_attempt%d", attemptIdx), cropped)
	if saveErr != nil {
		o.logger.Warn("cropped captcha image not saved", zap.Error(saveErr))
	}
	return cropped, path, nil
}

// loginAccepted inspects portal state after a submission: authentication is
// proven by the welcome marker appearing within the login-check window.
func (o *Orchestrator) loginAccepted(ctx context.Context) bool {
	err := o.driver.WaitVisible(ctx, o.cfg.Selectors.WelcomeMarker, o.cfg.LoginCheckTimeout)
	return err == nil
}

// restoreLoginForm makes sure the login form with a fresh CAPTCHA is on
// screen after a rejected submission. Usually the portal re-renders the form
// by itself; when it does not, the login page is reloaded and the
// credentials re-entered.
func (o *Orchestrator) restoreLoginForm(ctx context.Context) error {
	err := o.driver.WaitVisible(ctx, o.cfg.Selectors.CaptchaField, o.cfg.LoginCheckTimeout)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ports.ErrMarkerMissing) && !errors.Is(err, ports.ErrWaitTimedOut) {
		return err
	}

	o.logger.Debug("login form gone after rejection, reloading login page")
	if err := o.driver.Navigate(ctx, o.cfg.LoginURL); err != nil {
		return err
	}
	if err := o.driver.WaitVisible(ctx, o.cfg.Selectors.CaptchaField, o.cfg.NavigationTimeout); err != nil {
		return fmt.Errorf("login form did not reappear after reload: %w", err)
	}
	if err := o.driver.Fill(ctx, o.cfg.Selectors.UsernameField, o.cfg.Username); err != nil {
		return err
	}
	return o.driver.Fill(ctx, o.cfg.Selectors.PasswordField, o.cfg.Password)
}
