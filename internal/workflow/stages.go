package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tmexport.in/cli/internal/core/domain"
	"tmexport.in/cli/internal/core/session"
)

// openLoginPage completes the Init stage: the portal login form is on screen.
func (o *Orchestrator) openLoginPage(ctx context.Context, _ *session.Session) (string, error) {
	if err := o.driver.Navigate(ctx, o.cfg.LoginURL); err != nil {
		return "", err
	}
	return "", o.waitForMarker(ctx, domain.StageInit, o.cfg.Selectors.CaptchaField, o.cfg.NavigationTimeout)
}

// fillCredentials completes the LoggingIn stage: username and password are
// typed into the form. The CAPTCHA is left to its own stage.
func (o *Orchestrator) fillCredentials(ctx context.Context, _ *session.Session) (string, error) {
	if err := o.driver.Fill(ctx, o.cfg.Selectors.UsernameField, o.cfg.Username); err != nil {
		return "", err
	}
	if err := o.driver.Fill(ctx, o.cfg.Selectors.PasswordField, o.cfg.Password); err != nil {
		return "", err
	}
	o.logger.Debug("credentials filled", zap.String("username", o.cfg.Username))
	return "", nil
}

// openNotifications completes the Authenticated stage: the notifications
// overview page is open.
func (o *Orchestrator) openNotifications(ctx context.Context, _ *session.Session) (string, error) {
	if err := o.driver.Click(ctx, o.cfg.Selectors.ViewAllNotificationsLink); err != nil {
		return "", err
	}
	return "", o.waitForMarker(ctx, domain.StageNavigatingToNotifications, o.cfg.Selectors.NotificationsMarker, o.cfg.NavigationTimeout)
}

// openDetailListing completes the NavigatingToNotifications stage: the
// full notification listing is open.
func (o *Orchestrator) openDetailListing(ctx context.Context, _ *session.Session) (string, error) {
	if err := o.driver.Click(ctx, o.cfg.Selectors.DetailViewAllLink); err != nil {
		return "", err
	}
	return "", o.waitForMarker(ctx, domain.StageNavigatingToDetail, o.cfg.Selectors.DetailMarker, o.cfg.NavigationTimeout)
}

// locateExportControl completes the NavigatingToDetail stage: the export
// button is scrolled into view and visible. The listing grows as it loads,
// so the page is scrolled to the bottom first.
func (o *Orchestrator) locateExportControl(ctx context.Context, _ *session.Session) (string, error) {
	if err := o.driver.ScrollToBottom(ctx); err != nil {
		return "", err
	}
	return "", o.waitForMarker(ctx, domain.StageExporting, o.cfg.Selectors.ExportButton, o.cfg.NavigationTimeout)
}

// exportAndVerify completes the Exporting stage: the export control is
// invoked, the download-complete signal awaited, and the artifact verified
// non-empty and placed under a collision-free name. Triggering the export is
// necessary but not sufficient; only a verified file counts as success.
func (o *Orchestrator) exportAndVerify(ctx context.Context, sess *session.Session) (string, error) {
	sourceURL, err := o.driver.CurrentURL(ctx)
	if err != nil {
		sourceURL = o.cfg.LoginURL
	}

	trigger := func(tctx context.Context) error {
		return o.driver.Click(tctx, o.cfg.Selectors.ExportButton)
	}
	dl, err := o.driver.AwaitDownload(ctx, trigger, o.cfg.DownloadTimeout)
	if err != nil {
		return "", fmt.Errorf("export download failed: %w", err)
	}

	artifact, err := o.store.PlaceDownload(dl, sourceURL)
	if err != nil {
		return "", err
	}
	sess.SetArtifact(artifact)

	o.logger.Info("artifact downloaded",
		zap.String("path", artifact.Path),
		zap.Int64("size", artifact.Size),
	)
	return artifact.Path, nil
}
