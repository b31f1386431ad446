package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tmexport.in/cli/internal/artifacts"
	"tmexport.in/cli/internal/browser"
	"tmexport.in/cli/internal/config"
	"tmexport.in/cli/internal/logging"
	"tmexport.in/cli/internal/reporting"
	"tmexport.in/cli/internal/vision"
	"tmexport.in/cli/internal/workflow"
)

// newRunCommand creates the run subcommand.
func newRunCommand() *cobra.Command {
	var headful bool
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the export workflow once",
		Long: `Run opens the portal login page, solves the CAPTCHA through the vision
API with a bounded number of attempts, navigates to the notification
listing and triggers "Export to Excel". The downloaded file is verified
non-empty and placed in the downloads directory under a timestamped name.

Example:
  tmexport run
  tmexport run --headful   # watch the browser while it works`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(headful, debug)
		},
	}

	cmd.Flags().BoolVar(&headful, "headful", false, "Run the browser with a visible window")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable verbose logging")

	return cmd
}

func runWorkflow(headful, debug bool) error {
	// Configuration resolves and validates before any browser or network
	// activity; a missing secret must fail right here.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if headful {
		cfg.Headless = false
	}
	if debug {
		cfg.Debug = true
	}

	logger := logging.New(cfg.Debug)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("shutdown signal received, aborting run")
		cancel()
	}()

	store, err := artifacts.NewStore(cfg.ScreenshotDir, cfg.DownloadDir)
	if err != nil {
		return fmt.Errorf("failed to prepare artifact directories: %w", err)
	}

	driver, err := browser.New(ctx, browser.Options{Headless: cfg.Headless})
	if err != nil {
		return err
	}
	// The browser process is released on every exit path.
	defer func() {
		if closeErr := driver.Close(); closeErr != nil {
			logger.Warn("browser teardown incomplete", zap.Error(closeErr))
		}
	}()

	solver := vision.NewSolver(cfg.VisionEndpoint, cfg.VisionAPIKey, cfg.VisionModel)
	reporter := reporting.NewZapReporter(logger)

	orchestrator := workflow.New(driver, solver, store, reporter, workflow.Config{
		LoginURL:           cfg.LoginURL,
		Username:           cfg.PortalUsername,
		Password:           cfg.PortalPassword,
		CaptchaMaxAttempts: cfg.CaptchaMaxAttempts,
		NavigationTimeout:  cfg.NavigationTimeout,
		DownloadTimeout:    cfg.DownloadTimeout,
	}, logger)

	sess, runErr := orchestrator.Run(ctx)

	fmt.Println(reporting.RenderSummary(sess))
	if exports, listErr := store.ListExports(); listErr == nil && len(exports) > 0 {
		logger.Info("exports on disk", zap.Strings("files", exports))
	}

	return runErr
}
