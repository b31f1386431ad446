package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tmexport.in/cli/internal/config"
)

// newConfigCommand creates the config subcommand group.
func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect resolved configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Println("Effective configuration:")
			fmt.Printf("  TMX_PORTAL_USERNAME:      %s\n", cfg.PortalUsername)
			fmt.Printf("  TMX_PORTAL_PASSWORD:      %s\n", maskSecret(cfg.PortalPassword))
			fmt.Printf("  OPENAI_API_KEY:           %s\n", cfg.MaskedAPIKey())
			fmt.Printf("  TMX_LOGIN_URL:            %s\n", cfg.LoginURL)
			fmt.Printf("  TMX_VISION_ENDPOINT:      %s\n", cfg.VisionEndpoint)
			fmt.Printf("  TMX_VISION_MODEL:         %s\n", cfg.VisionModel)
			fmt.Printf("  TMX_DOWNLOAD_DIR:         %s\n", cfg.DownloadDir)
			fmt.Printf("  TMX_SCREENSHOT_DIR:       %s\n", cfg.ScreenshotDir)
			fmt.Printf("  TMX_CAPTCHA_MAX_ATTEMPTS: %d\n", cfg.CaptchaMaxAttempts)
			fmt.Printf("  TMX_NAVIGATION_TIMEOUT:   %s\n", cfg.NavigationTimeout)
			fmt.Printf("  TMX_DOWNLOAD_TIMEOUT:     %s\n", cfg.DownloadTimeout)
			fmt.Printf("  TMX_HEADLESS:             %t\n", cfg.Headless)
			fmt.Printf("  TMX_DEBUG:                %t\n", cfg.Debug)
			return nil
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	return "(set)"
}
