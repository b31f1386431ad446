package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tmexport.in/cli/internal/config"
	"tmexport.in/cli/internal/vision"
)

// newValidateCommand creates the validate subcommand.
func newValidateCommand() *cobra.Command {
	var checkVision bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check configuration without contacting the portal",
		Long: `Validate resolves and validates configuration from the environment and
.env file. With --vision it additionally sends a minimal request to the
vision API to confirm the key is accepted. The portal itself is never
contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Println("Configuration OK")
			fmt.Printf("  login URL:       %s\n", cfg.LoginURL)
			fmt.Printf("  vision model:    %s\n", cfg.VisionModel)
			fmt.Printf("  vision API key:  %s\n", cfg.MaskedAPIKey())
			fmt.Printf("  captcha budget:  %d attempts\n", cfg.CaptchaMaxAttempts)

			if !checkVision {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			solver := vision.NewSolver(cfg.VisionEndpoint, cfg.VisionAPIKey, cfg.VisionModel)
			if err := solver.Ping(ctx); err != nil {
				return fmt.Errorf("vision API check failed: %w", err)
			}
			fmt.Println("Vision API reachable and key accepted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkVision, "vision", false, "Also probe the vision API with the configured key")

	return cmd
}
