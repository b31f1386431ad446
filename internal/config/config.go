// Package config provides application configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tmexport.in/cli/internal/core/domain"
)

// Defaults for everything that is not a secret.
const (
	DefaultLoginURL       = "https://ipindiaonline.gov.in/trademarkefiling/user/frmloginNew.aspx"
	DefaultVisionEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultVisionModel    = "gpt-4o"
)

// Config holds everything one workflow run needs. Secrets come only from the
// process environment; there is no config file.
type Config struct {
	// Portal credentials, required.
	PortalUsername string
	PortalPassword string

	// Vision API access, required.
	VisionAPIKey string

	// Portal entry point.
	LoginURL string

	// Vision API tuning.
	VisionEndpoint string
	VisionModel    string

	// Filesystem destinations, created if absent.
	DownloadDir   string
	ScreenshotDir string

	// Retry and timeout budgets.
	CaptchaMaxAttempts int
	NavigationTimeout  time.Duration
	DownloadTimeout    time.Duration

	// Browser behavior.
	Headless bool

	// Debug enables verbose logging.
	Debug bool
}

// Load reads configuration from a .env file (if present) and the process
// environment, then validates it. It fails fast: a missing credential is an
// operator error, not a transient fault, and no browser or network activity
// may happen before validation passes.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := &Config{
		PortalUsername:     os.Getenv("TMX_PORTAL_USERNAME"),
		PortalPassword:     os.Getenv("TMX_PORTAL_PASSWORD"),
		VisionAPIKey:       os.Getenv("OPENAI_API_KEY"),
		LoginURL:           getEnv("TMX_LOGIN_URL", DefaultLoginURL),
		VisionEndpoint:     getEnv("TMX_VISION_ENDPOINT", DefaultVisionEndpoint),
		VisionModel:        getEnv("TMX_VISION_MODEL", DefaultVisionModel),
		DownloadDir:        getEnv("TMX_DOWNLOAD_DIR", "./downloads"),
		ScreenshotDir:      getEnv("TMX_SCREENSHOT_DIR", "./screenshots"),
		CaptchaMaxAttempts: getEnvInt("TMX_CAPTCHA_MAX_ATTEMPTS", 3),
		NavigationTimeout:  getEnvDuration("TMX_NAVIGATION_TIMEOUT", 30*time.Second),
		DownloadTimeout:    getEnvDuration("TMX_DOWNLOAD_TIMEOUT", 90*time.Second),
		Headless:           getEnvBool("TMX_HEADLESS", true),
		Debug:              getEnvBool("TMX_DEBUG", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set. Errors
// name the offending environment variable so the operator can fix it.
func (c *Config) Validate() error {
	if c.PortalUsername == "" {
		return &domain.ConfigError{Key: "TMX_PORTAL_USERNAME", Reason: "portal username is required"}
	}
	if c.PortalPassword == "" {
		return &domain.ConfigError{Key: "TMX_PORTAL_PASSWORD", Reason: "portal password is required"}
	}
	if c.VisionAPIKey == "" {
		return &domain.ConfigError{Key: "OPENAI_API_KEY", Reason: "vision API key is required"}
	}
	if c.LoginURL == "" {
		return &domain.ConfigError{Key: "TMX_LOGIN_URL", Reason: "login URL cannot be empty"}
	}
	if c.DownloadDir == "" {
		return &domain.ConfigError{Key: "TMX_DOWNLOAD_DIR", Reason: "download directory cannot be empty"}
	}
	if c.ScreenshotDir == "" {
		return &domain.ConfigError{Key: "TMX_SCREENSHOT_DIR", Reason: "screenshot directory cannot be empty"}
	}
	if c.CaptchaMaxAttempts <= 0 {
		return &domain.ConfigError{Key: "TMX_CAPTCHA_MAX_ATTEMPTS", Reason: "must be > 0"}
	}
	if c.NavigationTimeout <= 0 {
		return &domain.ConfigError{Key: "TMX_NAVIGATION_TIMEOUT", Reason: "must be > 0"}
	}
	if c.DownloadTimeout <= 0 {
		return &domain.ConfigError{Key: "TMX_DOWNLOAD_TIMEOUT", Reason: "must be > 0"}
	}
	return nil
}

// MaskedAPIKey returns the vision API key safe for display.
func (c *Config) MaskedAPIKey() string {
	if len(c.VisionAPIKey) <= 12 {
		return "(set)"
	}
	return c.VisionAPIKey[:8] + "..." + c.VisionAPIKey[len(c.VisionAPIKey)-4:]
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
