package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmexport.in/cli/internal/core/domain"
)

// setRequired puts the three mandatory secrets into the test environment.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TMX_PORTAL_USERNAME", "attorney01")
	t.Setenv("TMX_PORTAL_PASSWORD", "s3cret")
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890abcdef")
}

// clearOptional blanks every optional knob so defaults apply regardless of
// the invoking shell's environment.
func clearOptional(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TMX_LOGIN_URL", "TMX_VISION_ENDPOINT", "TMX_VISION_MODEL",
		"TMX_DOWNLOAD_DIR", "TMX_SCREENSHOT_DIR", "TMX_CAPTCHA_MAX_ATTEMPTS",
		"TMX_NAVIGATION_TIMEOUT", "TMX_DOWNLOAD_TIMEOUT", "TMX_HEADLESS", "TMX_DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	clearOptional(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "attorney01", cfg.PortalUsername)
	assert.Equal(t, DefaultLoginURL, cfg.LoginURL)
	assert.Equal(t, DefaultVisionEndpoint, cfg.VisionEndpoint)
	assert.Equal(t, DefaultVisionModel, cfg.VisionModel)
	assert.Equal(t, "./downloads", cfg.DownloadDir)
	assert.Equal(t, "./screenshots", cfg.ScreenshotDir)
	assert.Equal(t, 3, cfg.CaptchaMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 90*time.Second, cfg.DownloadTimeout)
	assert.True(t, cfg.Headless)
	assert.False(t, cfg.Debug)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	clearOptional(t)
	t.Setenv("TMX_LOGIN_URL", "https://staging.example.gov.in/login.aspx")
	t.Setenv("TMX_VISION_MODEL", "gpt-4o-mini")
	t.Setenv("TMX_CAPTCHA_MAX_ATTEMPTS", "5")
	t.Setenv("TMX_NAVIGATION_TIMEOUT", "45s")
	t.Setenv("TMX_HEADLESS", "false")
	t.Setenv("TMX_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.gov.in/login.aspx", cfg.LoginURL)
	assert.Equal(t, "gpt-4o-mini", cfg.VisionModel)
	assert.Equal(t, 5, cfg.CaptchaMaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.NavigationTimeout)
	assert.False(t, cfg.Headless)
	assert.True(t, cfg.Debug)
}

func TestLoad_MissingSecretsFailFast(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantKey string
	}{
		{"missing username", "TMX_PORTAL_USERNAME", "TMX_PORTAL_USERNAME"},
		{"missing password", "TMX_PORTAL_PASSWORD", "TMX_PORTAL_PASSWORD"},
		{"missing vision key", "OPENAI_API_KEY", "OPENAI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			clearOptional(t)
			t.Setenv(tt.unset, "")

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, domain.IsConfigError(err))
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestValidate_BudgetsMustBePositive(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero captcha attempts", func(c *Config) { c.CaptchaMaxAttempts = 0 }},
		{"negative navigation timeout", func(c *Config) { c.NavigationTimeout = -time.Second }},
		{"zero download timeout", func(c *Config) { c.DownloadTimeout = 0 }},
		{"empty login URL", func(c *Config) { c.LoginURL = "" }},
		{"empty download dir", func(c *Config) { c.DownloadDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				PortalUsername:     "attorney01",
				PortalPassword:     "s3cret",
				VisionAPIKey:       "sk-test",
				LoginURL:           DefaultLoginURL,
				DownloadDir:        "./downloads",
				ScreenshotDir:      "./screenshots",
				CaptchaMaxAttempts: 3,
				NavigationTimeout:  30 * time.Second,
				DownloadTimeout:    90 * time.Second,
			}
			tt.mutate(cfg)
			assert.True(t, domain.IsConfigError(cfg.Validate()))
		})
	}
}

func TestMaskedAPIKey(t *testing.T) {
	long := &Config{VisionAPIKey: "sk-proj-abcdefghijklmnop"}
	masked := long.MaskedAPIKey()
	assert.Contains(t, masked, "...")
	assert.NotContains(t, masked, "abcdefghijklmnop")

	short := &Config{VisionAPIKey: "sk-short"}
	assert.Equal(t, "(set)", short.MaskedAPIKey())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TMX_TEST_STR", "value")
	t.Setenv("TMX_TEST_BOOL", "yes")
	t.Setenv("TMX_TEST_INT", "7")
	t.Setenv("TMX_TEST_DUR", "90s")
	t.Setenv("TMX_TEST_BAD", "not-a-number")

	assert.Equal(t, "value", getEnv("TMX_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", getEnv("TMX_TEST_ABSENT", "fallback"))
	assert.True(t, getEnvBool("TMX_TEST_BOOL", false))
	assert.True(t, getEnvBool("TMX_TEST_BAD", true))
	assert.Equal(t, 7, getEnvInt("TMX_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("TMX_TEST_BAD", 1))
	assert.Equal(t, 90*time.Second, getEnvDuration("TMX_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TMX_TEST_BAD", time.Second))
}
