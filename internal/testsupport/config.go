package testsupport

import (
	"path/filepath"
	"testing"

	"beatwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Reddit.ClientID = "test-client"
	cfg.Reddit.ClientSecret = "test-secret"
	cfg.Reddit.UserAgent = "beatwatch-test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWebhookURL sets the Discord webhook URL on the test config.
func WithWebhookURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Notifications.WebhookURL = url
	}
}

// WithClassifierURL sets the classifier endpoint on the test config.
func WithClassifierURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Classifier.BaseURL = url
	}
}
