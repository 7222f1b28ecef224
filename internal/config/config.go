package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Reddit contains credentials and stream settings for the watched subreddit.
type Reddit struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	UserAgent      string `toml:"user_agent"`
	Subreddit      string `toml:"subreddit"`
	PollInterval   int    `toml:"poll_interval"`
	RequestTimeout int    `toml:"request_timeout"`
	SkipExisting   bool   `toml:"skip_existing"`
}

// Classifier contains connection settings for the classification backend.
type Classifier struct {
	BaseURL             string  `toml:"base_url"`
	RequestTimeout      int     `toml:"request_timeout"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	PrefilterEnabled    bool    `toml:"prefilter_enabled"`
}

// Notifications contains configuration for Discord webhook delivery.
type Notifications struct {
	WebhookURL     string `toml:"webhook_url"`
	RequestTimeout int    `toml:"request_timeout"`
	DigestSchedule string `toml:"digest_schedule"`
}

// Watcher contains timing settings for the stream watchers.
type Watcher struct {
	StreamBackoff int `toml:"stream_backoff"`
	InsertRetries int `toml:"insert_retries"`
	GracePeriod   int `toml:"grace_period"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for beatwatch.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Reddit: feed credentials and stream settings
//   - Classifier: classification backend endpoint and thresholds
//   - Notifications: Discord webhook and optional digest schedule
//   - Watcher: stream backoff, insert retry, and shutdown grace timings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Reddit        Reddit        `toml:"reddit"`
	Classifier    Classifier    `toml:"classifier"`
	Notifications Notifications `toml:"notifications"`
	Watcher       Watcher       `toml:"watcher"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/beatwatch/config.toml")
}

// Load locates, parses, and validates a configuration file. Credentials may
// also arrive through environment variables, which override file values. The
// returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnvOverrides maps the environment variables the deployment exposes onto
// config fields. Environment values win over file values so secrets can stay
// out of config.toml.
func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"REDDIT_CLIENT_ID", &c.Reddit.ClientID},
		{"REDDIT_CLIENT_SECRET", &c.Reddit.ClientSecret},
		{"REDDIT_USER_AGENT", &c.Reddit.UserAgent},
		{"REDDIT_SUBREDDIT", &c.Reddit.Subreddit},
		{"CLASSIFIER_URL", &c.Classifier.BaseURL},
		{"DISCORD_WEBHOOK_URL", &c.Notifications.WebhookURL},
		{"LOG_LEVEL", &c.Logging.Level},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.key); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Reddit.ClientID = strings.TrimSpace(c.Reddit.ClientID)
	c.Reddit.ClientSecret = strings.TrimSpace(c.Reddit.ClientSecret)
	c.Reddit.UserAgent = strings.TrimSpace(c.Reddit.UserAgent)
	c.Reddit.Subreddit = strings.TrimPrefix(strings.TrimSpace(c.Reddit.Subreddit), "r/")
	c.Classifier.BaseURL = strings.TrimRight(strings.TrimSpace(c.Classifier.BaseURL), "/")
	c.Notifications.WebhookURL = strings.TrimSpace(c.Notifications.WebhookURL)
	c.Notifications.DigestSchedule = strings.TrimSpace(c.Notifications.DigestSchedule)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Reddit.PollInterval <= 0 {
		c.Reddit.PollInterval = defaultRedditPollInterval
	}
	if c.Reddit.RequestTimeout <= 0 {
		c.Reddit.RequestTimeout = defaultRedditRequestTimeout
	}
	if c.Classifier.RequestTimeout <= 0 {
		c.Classifier.RequestTimeout = defaultClassifierRequestTimeout
	}
	if c.Classifier.ConfidenceThreshold <= 0 {
		c.Classifier.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Watcher.StreamBackoff <= 0 {
		c.Watcher.StreamBackoff = defaultStreamBackoff
	}
	if c.Watcher.InsertRetries < 0 {
		c.Watcher.InsertRetries = defaultInsertRetries
	}
	if c.Watcher.GracePeriod <= 0 {
		c.Watcher.GracePeriod = defaultGracePeriod
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("beatwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "beatwatch.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
