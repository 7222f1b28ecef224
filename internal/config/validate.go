package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable. Missing feed credentials are
// fatal; a missing webhook URL is not, because the notifier degrades to a
// noop.
func (c *Config) Validate() error {
	if err := c.validateReddit(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateReddit() error {
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" || c.Reddit.UserAgent == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/beatwatch/config.toml"
		}
		return fmt.Errorf("reddit.client_id, reddit.client_secret, and reddit.user_agent are required. Set REDDIT_CLIENT_ID/REDDIT_CLIENT_SECRET/REDDIT_USER_AGENT env vars or edit %s (create with 'beatwatch config init')", defaultPath)
	}
	if c.Reddit.Subreddit == "" {
		return errors.New("reddit.subreddit must be set")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if c.Classifier.BaseURL == "" {
		return errors.New("classifier.base_url must be set")
	}
	if _, err := url.ParseRequestURI(c.Classifier.BaseURL); err != nil {
		return fmt.Errorf("classifier.base_url is not a valid URL: %w", err)
	}
	if c.Classifier.ConfidenceThreshold < 0 || c.Classifier.ConfidenceThreshold > 1 {
		return errors.New("classifier.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.WebhookURL != "" {
		if _, err := url.ParseRequestURI(c.Notifications.WebhookURL); err != nil {
			return fmt.Errorf("notifications.webhook_url is not a valid URL: %w", err)
		}
	}
	if c.Notifications.DigestSchedule != "" {
		if _, err := cron.ParseStandard(c.Notifications.DigestSchedule); err != nil {
			return fmt.Errorf("notifications.digest_schedule is not a valid cron expression: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
