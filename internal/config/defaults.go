package config

const (
	defaultDataDir                  = "~/.local/share/beatwatch"
	defaultLogDir                   = "~/.local/share/beatwatch/logs"
	defaultSubreddit                = "patfinnerty"
	defaultRedditPollInterval       = 5
	defaultRedditRequestTimeout     = 30
	defaultClassifierBaseURL        = "http://localhost:8000/llama"
	defaultClassifierRequestTimeout = 30
	defaultConfidenceThreshold      = 0.5
	defaultNotifyRequestTimeout     = 10
	defaultStreamBackoff            = 10
	defaultInsertRetries            = 1
	defaultGracePeriod              = 10
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Reddit: Reddit{
			Subreddit:      defaultSubreddit,
			PollInterval:   defaultRedditPollInterval,
			RequestTimeout: defaultRedditRequestTimeout,
			SkipExisting:   true,
		},
		Classifier: Classifier{
			BaseURL:             defaultClassifierBaseURL,
			RequestTimeout:      defaultClassifierRequestTimeout,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Watcher: Watcher{
			StreamBackoff: defaultStreamBackoff,
			InsertRetries: defaultInsertRetries,
			GracePeriod:   defaultGracePeriod,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
