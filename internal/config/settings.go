package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBaseURL              = "http://localhost:8000"
	defaultTimeoutSeconds       = 10
	defaultChatTimeoutSeconds   = 120
	defaultStaleTimeMS          = 60_000
	defaultGCTimeMS             = 300_000
	defaultReadRetry            = 1
	defaultRetryDelayMS         = 1_000
	defaultJobStatusIntervalMS  = 5_000
	defaultJobListIntervalMS    = 10_000
	defaultEvaluationIntervalMS = 5_000
	defaultEvaluationsLimit     = 50

	baseURLEnvName = "RAGDASH_API_URL"
)

type Config struct {
	API     APIConfig     `toml:"api"`
	Cache   CacheConfig   `toml:"cache"`
	Polling PollingConfig `toml:"polling"`
	Logging LoggingConfig `toml:"logging"`
	UI      UIConfig      `toml:"ui"`
}

type APIConfig struct {
	BaseURL            string `toml:"base_url"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	ChatTimeoutSeconds int    `toml:"chat_timeout_seconds"`
}

type CacheConfig struct {
	StaleTimeMS  int  `toml:"stale_time_ms"`
	GCTimeMS     int  `toml:"gc_time_ms"`
	ReadRetry    *int `toml:"read_retry"`
	RetryDelayMS *int `toml:"retry_delay_ms"`
}

type PollingConfig struct {
	JobStatusIntervalMS  int  `toml:"job_status_interval_ms"`
	JobListIntervalMS    int  `toml:"job_list_interval_ms"`
	EvaluationIntervalMS int  `toml:"evaluation_interval_ms"`
	StopIdleJobList      bool `toml:"stop_idle_job_list"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type UIConfig struct {
	EvaluationsLimit int   `toml:"evaluations_limit"`
	DarkMarkdown     *bool `toml:"dark_markdown"`
}

func Default() Config {
	retry := defaultReadRetry
	retryDelay := defaultRetryDelayMS
	return Config{
		API: APIConfig{
			BaseURL:            defaultBaseURL,
			TimeoutSeconds:     defaultTimeoutSeconds,
			ChatTimeoutSeconds: defaultChatTimeoutSeconds,
		},
		Cache: CacheConfig{
			StaleTimeMS:  defaultStaleTimeMS,
			GCTimeMS:     defaultGCTimeMS,
			ReadRetry:    &retry,
			RetryDelayMS: &retryDelay,
		},
		Polling: PollingConfig{
			JobStatusIntervalMS:  defaultJobStatusIntervalMS,
			JobListIntervalMS:    defaultJobListIntervalMS,
			EvaluationIntervalMS: defaultEvaluationIntervalMS,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			EvaluationsLimit: defaultEvaluationsLimit,
		},
	}
}

// Load reads the settings file, falling back to defaults when it does not
// exist, and applies environment overrides.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	if override := strings.TrimSpace(os.Getenv(baseURLEnvName)); override != "" {
		cfg.API.BaseURL = override
	}
	return cfg, nil
}

func (c Config) BaseURL() string {
	url := strings.TrimSpace(c.API.BaseURL)
	url = strings.TrimRight(url, "/")
	if url == "" {
		return defaultBaseURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return url
}

func (c Config) RequestTimeout() time.Duration {
	return secondsOr(c.API.TimeoutSeconds, defaultTimeoutSeconds)
}

// ChatTimeout applies to chat and retrieval calls, which wait on model
// inference in the backend.
func (c Config) ChatTimeout() time.Duration {
	timeout := secondsOr(c.API.ChatTimeoutSeconds, defaultChatTimeoutSeconds)
	if timeout < c.RequestTimeout() {
		return c.RequestTimeout()
	}
	return timeout
}

func (c Config) StaleTime() time.Duration {
	return millisOr(c.Cache.StaleTimeMS, defaultStaleTimeMS)
}

func (c Config) GCTime() time.Duration {
	return millisOr(c.Cache.GCTimeMS, defaultGCTimeMS)
}

func (c Config) ReadRetry() int {
	if c.Cache.ReadRetry == nil || *c.Cache.ReadRetry < 0 {
		return defaultReadRetry
	}
	return *c.Cache.ReadRetry
}

func (c Config) RetryDelay() time.Duration {
	if c.Cache.RetryDelayMS == nil || *c.Cache.RetryDelayMS < 0 {
		return time.Duration(defaultRetryDelayMS) * time.Millisecond
	}
	return time.Duration(*c.Cache.RetryDelayMS) * time.Millisecond
}

func (c Config) JobStatusInterval() time.Duration {
	return millisOr(c.Polling.JobStatusIntervalMS, defaultJobStatusIntervalMS)
}

func (c Config) JobListInterval() time.Duration {
	return millisOr(c.Polling.JobListIntervalMS, defaultJobListIntervalMS)
}

func (c Config) EvaluationInterval() time.Duration {
	return millisOr(c.Polling.EvaluationIntervalMS, defaultEvaluationIntervalMS)
}

func (c Config) StopIdleJobList() bool {
	return c.Polling.StopIdleJobList
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) EvaluationsLimit() int {
	if c.UI.EvaluationsLimit <= 0 {
		return defaultEvaluationsLimit
	}
	return c.UI.EvaluationsLimit
}

func (c Config) DarkMarkdown() bool {
	if c.UI.DarkMarkdown == nil {
		return true
	}
	return *c.UI.DarkMarkdown
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func millisOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Millisecond
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}
