package main

import (
	"errors"
	"flag"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"ragdash/internal/config"
)

type ConfigCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
	configFormatYAML = "yaml"
)

// configOutput is the effective configuration after defaults and clamping.
type configOutput struct {
	ConfigPath string                 `json:"config_path,omitempty" toml:"config_path,omitempty" yaml:"config_path,omitempty"`
	StatePath  string                 `json:"state_path,omitempty" toml:"state_path,omitempty" yaml:"state_path,omitempty"`
	API        effectiveAPIConfig     `json:"api" toml:"api" yaml:"api"`
	Cache      effectiveCacheConfig   `json:"cache" toml:"cache" yaml:"cache"`
	Polling    effectivePollingConfig `json:"polling" toml:"polling" yaml:"polling"`
	Logging    effectiveLoggingConfig `json:"logging" toml:"logging" yaml:"logging"`
	UI         effectiveUIConfig      `json:"ui" toml:"ui" yaml:"ui"`
}

type effectiveAPIConfig struct {
	BaseURL            string `json:"base_url" toml:"base_url" yaml:"base_url"`
	TimeoutSeconds     int    `json:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`
	ChatTimeoutSeconds int    `json:"chat_timeout_seconds" toml:"chat_timeout_seconds" yaml:"chat_timeout_seconds"`
}

type effectiveCacheConfig struct {
	StaleTimeMS  int64 `json:"stale_time_ms" toml:"stale_time_ms" yaml:"stale_time_ms"`
	GCTimeMS     int64 `json:"gc_time_ms" toml:"gc_time_ms" yaml:"gc_time_ms"`
	ReadRetry    int   `json:"read_retry" toml:"read_retry" yaml:"read_retry"`
	RetryDelayMS int64 `json:"retry_delay_ms" toml:"retry_delay_ms" yaml:"retry_delay_ms"`
}

type effectivePollingConfig struct {
	JobStatusIntervalMS  int64 `json:"job_status_interval_ms" toml:"job_status_interval_ms" yaml:"job_status_interval_ms"`
	JobListIntervalMS    int64 `json:"job_list_interval_ms" toml:"job_list_interval_ms" yaml:"job_list_interval_ms"`
	EvaluationIntervalMS int64 `json:"evaluation_interval_ms" toml:"evaluation_interval_ms" yaml:"evaluation_interval_ms"`
	StopIdleJobList      bool  `json:"stop_idle_job_list" toml:"stop_idle_job_list" yaml:"stop_idle_job_list"`
}

type effectiveLoggingConfig struct {
	Level string `json:"level" toml:"level" yaml:"level"`
}

type effectiveUIConfig struct {
	EvaluationsLimit int  `json:"evaluations_limit" toml:"evaluations_limit" yaml:"evaluations_limit"`
	DarkMarkdown     bool `json:"dark_markdown" toml:"dark_markdown" yaml:"dark_markdown"`
}

func NewConfigCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error)) *ConfigCommand {
	if loadConfig == nil {
		loadConfig = config.Load
	}
	return &ConfigCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml|yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	cfg := config.Default()
	if !*defaults {
		cfg, err = c.loadConfig()
		if err != nil {
			return err
		}
	}
	out := buildConfigOutput(cfg)
	if path, err := config.ConfigPath(); err == nil {
		out.ConfigPath = path
	}
	if path, err := config.StatePath(); err == nil {
		out.StatePath = path
	}
	return writeConfigOutput(c.stdout, resolvedFormat, out)
}

func buildConfigOutput(cfg config.Config) configOutput {
	return configOutput{
		API: effectiveAPIConfig{
			BaseURL:            cfg.BaseURL(),
			TimeoutSeconds:     int(cfg.RequestTimeout().Seconds()),
			ChatTimeoutSeconds: int(cfg.ChatTimeout().Seconds()),
		},
		Cache: effectiveCacheConfig{
			StaleTimeMS:  cfg.StaleTime().Milliseconds(),
			GCTimeMS:     cfg.GCTime().Milliseconds(),
			ReadRetry:    cfg.ReadRetry(),
			RetryDelayMS: cfg.RetryDelay().Milliseconds(),
		},
		Polling: effectivePollingConfig{
			JobStatusIntervalMS:  cfg.JobStatusInterval().Milliseconds(),
			JobListIntervalMS:    cfg.JobListInterval().Milliseconds(),
			EvaluationIntervalMS: cfg.EvaluationInterval().Milliseconds(),
			StopIdleJobList:      cfg.StopIdleJobList(),
		},
		Logging: effectiveLoggingConfig{
			Level: cfg.LogLevel(),
		},
		UI: effectiveUIConfig{
			EvaluationsLimit: cfg.EvaluationsLimit(),
			DarkMarkdown:     cfg.DarkMarkdown(),
		},
	}
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case configFormatJSON:
		return writeJSON(out, payload)
	case configFormatTOML:
		data, err = toml.Marshal(payload)
	case configFormatYAML:
		data, err = yaml.Marshal(payload)
	default:
		return errors.New("unsupported format")
	}
	if err != nil {
		return err
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err = out.Write(data)
	return err
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	case configFormatYAML, "yml":
		return configFormatYAML, nil
	default:
		return "", errors.New("invalid format: must be json, toml or yaml")
	}
}
