package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultPollIntervalMs is how long the fetcher waits before asking the
	// chain for the next height.
	DefaultPollIntervalMs = 5000

	// DefaultBatchSize bounds how many subscribers a single consumer job
	// resolves.
	DefaultBatchSize = 500

	// DefaultMaxQueueLen is the fetcher's backpressure limit.
	DefaultMaxQueueLen = 1000
)

var validate = validator.New()

// Load reads configuration from a YAML file. Environment variables in the
// file are expanded before parsing so connection URLs and credentials can
// stay out of the file itself.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Fetcher.PollIntervalMs == 0 {
		cfg.Fetcher.PollIntervalMs = DefaultPollIntervalMs
	}
	if cfg.Fetcher.MaxQueueLen == 0 {
		cfg.Fetcher.MaxQueueLen = DefaultMaxQueueLen
	}
	if cfg.Consumer.BatchSize == 0 {
		cfg.Consumer.BatchSize = DefaultBatchSize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Ops.Port == 0 {
		cfg.Ops.Port = 8080
	}
}
