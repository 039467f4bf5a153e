package config

import (
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/redis"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/storage/postgres"
)

// AppConfig is the top-level configuration shared by every pipeline
// process. Each process only reads the sections it needs.
type AppConfig struct {
	Chain    ChainConfig     `yaml:"chain"    validate:"required"`
	Fetcher  FetcherConfig   `yaml:"fetcher"`
	Consumer ConsumerConfig  `yaml:"consumer"`
	Mailer   MailerConfig    `yaml:"mailer"`
	Logger   LoggerConfig    `yaml:"logger"`
	Redis    redis.Config    `yaml:"redis"    validate:"required"`
	Database postgres.Config `yaml:"database" validate:"required"`
	Logging  LoggingConfig   `yaml:"logging"`
	Ops      OpsConfig       `yaml:"ops"`
}

// ChainConfig selects the blockchain adapter for this pipeline instance.
// An unknown name is a fatal configuration error at process startup.
type ChainConfig struct {
	Name       domain.ChainName `yaml:"name"        validate:"required"`
	NetworkURL string           `yaml:"network_url" validate:"required"`
}

// FetcherConfig holds block-fetcher settings.
type FetcherConfig struct {
	PollIntervalMs int64 `yaml:"poll_interval_ms" validate:"gte=0"`
	MaxQueueLen    int64 `yaml:"max_queue_len"    validate:"gte=0"`
}

// ConsumerConfig holds block-consumer settings.
type ConsumerConfig struct {
	BatchSize int64 `yaml:"batch_size" validate:"gte=0"`
}

// MailerConfig holds the transactional mail settings.
type MailerConfig struct {
	Source   string `yaml:"source"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // overrides the provider endpoint, for local stacks
}

// LoggerConfig holds block-logger settings.
type LoggerConfig struct {
	// RetentionHours is how long invocation log entries are kept before
	// the pruner deletes them. Zero disables pruning.
	RetentionHours int64 `yaml:"retention_hours" validate:"gte=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// OpsConfig holds the operational HTTP server settings.
type OpsConfig struct {
	Port int `yaml:"port"`
}
