// Package config defines the MolGraph configuration tree, its defaults and
// validation. Loading lives in loader.go.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/molgraph/internal/infrastructure/database/redis"
	"github.com/turtacn/molgraph/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/molgraph/internal/intelligence/molgraph"
	"github.com/turtacn/molgraph/pkg/errors"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
	MaxBatchRows    int           `mapstructure:"max_batch_rows" yaml:"max_batch_rows"`
}

// RedisConfig enables the graph cache.
type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	KeyPrefix         string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	TTL               time.Duration `mapstructure:"ttl" yaml:"ttl"`
	redis.RedisConfig `mapstructure:",squash" yaml:",inline"`
}

// KafkaConfig configures the streaming worker.
type KafkaConfig struct {
	Brokers         []string             `mapstructure:"brokers" yaml:"brokers"`
	GroupID         string               `mapstructure:"group_id" yaml:"group_id"`
	InputTopic      string               `mapstructure:"input_topic" yaml:"input_topic"`
	OutputTopic     string               `mapstructure:"output_topic" yaml:"output_topic"`
	DeadLetterTopic string               `mapstructure:"dead_letter_topic" yaml:"dead_letter_topic"`
	AutoOffsetReset string               `mapstructure:"auto_offset_reset" yaml:"auto_offset_reset"`
	MaxRetries      int                  `mapstructure:"max_retries" yaml:"max_retries"`
	Security        kafka.SecurityConfig `mapstructure:"security" yaml:"security"`
}

// MinIOConfig enables dataset export.
type MinIOConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	minio.MinIOConfig `mapstructure:",squash" yaml:",inline"`
}

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Path      string `mapstructure:"path" yaml:"path"`
}

// Config is the root configuration object.
type Config struct {
	Featurizer molgraph.FeaturizerConfig `mapstructure:"featurizer" yaml:"featurizer"`
	Log        logging.LogConfig         `mapstructure:"log" yaml:"log"`
	Server     ServerConfig              `mapstructure:"server" yaml:"server"`
	Redis      RedisConfig               `mapstructure:"redis" yaml:"redis"`
	Kafka      KafkaConfig               `mapstructure:"kafka" yaml:"kafka"`
	MinIO      MinIOConfig               `mapstructure:"minio" yaml:"minio"`
	Metrics    MetricsConfig             `mapstructure:"metrics" yaml:"metrics"`
}

// Validate performs semantic validation of a defaulted Config and returns
// the first problem found.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.New(errors.ErrCodeValidation, "invalid configuration").WithDetail(fmt.Sprintf(format, args...))
	}

	if err := c.Featurizer.Validate(); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.MaxBatchRows < 1 {
		return invalid("server.max_batch_rows must be >= 1, got %d", c.Server.MaxBatchRows)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return invalid("redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return invalid("redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) == 0 {
		return invalid("kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.InputTopic == c.Kafka.OutputTopic || c.Kafka.InputTopic == c.Kafka.DeadLetterTopic {
		return invalid("kafka.input_topic %q must differ from the output topics", c.Kafka.InputTopic)
	}
	switch c.Kafka.AutoOffsetReset {
	case "earliest", "latest":
	default:
		return invalid("kafka.auto_offset_reset %q is invalid; expected earliest|latest", c.Kafka.AutoOffsetReset)
	}

	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return invalid("minio.endpoint is required when minio is enabled")
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}
	return nil
}
