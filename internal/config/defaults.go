package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/turtacn/molgraph/internal/infrastructure/messaging/kafka"
)

const (
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodySize     = 32 << 20
	DefaultMaxBatchRows    = 10000

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "molgraph:"
	DefaultRedisTTL       = 24 * time.Hour

	DefaultKafkaBroker     = "localhost:9092"
	DefaultKafkaGroupID    = "molgraph-worker"
	DefaultAutoOffsetReset = "earliest"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "molgraph"
	DefaultMinIOPrefix   = "datasets"

	DefaultMetricsNamespace = "molgraph"
	DefaultMetricsPath      = "/metrics"
)

// setViperDefaults registers a default for every key so that MOLGRAPH_*
// environment variables are seen by Unmarshal, and so that boolean defaults
// survive (ApplyDefaults cannot tell false from unset).
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("featurizer.use_chirality", true)
	v.SetDefault("featurizer.hydrogens_implicit", true)
	v.SetDefault("featurizer.use_stereochemistry", true)
	v.SetDefault("featurizer.bond_type_overflow", false)
	v.SetDefault("featurizer.max_atoms", 0)
	v.SetDefault("featurizer.workers", 0)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.max_body_size", DefaultMaxBodySize)
	v.SetDefault("server.max_batch_rows", DefaultMaxBatchRows)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", DefaultRedisKeyPrefix)
	v.SetDefault("redis.ttl", DefaultRedisTTL)

	v.SetDefault("kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("kafka.group_id", DefaultKafkaGroupID)
	v.SetDefault("kafka.input_topic", kafka.TopicMoleculeRows)
	v.SetDefault("kafka.output_topic", kafka.TopicMoleculeGraphs)
	v.SetDefault("kafka.dead_letter_topic", kafka.TopicMoleculeSkipped)
	v.SetDefault("kafka.auto_offset_reset", DefaultAutoOffsetReset)
	v.SetDefault("kafka.max_retries", 3)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", DefaultMinIOEndpoint)
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", DefaultMinIOBucket)
	v.SetDefault("minio.prefix", DefaultMinIOPrefix)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.path", DefaultMetricsPath)
}

// ApplyDefaults fills zero-value fields of cfg. Explicit values always win.
// Boolean switches are not touched here; Default() and the loader set them.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.MaxBatchRows == 0 {
		cfg.Server.MaxBatchRows = DefaultMaxBatchRows
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.InputTopic == "" {
		cfg.Kafka.InputTopic = kafka.TopicMoleculeRows
	}
	if cfg.Kafka.OutputTopic == "" {
		cfg.Kafka.OutputTopic = kafka.TopicMoleculeGraphs
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = kafka.TopicMoleculeSkipped
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = DefaultAutoOffsetReset
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Prefix == "" {
		cfg.MinIO.Prefix = DefaultMinIOPrefix
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// Default returns a fully defaulted Config, equivalent to loading with no
// file and no environment overrides.
func Default() *Config {
	cfg := &Config{}
	cfg.Redis.Enabled = false
	cfg.Metrics.Enabled = true
	cfg.Kafka.MaxRetries = 3
	ApplyDefaults(cfg)
	cfg.Featurizer.UseChirality = true
	cfg.Featurizer.HydrogensImplicit = true
	cfg.Featurizer.UseStereochemistry = true
	return cfg
}
