package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/molgraph/pkg/errors"
)

func TestConfig_Validate_Default(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		detail string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"batch rows", func(c *Config) { c.Server.MaxBatchRows = -1 }, "server.max_batch_rows"},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"redis addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"redis db", func(c *Config) { c.Redis.DB = -1 }, "redis.db"},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"topic loop", func(c *Config) { c.Kafka.OutputTopic = c.Kafka.InputTopic }, "kafka.input_topic"},
		{"offset reset", func(c *Config) { c.Kafka.AutoOffsetReset = "newest" }, "kafka.auto_offset_reset"},
		{"minio endpoint", func(c *Config) { c.MinIO.Enabled = true; c.MinIO.Endpoint = "" }, "minio.endpoint"},
		{"metrics namespace", func(c *Config) { c.Metrics.Namespace = "" }, "metrics.namespace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
			assert.Contains(t, errors.Reason(err), tt.detail)
		})
	}
}

func TestConfig_Validate_Featurizer(t *testing.T) {
	cfg := Default()
	cfg.Featurizer.MaxAtoms = -5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, "FEAT", errors.GetCode(err).Module())
}

func TestConfig_Validate_DisabledSectionsSkipChecks(t *testing.T) {
	cfg := Default()
	cfg.Redis.Addr = ""
	cfg.MinIO.Endpoint = ""
	cfg.Metrics.Enabled = false
	cfg.Metrics.Namespace = ""
	assert.NoError(t, cfg.Validate())
}
