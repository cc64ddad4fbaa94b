package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
featurizer:
  use_chirality: true
  hydrogens_implicit: false
  use_stereochemistry: true
  bond_type_overflow: true
  max_atoms: 150
  workers: 4
log:
  level: debug
  format: console
server:
  port: 9090
  read_timeout: 10s
redis:
  enabled: true
  addr: "redis:6379"
  db: 2
  ttl: 1h
kafka:
  brokers: ["kafka-0:9092", "kafka-1:9092"]
  group_id: featurizers
minio:
  enabled: true
  endpoint: "minio:9000"
  access_key_id: key
  secret_access_key: secret
  bucket: graphs
metrics:
  namespace: mg
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.True(t, cfg.Featurizer.UseChirality)
	assert.False(t, cfg.Featurizer.HydrogensImplicit)
	assert.True(t, cfg.Featurizer.BondTypeOverflow)
	assert.Equal(t, 150, cfg.Featurizer.MaxAtoms)
	assert.Equal(t, 4, cfg.Featurizer.Workers)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)

	assert.Equal(t, []string{"kafka-0:9092", "kafka-1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "featurizers", cfg.Kafka.GroupID)

	assert.True(t, cfg.MinIO.Enabled)
	assert.Equal(t, "minio:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "key", cfg.MinIO.AccessKeyID)
	assert.Equal(t, "graphs", cfg.MinIO.Bucket)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "mg", cfg.Metrics.Namespace)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "featurizer: ["))
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server:\n  port: 70000\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("MOLGRAPH_SERVER_PORT", "9999")
	t.Setenv("MOLGRAPH_REDIS_ADDR", "cache:6380")
	t.Setenv("MOLGRAPH_FEATURIZER_BOND_TYPE_OVERFLOW", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.False(t, cfg.Featurizer.BondTypeOverflow)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MOLGRAPH_FEATURIZER_USE_CHIRALITY", "false")
	t.Setenv("MOLGRAPH_FEATURIZER_MAX_ATOMS", "64")
	t.Setenv("MOLGRAPH_KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("MOLGRAPH_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Featurizer.UseChirality)
	assert.True(t, cfg.Featurizer.HydrogensImplicit)
	assert.Equal(t, 64, cfg.Featurizer.MaxAtoms)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFromEnv_ValidationFailure(t *testing.T) {
	t.Setenv("MOLGRAPH_LOG_FORMAT", "xml")
	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, "log:\n  level: info\n")

	var (
		mu    sync.Mutex
		level string
	)
	err := Watch(path, func(cfg *Config) {
		mu.Lock()
		level = cfg.Log.Level
		mu.Unlock()
	}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return level == "debug"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}
