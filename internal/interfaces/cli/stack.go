package cli

import (
	"github.com/turtacn/molgraph/internal/application/featurization"
	"github.com/turtacn/molgraph/internal/config"
	"github.com/turtacn/molgraph/internal/infrastructure/database/redis"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molgraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/molgraph/internal/intelligence/molgraph"
	"github.com/turtacn/molgraph/internal/interfaces/http/handlers"
)

// stack is the wired featurization stack shared by every command.
type stack struct {
	cfg       *config.Config
	logger    logging.Logger
	builder   *molgraph.Builder
	service   *featurization.Service
	collector prometheus.MetricsCollector
	metrics   *prometheus.FeaturizerMetrics
	checks    []handlers.HealthChecker
	closers   []func() error
}

// stackOptions selects the optional infrastructure a command needs.
type stackOptions struct {
	cache   bool
	export  bool
	metrics bool
}

// newStack wires builder, service and the enabled infrastructure. Disabled
// sections are skipped; an enabled section that cannot connect is an error.
func newStack(cliCtx *CLIContext, opts stackOptions) (*stack, error) {
	cfg := cliCtx.Config
	rt := &stack{cfg: cfg, logger: cliCtx.Logger}

	builderOpts := []molgraph.BuilderOption{molgraph.WithLogger(rt.logger.Named("molgraph"))}
	svcOpts := []featurization.Option{featurization.WithLogger(rt.logger.Named("featurization"))}

	if opts.metrics && cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, rt.logger)
		if err != nil {
			return nil, err
		}
		rt.collector = collector
		rt.metrics = prometheus.NewFeaturizerMetrics(collector)
		builderOpts = append(builderOpts, molgraph.WithBatchObserver(rt.metrics))
		svcOpts = append(svcOpts, featurization.WithMetrics(rt.metrics))
	}

	b, err := molgraph.NewBuilder(cfg.Featurizer, builderOpts...)
	if err != nil {
		return nil, err
	}
	rt.builder = b

	if opts.cache && cfg.Redis.Enabled {
		rc := cfg.Redis.RedisConfig
		client, err := redis.NewClient(&rc, rt.logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		cache := redis.NewGraphCache(client, rt.logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.TTL),
			redis.WithTTLJitter(true),
		)
		svcOpts = append(svcOpts, featurization.WithCache(cache))
		rt.checks = append(rt.checks, handlers.NewCheck("redis", cache.Ping))
	}

	if opts.export && cfg.MinIO.Enabled {
		mc := cfg.MinIO.MinIOConfig
		client, err := minio.NewMinIOClient(&mc, rt.logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		svcOpts = append(svcOpts, featurization.WithDatasetStore(minio.NewDatasetStore(client, rt.logger)))
		rt.checks = append(rt.checks, handlers.NewCheck("minio", client.HealthCheck))
	}

	svc, err := featurization.NewService(b, svcOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.service = svc
	return rt, nil
}

// Close releases infrastructure clients in reverse order.
func (rt *stack) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("close failed", logging.Err(err))
		}
	}
	rt.closers = nil
}
