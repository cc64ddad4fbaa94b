package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/molgraph/internal/config"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/molgraph/internal/interfaces/http"
	"github.com/turtacn/molgraph/internal/interfaces/http/handlers"
	"github.com/turtacn/molgraph/internal/interfaces/http/middleware"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the featurization HTTP API",
		Long: "Serves POST /api/v1/graphs, POST /api/v1/graphs/batch, GET /api/v1/schema,\n" +
			"the /healthz and /readyz probes and Prometheus metrics until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cliCtx.Config.Server.Port = port
			}
			return runServe(cmd, cliCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, cliCtx *CLIContext) error {
	cfg := cliCtx.Config
	logger := cliCtx.Logger

	rt, err := newStack(cliCtx, stackOptions{cache: true, export: true, metrics: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	routerCfg := httpapi.RouterConfig{
		GraphHandler: handlers.NewGraphHandler(rt.service, handlers.GraphHandlerConfig{
			MaxBatchRows: cfg.Server.MaxBatchRows,
			MaxBodySize:  cfg.Server.MaxBodySize,
		}, logger.Named("handlers")),
		HealthHandler:  handlers.NewHealthHandler(Version, rt.service.SchemaVersion(), rt.checks...),
		Logger:         logger.Named("http"),
		LoggingConfig:  middleware.DefaultLoggingConfig(),
		RequestTimeout: cfg.Server.WriteTimeout,
	}
	if rt.metrics != nil {
		routerCfg.HTTPMetrics = rt.metrics
		routerCfg.MetricsCollector = rt.collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	srv := httpapi.NewServer(httpapi.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpapi.NewRouter(routerCfg), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cliCtx.ConfigPath != "" {
		watchConfig(cliCtx)
	}

	logger.Info("featurization API starting",
		logging.Int("port", cfg.Server.Port),
		logging.String("schema_version", rt.service.SchemaVersion()),
		logging.Bool("cache", cfg.Redis.Enabled),
		logging.Bool("export", cfg.MinIO.Enabled),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}

// watchConfig reports config file edits. Featurizer settings change the
// graph layout, so they are only applied by a restart.
func watchConfig(cliCtx *CLIContext) {
	logger := cliCtx.Logger
	err := config.Watch(cliCtx.ConfigPath, func(next *config.Config) {
		logger.Info("configuration file changed", logging.String("path", cliCtx.ConfigPath))
		if next.Featurizer != cliCtx.Config.Featurizer {
			logger.Warn("featurizer settings changed; restart to apply",
				logging.String("running_schema", cliCtx.Config.Featurizer.SchemaVersion()),
				logging.String("configured_schema", next.Featurizer.SchemaVersion()),
			)
		}
	}, func(err error) {
		logger.Warn("ignoring invalid configuration change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}
