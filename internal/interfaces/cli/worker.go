package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/molgraph/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/molgraph/internal/interfaces/http"
	"github.com/turtacn/molgraph/internal/interfaces/http/handlers"
)

// NewWorkerCmd creates the worker command.
func NewWorkerCmd() *cobra.Command {
	var metricsPort int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the Kafka streaming featurization worker",
		Long: "Consumes {\"smiles\",\"label\"} messages from kafka.input_topic, publishes\n" +
			"graph envelopes to kafka.output_topic and skip reports to\n" +
			"kafka.dead_letter_topic. Offsets are committed after publishing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runWorker(cmd, cliCtx, metricsPort)
		},
	}
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 9091, "port for /metrics and probes; 0 disables")
	return cmd
}

func runWorker(cmd *cobra.Command, cliCtx *CLIContext, metricsPort int) error {
	cfg := cliCtx.Config
	logger := cliCtx.Logger

	rt, err := newStack(cliCtx, stackOptions{cache: true, metrics: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		Security: cfg.Kafka.Security,
	}, logger.Named("producer"))
	if err != nil {
		return err
	}
	defer producer.Close()

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topic:           cfg.Kafka.InputTopic,
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		Security:        cfg.Kafka.Security,
		Retry:           kafka.RetryConfig{MaxRetries: cfg.Kafka.MaxRetries},
	}, logger.Named("consumer"))
	if err != nil {
		return err
	}
	defer consumer.Close()

	workerOpts := []kafka.WorkerOption{kafka.WithWorkerLogger(logger.Named("worker"))}
	if rt.metrics != nil {
		workerOpts = append(workerOpts, kafka.WithMessageRecorder(rt.metrics))
	}
	w := kafka.NewStreamWorker(rt.service, producer, kafka.WorkerConfig{
		OutputTopic:     cfg.Kafka.OutputTopic,
		DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
	}, workerOpts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsPort > 0 {
		routerCfg := httpapi.RouterConfig{
			HealthHandler: handlers.NewHealthHandler(Version, rt.service.SchemaVersion(), rt.checks...),
		}
		if rt.collector != nil {
			routerCfg.MetricsCollector = rt.collector
			routerCfg.MetricsPath = cfg.Metrics.Path
		}
		srv := httpapi.NewServer(httpapi.ServerConfig{Port: metricsPort}, httpapi.NewRouter(routerCfg), logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
		defer func() { _ = srv.Stop(context.Background()) }()
	}

	logger.Info("streaming worker starting",
		logging.String("input_topic", cfg.Kafka.InputTopic),
		logging.String("output_topic", cfg.Kafka.OutputTopic),
		logging.String("dead_letter_topic", cfg.Kafka.DeadLetterTopic),
		logging.String("group_id", cfg.Kafka.GroupID),
		logging.String("schema_version", rt.service.SchemaVersion()),
	)

	err = w.Run(ctx, consumer)
	logger.Info("streaming worker stopped",
		logging.Int64("consumed", consumer.Consumed()),
		logging.Int64("committed", consumer.Committed()),
		logging.Int64("published", producer.Sent()),
	)
	return err
}
