package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// Featurizer builds the graph of one row.
type Featurizer interface {
	Featurize(ctx context.Context, smiles string, label *float64) (*moltypes.MoleculeGraph, error)
	SchemaVersion() string
}

// Publisher writes one message.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// MessageRecorder counts worker outcomes.
type MessageRecorder interface {
	RecordMessage(outcome string)
}

// Worker outcomes passed to MessageRecorder.
const (
	OutcomePublished = "published"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

type WorkerConfig struct {
	OutputTopic     string `mapstructure:"output_topic" yaml:"output_topic"`
	DeadLetterTopic string `mapstructure:"dead_letter_topic" yaml:"dead_letter_topic"`
}

// StreamWorker turns row messages into graph messages. Rows that cannot be
// featurized become skip reports on the dead-letter topic; both count as
// handled so the consumer commits them.
type StreamWorker struct {
	featurizer Featurizer
	publisher  Publisher
	config     WorkerConfig
	logger     logging.Logger
	recorder   MessageRecorder
}

type WorkerOption func(*StreamWorker)

func WithWorkerLogger(l logging.Logger) WorkerOption {
	return func(w *StreamWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithMessageRecorder(r MessageRecorder) WorkerOption {
	return func(w *StreamWorker) { w.recorder = r }
}

func NewStreamWorker(f Featurizer, p Publisher, cfg WorkerConfig, opts ...WorkerOption) *StreamWorker {
	if cfg.OutputTopic == "" {
		cfg.OutputTopic = TopicMoleculeGraphs
	}
	if cfg.DeadLetterTopic == "" {
		cfg.DeadLetterTopic = TopicMoleculeSkipped
	}
	w := &StreamWorker{
		featurizer: f,
		publisher:  p,
		config:     cfg,
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes until ctx is cancelled or a message cannot be handled.
func (w *StreamWorker) Run(ctx context.Context, c *Consumer) error {
	return c.Run(ctx, w.Handle)
}

// Handle processes one row message. It returns an error only when the
// message should be retried: a failed publish or an unexpected build error.
func (w *StreamWorker) Handle(ctx context.Context, m kafka.Message) error {
	var row RowMessage
	if err := json.Unmarshal(m.Value, &row); err != nil {
		return w.skip(ctx, m, "", errors.Wrap(err, errors.ErrCodeBadRequest, "malformed row message").WithDetail(err.Error()))
	}

	g, err := w.featurizer.Featurize(ctx, row.SMILES, row.Label)
	if err != nil {
		if skippable(err) {
			return w.skip(ctx, m, row.SMILES, err)
		}
		w.record(OutcomeFailed)
		return err
	}

	env, err := NewEventEnvelope(EventGraphBuilt, w.featurizer.SchemaVersion(), g)
	if err != nil {
		w.record(OutcomeFailed)
		return err
	}
	key := m.Key
	if len(key) == 0 {
		key = []byte(row.SMILES)
	}
	out, err := env.ToMessage(w.config.OutputTopic, key)
	if err != nil {
		w.record(OutcomeFailed)
		return err
	}
	out.Headers[headerSourceTopic] = m.Topic
	if err := w.publisher.Publish(ctx, out); err != nil {
		w.record(OutcomeFailed)
		return err
	}
	w.record(OutcomePublished)
	return nil
}

func (w *StreamWorker) skip(ctx context.Context, m kafka.Message, smiles string, cause error) error {
	report := SkipReport{
		SMILES:    smiles,
		Reason:    errors.Reason(cause),
		Code:      errors.GetCode(cause).String(),
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
	}
	w.logger.Warn("skipping molecule",
		logging.String("smiles", smiles),
		logging.String("reason", report.Reason),
		logging.Int64("offset", m.Offset))

	env, err := NewEventEnvelope(EventRowSkipped, w.featurizer.SchemaVersion(), report)
	if err != nil {
		w.record(OutcomeFailed)
		return err
	}
	out, err := env.ToMessage(w.config.DeadLetterTopic, m.Key)
	if err != nil {
		w.record(OutcomeFailed)
		return err
	}
	out.Headers[headerSourceTopic] = m.Topic
	if err := w.publisher.Publish(ctx, out); err != nil {
		w.record(OutcomeFailed)
		return err
	}
	w.record(OutcomeSkipped)
	return nil
}

func (w *StreamWorker) record(outcome string) {
	if w.recorder != nil {
		w.recorder.RecordMessage(outcome)
	}
}

// skippable reports whether err describes the row itself rather than the
// environment, so retrying cannot help.
func skippable(err error) bool {
	return errors.GetCode(err).Module() == "MOL"
}
