package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/turtacn/molgraph/pkg/errors"
)

// Default topic names.
const (
	TopicMoleculeRows    = "molgraph.rows"
	TopicMoleculeGraphs  = "molgraph.graphs"
	TopicMoleculeSkipped = "molgraph.skipped"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventGraphBuilt   = "molgraph.graph_built"
	EventRowSkipped   = "molgraph.row_skipped"
	envelopeSource    = "molgraph-worker"
	headerEventType   = "event_type"
	headerSchema      = "schema_version"
	headerSourceTopic = "source_topic"
)

// ProducerMessage is a message to publish.
type ProducerMessage struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

func (m *ProducerMessage) toKafka() kafka.Message {
	headers := make([]kafka.Header, 0, len(m.Headers))
	for k, v := range m.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Topic:   m.Topic,
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
		Time:    time.Now(),
	}
}

// RowMessage is the input record of the streaming worker.
type RowMessage struct {
	SMILES string   `json:"smiles"`
	Label  *float64 `json:"label,omitempty"`
}

// SkipReport is published to the dead-letter topic for rows that produced no
// graph.
type SkipReport struct {
	SMILES    string `json:"smiles"`
	Reason    string `json:"reason"`
	Code      string `json:"code"`
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
}

// EventEnvelope wraps every message the worker publishes.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType, schemaVersion string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        envelopeSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       raw,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// ToMessage encodes the envelope as a message for topic.
func (e *EventEnvelope) ToMessage(topic string, key []byte) (*ProducerMessage, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   key,
		Value: value,
		Headers: map[string]string{
			headerEventType: e.EventType,
			headerSchema:    e.SchemaVersion,
		},
	}, nil
}
