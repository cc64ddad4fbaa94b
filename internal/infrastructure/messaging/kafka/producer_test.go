package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/molgraph/pkg/errors"
)

type mockKafkaWriter struct {
	mu       sync.Mutex
	written  []kafka.Message
	writeErr error
	closed   int
}

func (m *mockKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed++
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func (m *mockKafkaWriter) messages() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.written...)
}

func headerMap(m kafka.Message) map[string]string {
	out := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"localhost:9092"}}))
	assert.Error(t, ValidateProducerConfig(ProducerConfig{}))
	assert.Error(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"b"}, MaxRetries: -1}))
	assert.Error(t, ValidateProducerConfig(ProducerConfig{
		Brokers:  []string{"b"},
		Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "GSSAPI", SASLUsername: "u", SASLPassword: "p"},
	}))
	assert.Error(t, ValidateProducerConfig(ProducerConfig{
		Brokers:  []string{"b"},
		Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "PLAIN"},
	}))
}

func TestNewProducer_BuildsWriter(t *testing.T) {
	p, err := NewProducer(ProducerConfig{
		Brokers:  []string{"localhost:9092"},
		Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "SCRAM-SHA-512", SASLUsername: "u", SASLPassword: "p"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.config.MaxRetries)
	assert.Equal(t, 1024*1024, p.config.MaxMessageBytes)
	require.NoError(t, p.Close())
}

func TestProducer_Publish(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newProducerWithWriter(w, ProducerConfig{}, nil)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   "graphs",
		Key:     []byte("CCO"),
		Value:   []byte(`{}`),
		Headers: map[string]string{"event_type": "x"},
	})
	require.NoError(t, err)

	msgs := w.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "graphs", msgs[0].Topic)
	assert.Equal(t, []byte("CCO"), msgs[0].Key)
	assert.Equal(t, "x", headerMap(msgs[0])["event_type"])
	assert.False(t, msgs[0].Time.IsZero())
	assert.Equal(t, int64(1), p.Sent())
}

func TestProducer_PublishValidation(t *testing.T) {
	p := newProducerWithWriter(&mockKafkaWriter{}, ProducerConfig{MaxMessageBytes: 4}, nil)
	ctx := context.Background()

	assert.True(t, errors.IsCode(p.Publish(ctx, &ProducerMessage{Value: []byte("x")}), errors.ErrCodeValidation))
	assert.True(t, errors.IsCode(p.Publish(ctx, &ProducerMessage{Topic: "t"}), errors.ErrCodeValidation))
	assert.True(t, errors.IsCode(p.Publish(ctx, &ProducerMessage{Topic: "t", Value: []byte("too long")}), errors.ErrCodeValidation))
}

func TestProducer_PublishWriteError(t *testing.T) {
	w := &mockKafkaWriter{writeErr: stderrors.New("leader not available")}
	p := newProducerWithWriter(w, ProducerConfig{}, nil)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStreamPublishFailed))
	assert.Equal(t, int64(1), p.Failed())
}

func TestProducer_Close(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newProducerWithWriter(w, ProducerConfig{}, nil)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")}), ErrProducerClosed)
}
