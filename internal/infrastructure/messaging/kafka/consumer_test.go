package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/molgraph/pkg/errors"
)

// mockKafkaReader serves queued messages, then blocks until the context ends.
type mockKafkaReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	commitErr error
	committed []kafka.Message
	closed    bool
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.fetchErrs) > 0 {
		err := m.fetchErrs[0]
		m.fetchErrs = m.fetchErrs[1:]
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockKafkaReader) Close() error {
	m.closed = true
	return nil
}

func (m *mockKafkaReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

func (m *mockKafkaReader) commits() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.committed...)
}

func newTestConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "test-group",
		Topic:   "rows",
		Retry:   RetryConfig{MaxRetries: 2, RetryBackoff: time.Millisecond},
	}
}

func msgAt(offset int64, value string) kafka.Message {
	return kafka.Message{Topic: "rows", Offset: offset, Value: []byte(value)}
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(newTestConsumerConfig()))

	tests := []func(*ConsumerConfig){
		func(c *ConsumerConfig) { c.Brokers = nil },
		func(c *ConsumerConfig) { c.GroupID = "" },
		func(c *ConsumerConfig) { c.Topic = "" },
		func(c *ConsumerConfig) { c.AutoOffsetReset = "middle" },
		func(c *ConsumerConfig) { c.Retry.MaxRetries = -1 },
	}
	for i, mutate := range tests {
		cfg := newTestConsumerConfig()
		mutate(&cfg)
		assert.Error(t, ValidateConsumerConfig(cfg), "case %d", i)
	}
}

func TestConsumer_CommitsAfterHandler(t *testing.T) {
	r := &mockKafkaReader{queue: []kafka.Message{msgAt(0, "a"), msgAt(1, "b"), msgAt(2, "c")}}
	c := newConsumerWithReader(r, newTestConsumerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	handler := func(_ context.Context, m kafka.Message) error {
		seen = append(seen, string(m.Value))
		if len(seen) == 3 {
			cancel()
		}
		return nil
	}

	require.NoError(t, c.Run(ctx, handler))
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Len(t, r.commits(), 3)
	assert.Equal(t, int64(3), c.Consumed())
	assert.Equal(t, int64(3), c.Committed())
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	r := &mockKafkaReader{queue: []kafka.Message{msgAt(7, "a")}}
	c := newConsumerWithReader(r, newTestConsumerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	handler := func(context.Context, kafka.Message) error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient")
		}
		cancel()
		return nil
	}

	require.NoError(t, c.Run(ctx, handler))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, int64(2), c.Retried())
	require.Len(t, r.commits(), 1)
	assert.Equal(t, int64(7), r.commits()[0].Offset)
}

func TestConsumer_StopsWithoutCommitWhenHandlerKeepsFailing(t *testing.T) {
	r := &mockKafkaReader{queue: []kafka.Message{msgAt(0, "a"), msgAt(1, "b")}}
	c := newConsumerWithReader(r, newTestConsumerConfig(), nil)

	attempts := 0
	err := c.Run(context.Background(), func(context.Context, kafka.Message) error {
		attempts++
		return stderrors.New("broker down")
	})

	assert.True(t, errors.IsCode(err, errors.ErrCodeStreamPublishFailed))
	assert.Equal(t, "rows/0@0", errors.Reason(err))
	assert.Equal(t, 3, attempts)
	assert.Empty(t, r.commits())
}

func TestConsumer_CommitError(t *testing.T) {
	r := &mockKafkaReader{queue: []kafka.Message{msgAt(0, "a")}, commitErr: stderrors.New("rebalance")}
	c := newConsumerWithReader(r, newTestConsumerConfig(), nil)

	err := c.Run(context.Background(), func(context.Context, kafka.Message) error { return nil })
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestConsumer_FetchErrorIsRetried(t *testing.T) {
	r := &mockKafkaReader{
		fetchErrs: []error{stderrors.New("coordinator not available")},
		queue:     []kafka.Message{msgAt(0, "a")},
	}
	c := newConsumerWithReader(r, newTestConsumerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Run(ctx, func(context.Context, kafka.Message) error {
		cancel()
		return nil
	}))
	assert.Equal(t, int64(1), c.Consumed())
}

func TestConsumer_RunTwiceAndClose(t *testing.T) {
	r := &mockKafkaReader{}
	c := newConsumerWithReader(r, newTestConsumerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, func(context.Context, kafka.Message) error { return nil }) }()

	require.Eventually(t, func() bool { return c.running.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Run(ctx, nil), ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)

	require.NoError(t, c.Close())
	assert.True(t, r.closed)
	assert.ErrorIs(t, c.Run(context.Background(), nil), ErrConsumerClosed)
}
