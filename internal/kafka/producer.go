package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 2 * time.Second

// Producer writes event records to one topic. It is best-effort: write
// failures are logged and never returned to the caller, and every write is
// bounded by the write timeout regardless of the caller's deadline.
type Producer struct {
	writer       *kafka.Writer
	topic        string
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewProducer creates a producer. With no brokers or no topic every method
// is a no-op. A non-positive writeTimeout uses two seconds.
func NewProducer(brokers []string, topic string, writeTimeout time.Duration, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if len(brokers) == 0 || topic == "" {
		return &Producer{logger: logger, writeTimeout: writeTimeout}
	}
	return &Producer{
		topic:        topic,
		writeTimeout: writeTimeout,
		logger:       logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  2,
			ReadTimeout:  writeTimeout,
			WriteTimeout: writeTimeout,
		},
	}
}

// Enabled reports whether records are actually shipped.
func (p *Producer) Enabled() bool {
	return p != nil && p.writer != nil
}

// Produce writes one record keyed by key so that events of one ticket stay
// ordered within a partition.
func (p *Producer) Produce(ctx context.Context, key string, body []byte) {
	if !p.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	msg := kafka.Message{Key: []byte(key), Value: body, Time: time.Now().UTC()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka write failed", zap.String("topic", p.topic), zap.String("key", key), zap.Error(err))
	}
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
