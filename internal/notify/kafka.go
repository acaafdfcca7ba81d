package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes correction events as JSON, keyed by normalized fact
// so repeated corrections of one fact land on the same partition.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) *KafkaNotifier {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	})
	return &KafkaNotifier{writer: writer, topic: topic, logger: logger}
}

func (n *KafkaNotifier) CorrectionDetected(ctx context.Context, e domain.CorrectionEvent) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal correction event: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Normalized),
		Value: value,
		Time:  e.DetectedAt,
	})
	if err != nil {
		n.logger.Error("failed to publish correction event", zap.String("topic", n.topic), zap.Error(err))
		return fmt.Errorf("publish correction event: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
