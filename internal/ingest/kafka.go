package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/segmentio/kafka-go"
)

// KafkaForwarder publishes the enriched payload keyed by record id.
type KafkaForwarder struct {
	writer *kafka.Writer
}

func NewKafkaForwarder(brokers []string, topic string, timeout time.Duration) (*KafkaForwarder, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("kafka forwarder needs brokers and a topic")
	}
	return &KafkaForwarder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: timeout,
		},
	}, nil
}

func (f *KafkaForwarder) Forward(ctx context.Context, rec model.Record) error {
	return f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.ID),
		Value: []byte(EnrichedPayload(rec)),
	})
}

func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
