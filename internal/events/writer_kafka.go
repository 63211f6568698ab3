package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter publishes envelopes as JSON, keyed by job id so the events of
// one job keep their order within a partition.
type KafkaWriter struct {
	writer *kafka.Writer
}

func NewKafkaWriter(brokers []string) (*KafkaWriter, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	return &KafkaWriter{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (k *KafkaWriter) Write(ctx context.Context, topic string, e Envelope) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(e.Key),
		Value: value,
		Time:  e.Time,
		Headers: []kafka.Header{
			{Key: "ce_type", Value: []byte(e.Type)},
			{Key: "ce_source", Value: []byte(e.Source)},
			{Key: "ce_id", Value: []byte(e.ID)},
		},
	})
}

func (k *KafkaWriter) Close(_ context.Context) error {
	return k.writer.Close()
}
