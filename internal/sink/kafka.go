// Package sink delivers processed events to the capture pipeline's Kafka
// topics, plus an in-memory variant for tests.
package sink

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/posthog/otelcapture/internal/capture"
	"github.com/posthog/otelcapture/otlp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KafkaSink produces captured events to a single topic, keyed by
// token:distinct_id so one client's events stay ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	log    *zap.Logger
}

// KafkaConfig carries the producer settings the service exposes.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

func NewKafkaSink(cfg KafkaConfig, log *zap.Logger) (*KafkaSink, error) {
	clientOpts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
		kgo.ProduceRequestTimeout(10 * time.Second),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	}
	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{client: client, topic: cfg.Topic, log: log}, nil
}

func (s *KafkaSink) Send(ctx context.Context, event capture.ProcessedEvent) error {
	return s.SendBatch(ctx, []capture.ProcessedEvent{event})
}

func (s *KafkaSink) SendBatch(ctx context.Context, events []capture.ProcessedEvent) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for i := range events {
		record, err := s.newRecord(&events[i])
		if err != nil {
			return err
		}
		records = append(records, record)
	}
	if err := s.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		s.log.Warn("failed to produce capture records", zap.Error(err), zap.Int("records", len(records)))
		return err
	}
	return nil
}

func (s *KafkaSink) newRecord(event *capture.ProcessedEvent) (*kgo.Record, error) {
	value, err := json.Marshal(event.Event)
	if err != nil {
		return nil, otlp.ErrNonRetryableSink
	}
	return &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Event.Token + ":" + event.Event.DistinctID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "token", Value: []byte(event.Event.Token)},
			{Key: "data_type", Value: []byte(event.Metadata.DataType)},
			{Key: "event_name", Value: []byte(event.Metadata.EventName)},
		},
	}, nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
