package capture

import (
	"time"

	"github.com/google/uuid"

	"github.com/posthog/otelcapture/otlp"
)

// RecordBuilder assembles processed events for one request. Record ids are
// UUIDv7 so they sort by creation time downstream.
type RecordBuilder struct {
	Token      string
	ClientIP   string
	ReceivedAt time.Time
}

// Build turns one synthesized event into a dispatchable record. Events
// without their own timestamp take the request's receipt instant.
func (b RecordBuilder) Build(event otlp.SynthesizedEvent) (ProcessedEvent, error) {
	payload, err := event.Payload()
	if err != nil {
		return ProcessedEvent{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return ProcessedEvent{}, otlp.ErrNonRetryableSink
	}

	timestamp := b.ReceivedAt
	if event.Timestamp != nil {
		timestamp = *event.Timestamp
	}

	record := CapturedEvent{
		UUID:       id,
		DistinctID: event.DistinctID,
		IP:         b.ClientIP,
		Data:       payload,
		Now:        b.ReceivedAt.Format(time.RFC3339Nano),
		Token:      b.Token,
		Event:      event.Name,
		Timestamp:  timestamp,
	}

	metadata := Metadata{
		DataType:          DataTypeAnalyticsMain,
		ComputedTimestamp: &timestamp,
		EventName:         event.Name,
	}

	return ProcessedEvent{Event: record, Metadata: metadata}, nil
}

// BuildAll builds records for every synthesized event in order.
func (b RecordBuilder) BuildAll(events []otlp.SynthesizedEvent) ([]ProcessedEvent, error) {
	records := make([]ProcessedEvent, 0, len(events))
	for _, event := range events {
		record, err := b.Build(event)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
