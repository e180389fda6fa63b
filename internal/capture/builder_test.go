package capture

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posthog/otelcapture/otlp"
)

func TestBuildPopulatesRecord(t *testing.T) {
	receivedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	builder := RecordBuilder{
		Token:      "phc_test_token",
		ClientIP:   "192.0.2.10",
		ReceivedAt: receivedAt,
	}

	record, err := builder.Build(otlp.SynthesizedEvent{
		Name:       otlp.EventRawData,
		DistinctID: "user-1",
		Properties: map[string]any{"format": "otel_trace"},
	})
	require.NoError(t, err)

	assert.Equal(t, uuid.Version(7), record.Event.UUID.Version())
	assert.Equal(t, "user-1", record.Event.DistinctID)
	assert.Equal(t, "192.0.2.10", record.Event.IP)
	assert.Equal(t, "phc_test_token", record.Event.Token)
	assert.Equal(t, otlp.EventRawData, record.Event.Event)
	assert.Equal(t, receivedAt.Format(time.RFC3339Nano), record.Event.Now)
	assert.JSONEq(t,
		`{"event":"$ai_raw_data","distinct_id":"user-1","properties":{"format":"otel_trace"}}`,
		record.Event.Data)

	assert.Equal(t, DataTypeAnalyticsMain, record.Metadata.DataType)
	assert.Equal(t, otlp.EventRawData, record.Metadata.EventName)
	require.NotNil(t, record.Metadata.ComputedTimestamp)
	assert.Equal(t, record.Event.Timestamp, *record.Metadata.ComputedTimestamp)
}

func TestBuildTimestampFallback(t *testing.T) {
	receivedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	spanStart := time.Date(2024, 5, 1, 11, 59, 30, 0, time.UTC)
	builder := RecordBuilder{Token: "phc_t", ReceivedAt: receivedAt}

	record, err := builder.Build(otlp.SynthesizedEvent{
		Name:       otlp.EventSpan,
		DistinctID: "u",
		Timestamp:  &spanStart,
	})
	require.NoError(t, err)
	assert.Equal(t, spanStart, record.Event.Timestamp)

	record, err = builder.Build(otlp.SynthesizedEvent{Name: otlp.EventSpan, DistinctID: "u"})
	require.NoError(t, err)
	assert.Equal(t, receivedAt, record.Event.Timestamp)
}

func TestBuildAllPreservesOrder(t *testing.T) {
	builder := RecordBuilder{Token: "phc_t", ReceivedAt: time.Now().UTC()}

	events := []otlp.SynthesizedEvent{
		{Name: otlp.EventGeneration, DistinctID: "u"},
		{Name: otlp.EventEmbedding, DistinctID: "u"},
		{Name: otlp.EventSpan, DistinctID: "u"},
	}

	records, err := builder.BuildAll(events)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, record := range records {
		assert.Equal(t, events[i].Name, record.Event.Event)
	}
}
