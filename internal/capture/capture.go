// Package capture defines the records handed to the event sink and the sink
// contract itself. Everything here is created fresh per request and is
// immutable after construction.
package capture

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DataType routes a record to its downstream pipeline.
type DataType string

const DataTypeAnalyticsMain DataType = "analytics-main"

// CapturedEvent is the wire record for one analytics event.
type CapturedEvent struct {
	UUID                uuid.UUID  `json:"uuid"`
	DistinctID          string     `json:"distinct_id"`
	SessionID           *string    `json:"session_id"`
	IP                  string     `json:"ip"`
	Data                string     `json:"data"`
	Now                 string     `json:"now"`
	SentAt              *time.Time `json:"sent_at"`
	Token               string     `json:"token"`
	Event               string     `json:"event"`
	Timestamp           time.Time  `json:"timestamp"`
	IsCookielessMode    bool       `json:"is_cookieless_mode"`
	HistoricalMigration bool       `json:"historical_migration"`
}

// Metadata carries routing decisions alongside the record.
type Metadata struct {
	DataType             DataType
	SessionID            *string
	ComputedTimestamp    *time.Time
	EventName            string
	ForceOverflow        bool
	SkipPersonProcessing bool
	RedirectToDLQ        bool
}

// ProcessedEvent pairs a captured event with its routing metadata.
type ProcessedEvent struct {
	Event    CapturedEvent
	Metadata Metadata
}

// Sink accepts processed events for durable delivery. Both calls may await
// network I/O; neither retries on behalf of the caller.
type Sink interface {
	Send(ctx context.Context, event ProcessedEvent) error
	SendBatch(ctx context.Context, events []ProcessedEvent) error
}
