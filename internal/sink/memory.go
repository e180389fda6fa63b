package sink

import (
	"context"
	"sync"

	"github.com/posthog/otelcapture/internal/capture"
)

// MemorySink collects events in memory. Used in tests in place of Kafka.
type MemorySink struct {
	mu     sync.Mutex
	events []capture.ProcessedEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Send(_ context.Context, event capture.ProcessedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemorySink) SendBatch(_ context.Context, events []capture.ProcessedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything dispatched so far.
func (s *MemorySink) Events() []capture.ProcessedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capture.ProcessedEvent, len(s.events))
	copy(out, s.events)
	return out
}
