package testdoubles

import (
	"context"
	"sync"

	"github.com/technoplato/sharing-instant-sub003/livequery"
)

// SpanContextSpy implements livequery.SpanContext and records status and
// attribute updates for inspection in tests.
type SpanContextSpy struct {
	mu         sync.Mutex
	status     string
	attributes map[string]string
}

// SetStatus implements the SpanContext interface for testing.
func (c *SpanContextSpy) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

// AddAttribute implements the SpanContext interface for testing.
func (c *SpanContextSpy) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}
	c.attributes[key] = value
}

// SpanRecord is one recorded span with its start attributes and, once
// finished, its status and end attributes.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Status          string
	EndAttributes   map[string]string
	SpanContext     *SpanContextSpy
}

// TracingCollectorSpy is a livequery.TracingCollector implementation that
// captures every span for testing tracing instrumentation.
type TracingCollectorSpy struct {
	mu      sync.Mutex
	records []SpanRecord
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy instance.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

// StartSpan implements the TracingCollector interface for testing.
func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, livequery.SpanContext) {

	s.mu.Lock()
	defer s.mu.Unlock()

	spanCtx := &SpanContextSpy{}
	s.records = append(s.records, SpanRecord{
		Name:            name,
		StartAttributes: copyAttributes(attrs),
		SpanContext:     spanCtx,
	})

	return ctx, spanCtx
}

// FinishSpan implements the TracingCollector interface for testing.
func (s *TracingCollectorSpy) FinishSpan(spanCtx livequery.SpanContext, status string, attrs map[string]string) {
	spy, ok := spanCtx.(*SpanContextSpy)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].SpanContext == spy {
			s.records[i].Status = status
			s.records[i].EndAttributes = copyAttributes(attrs)
			return
		}
	}
}

// Spans returns a copy of all recorded spans in start order.
func (s *TracingCollectorSpy) Spans() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpanRecord, len(s.records))
	copy(records, s.records)

	return records
}

// SpansNamed returns all recorded spans with the given name, in start order.
func (s *TracingCollectorSpy) SpansNamed(name string) []SpanRecord {
	var matching []SpanRecord
	for _, record := range s.Spans() {
		if record.Name == name {
			matching = append(matching, record)
		}
	}

	return matching
}

func copyAttributes(attrs map[string]string) map[string]string {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}

	return copied
}
