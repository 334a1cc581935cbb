package testdoubles

import (
	"context"
	"sync"
	"time"
)

// MetricsCollectorSpy is a livequery.MetricsCollector implementation that
// records counter increments for testing registry instrumentation.
type MetricsCollectorSpy struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy instance.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{counters: make(map[string]int)}
}

// RecordDuration implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) RecordDuration(string, time.Duration, map[string]string) {}

// IncrementCounter implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, _ map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[metric]++
}

// RecordValue implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) RecordValue(string, float64, map[string]string) {}

// CounterValue returns how often a counter metric was incremented.
func (s *MetricsCollectorSpy) CounterValue(metric string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counters[metric]
}

// ContextualMetricsCollectorSpy is a livequery.ContextualMetricsCollector
// implementation that records context-aware calls separately from the base
// methods, so tests can verify the contextual path is preferred.
type ContextualMetricsCollectorSpy struct {
	*MetricsCollectorSpy
	mu         sync.Mutex
	contextual map[string]int
}

// NewContextualMetricsCollectorSpy creates a new ContextualMetricsCollectorSpy instance.
func NewContextualMetricsCollectorSpy() *ContextualMetricsCollectorSpy {
	return &ContextualMetricsCollectorSpy{
		MetricsCollectorSpy: NewMetricsCollectorSpy(),
		contextual:          make(map[string]int),
	}
}

// RecordDurationContext implements the ContextualMetricsCollector interface for testing.
func (s *ContextualMetricsCollectorSpy) RecordDurationContext(
	_ context.Context,
	metric string,
	_ time.Duration,
	_ map[string]string,
) {
	s.countContextual(metric)
}

// IncrementCounterContext implements the ContextualMetricsCollector interface for testing.
func (s *ContextualMetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, _ map[string]string) {
	s.countContextual(metric)
}

// RecordValueContext implements the ContextualMetricsCollector interface for testing.
func (s *ContextualMetricsCollectorSpy) RecordValueContext(
	_ context.Context,
	metric string,
	_ float64,
	_ map[string]string,
) {
	s.countContextual(metric)
}

// ContextualCallCount returns how often a metric was reported through a
// context-aware method.
func (s *ContextualMetricsCollectorSpy) ContextualCallCount(metric string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.contextual[metric]
}

func (s *ContextualMetricsCollectorSpy) countContextual(metric string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contextual[metric]++
}
