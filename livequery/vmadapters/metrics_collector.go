// Package vmadapters provides a VictoriaMetrics adapter for the livequery
// metrics interface, for users who expose metrics with
// github.com/VictoriaMetrics/metrics instead of OpenTelemetry.
package vmadapters

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/technoplato/sharing-instant-sub003/livequery"
)

// MetricsCollector implements livequery.MetricsCollector on a VictoriaMetrics
// metrics set. Instruments are created on demand; labels are rendered into
// the metric name in Prometheus exposition syntax with deterministically
// ordered keys, which is how the metrics package identifies instruments.
type MetricsCollector struct {
	set *metrics.Set
}

// NewMetricsCollector creates a collector writing into its own metrics set.
// Expose it by calling WritePrometheus on an HTTP handler of your choosing.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{set: metrics.NewSet()}
}

// NewMetricsCollectorWithSet creates a collector writing into a caller-owned set.
func NewMetricsCollectorWithSet(set *metrics.Set) *MetricsCollector {
	return &MetricsCollector{set: set}
}

// RecordDuration updates a histogram with the duration in seconds.
func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	m.set.GetOrCreateHistogram(renderName(metricName, labels)).Update(duration.Seconds())
}

// IncrementCounter increments a counter.
func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	m.set.GetOrCreateCounter(renderName(metricName, labels)).Inc()
}

// RecordValue sets a float counter to the given value. The metrics package
// has no dedicated gauge type for pushed values; a float counter with Set
// carries the same exposition semantics.
func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	m.set.GetOrCreateFloatCounter(renderName(metricName, labels)).Set(value)
}

// Set returns the underlying metrics set for exposition.
func (m *MetricsCollector) Set() *metrics.Set {
	return m.set
}

// renderName renders name plus labels as `name{k1="v1",k2="v2"}` with keys in
// sorted order so the same logical instrument is always hit.
func renderName(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", key, labels[key])
	}
	b.WriteByte('}')

	return b.String()
}

// Ensure MetricsCollector implements livequery.MetricsCollector.
var _ livequery.MetricsCollector = (*MetricsCollector)(nil)
