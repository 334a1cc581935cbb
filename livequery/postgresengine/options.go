package postgresengine

import (
	"time"

	"github.com/lib/pq"

	"github.com/technoplato/sharing-instant-sub003/livequery"
)

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithTableName sets the entity table name for the Engine.
func WithTableName(tableName string) Option {
	return func(e *Engine) error {
		if tableName == "" {
			return livequery.ErrEmptyEntityTableName
		}

		e.entityTableName = tableName

		return nil
	}
}

// WithLinkTableName sets the link table name for the Engine.
func WithLinkTableName(tableName string) Option {
	return func(e *Engine) error {
		if tableName == "" {
			return livequery.ErrEmptyLinkTableName
		}

		e.linkTableName = tableName

		return nil
	}
}

// WithPollInterval sets how often subscriptions re-run their query when no
// change notification arrives.
func WithPollInterval(interval time.Duration) Option {
	return func(e *Engine) error {
		if interval <= 0 {
			return livequery.ErrInvalidPollInterval
		}

		e.pollInterval = interval

		return nil
	}
}

// WithChangeChannel sets the Postgres NOTIFY channel the engine uses: it is
// the channel NotifyChange emits on, and with a pgx pool also the channel a
// dedicated LISTEN connection watches to wake subscriptions ahead of their
// poll interval. For database/sql or sqlx engines that should also listen,
// use WithPQListener instead.
func WithChangeChannel(channel string) Option {
	return func(e *Engine) error {
		if channel == "" {
			return livequery.ErrEmptyChangeChannel
		}

		e.changeChannel = channel

		return nil
	}
}

// WithPQListener wires a caller-owned lib/pq listener as the change feed, for
// engines constructed over database/sql or sqlx connections. The listener's
// lifecycle stays with the caller. The feed itself starts only after all
// options have been applied successfully.
func WithPQListener(listener *pq.Listener, channel string) Option {
	return func(e *Engine) error {
		if listener == nil {
			return livequery.ErrNilListener
		}
		if channel == "" {
			return livequery.ErrEmptyChangeChannel
		}

		e.changeChannel = channel
		e.pqListener = listener

		return nil
	}
}

// WithLogger sets the logger for the Engine.
//
// Debug level: SQL queries with execution timing and poll loop lifecycle (development use)
// Info level: query completions with entity counts and durations (production-safe)
// Warn level: non-critical issues like row cleanup failures
// Error level: query build and execution failures.
func WithLogger(logger livequery.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine. It receives
// the same messages as the plain logger with context for automatic trace
// correlation when tracing is enabled.
func WithContextualLogger(logger livequery.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine. It receives query
// durations and error counts labeled by namespace.
func WithMetrics(collector livequery.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine. It receives a span
// per one-shot query.
func WithTracing(collector livequery.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
