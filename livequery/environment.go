package livequery

import "context"

// Environment is the explicit dependency-injection object every QueryKey is
// constructed against. It carries the upstream client, the process-wide
// default scope, the test-mode flag, the delivery Dispatcher, and the
// observability hooks. Modeling the default scope here instead of as a
// package global is what lets tests substitute an isolated scope.
type Environment struct {
	upstream         Upstream
	scope            ScopeID
	testMode         bool
	dispatcher       Dispatcher
	ownsDispatcher   bool
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
	registry         *SubscriptionRegistry
}

// Option defines a functional option for configuring an Environment.
type Option func(*Environment) error

// WithScope sets the default scope used by keys that do not override it.
func WithScope(scope ScopeID) Option {
	return func(e *Environment) error {
		if scope.IsZero() {
			return ErrZeroScope
		}

		e.scope = scope

		return nil
	}
}

// WithTestMode makes every key of this environment bypass the network:
// fixtures resolve instantly and everything else resolves to the current or
// default value.
func WithTestMode() Option {
	return func(e *Environment) error {
		e.testMode = true
		return nil
	}
}

// WithDispatcher substitutes the delivery dispatcher. The environment will not
// close a caller-supplied dispatcher.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(e *Environment) error {
		e.dispatcher = dispatcher
		e.ownsDispatcher = false

		return nil
	}
}

// WithLogger sets the logger for registry lifecycle events.
//
// Debug level: per-key acquire/release and delivery counts (development use)
// Info level: subscription open/close (production-safe)
// Warn level: non-critical issues like dropped late deliveries
// Error level: upstream failures that tear an entry down.
func WithLogger(logger Logger) Option {
	return func(e *Environment) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger. It receives the same
// messages as the plain logger with context information for automatic
// trace/span correlation when tracing is enabled.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(e *Environment) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector. It will receive counters for
// subscriptions opened, shared, and closed, deliveries fanned out, and
// upstream errors, labeled by namespace and key hash.
func WithMetrics(collector MetricsCollector) Option {
	return func(e *Environment) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector. It receives a span per registry
// acquire and per one-shot load that contacts the upstream.
func WithTracing(collector TracingCollector) Option {
	return func(e *Environment) error {
		e.tracingCollector = collector
		return nil
	}
}

// NewEnvironment creates an Environment around an upstream client with
// optional configuration. A fresh random default scope and an owned
// SerialDispatcher are used unless options substitute them.
func NewEnvironment(upstream Upstream, options ...Option) (*Environment, error) {
	if upstream == nil {
		return nil, ErrNilUpstream
	}

	env := &Environment{
		upstream: upstream,
		scope:    NewScopeID(),
	}

	for _, option := range options {
		if err := option(env); err != nil {
			return nil, err
		}
	}

	if env.dispatcher == nil {
		env.dispatcher = NewSerialDispatcher()
		env.ownsDispatcher = true
	}

	env.registry = newSubscriptionRegistry(env)

	return env, nil
}

// Scope returns the default scope of this environment.
func (e *Environment) Scope() ScopeID {
	return e.scope
}

// TestMode reports whether network execution is bypassed.
func (e *Environment) TestMode() bool {
	return e.testMode
}

// Registry returns the subscription registry shared by all keys of this environment.
func (e *Environment) Registry() *SubscriptionRegistry {
	return e.registry
}

// Close stops the environment's owned dispatcher after draining queued
// deliveries. Callers that supplied their own dispatcher keep owning it.
func (e *Environment) Close() {
	if e.ownsDispatcher {
		if d, ok := e.dispatcher.(*SerialDispatcher); ok {
			d.Close()
		}
	}
}

// startSpan starts a tracing span if a tracing collector is configured.
func (e *Environment) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext) {
	if e.tracingCollector != nil {
		return e.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

// finishSpan finishes a tracing span if one was started.
func (e *Environment) finishSpan(span SpanContext, status string, attrs map[string]string) {
	if e.tracingCollector != nil && span != nil {
		e.tracingCollector.FinishSpan(span, status, attrs)
	}
}
