package livequery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	logMsgSubscriptionOpened  = "upstream subscription opened"
	logMsgSubscriptionShared  = "upstream subscription shared"
	logMsgSubscriptionClosed  = "upstream subscription closed"
	logMsgSubscriptionFailed  = "upstream subscription failed"
	logMsgOpenUpstreamFailed  = "failed to open upstream subscription"
	logAttrError              = "error"
	logAttrKeyHash            = "key_hash"
	logAttrNamespace          = "namespace"
	logAttrObserverCount      = "observer_count"
	metricSubscriptionsOpened = "livequery_subscriptions_opened_total"
	metricSubscriptionsShared = "livequery_subscriptions_shared_total"
	metricSubscriptionsClosed = "livequery_subscriptions_closed_total"
	metricSubscriptionErrors  = "livequery_subscription_errors_total"
	metricDeliveriesFannedOut = "livequery_deliveries_fanned_out_total"

	spanNameAcquire = "livequery.registry.acquire"
	spanNameLoad    = "livequery.querykey.load"
	spanAttrShared  = "shared"

	statusOK         = "ok"
	statusError      = "error"
	statusSuperseded = "superseded"
)

// ResumeFunc wraps the application of one delivery so that presentation
// concerns (e.g. animating the visual update) stay out of the identity and
// dedup logic. The hook must call apply exactly once, synchronously or not.
type ResumeFunc func(apply func())

// Observer is one logical consumer of a key's delivered values.
type Observer struct {
	OnValues func(Entities)
	OnError  func(error)
	Resume   ResumeFunc // optional presentation hook
}

// ObserverHandle identifies one registered observer for release.
type ObserverHandle struct {
	registry *SubscriptionRegistry
	key      CanonicalKey
	entry    *registryEntry
	id       uuid.UUID
	released atomic.Bool
}

// registryEntry is the shared state of one upstream subscription: the
// observers currently attached, the most recent delivery for late-joiner
// replay, and the closed flag that makes open/close transitions happen
// exactly once. All fields are guarded by mu.
type registryEntry struct {
	key           CanonicalKey
	mu            sync.Mutex
	observers     map[uuid.UUID]Observer
	upstream      UpstreamSubscription
	lastDelivered Entities
	hasDelivered  bool
	closed        bool
}

// SubscriptionRegistry multiplexes many logical observers onto one upstream
// subscription per unique CanonicalKey. It owns reference counting: the first
// Acquire for a key opens the upstream subscription, the last Release cancels
// it. Concurrent Acquire/Release for the same key are serialized on the
// entry's lock so the upstream is never double-opened or double-closed.
type SubscriptionRegistry struct {
	env     *Environment
	entries *xsync.MapOf[CanonicalKey, *registryEntry]
}

func newSubscriptionRegistry(env *Environment) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		env:     env,
		entries: xsync.NewMapOf[CanonicalKey, *registryEntry](),
	}
}

// Acquire registers an observer for a key, opening the upstream subscription
// if this is the key's first observer. If the entry has already delivered a
// value, that value is replayed to the new observer before anything newer, so
// late joiners never see a flash of empty state.
func (r *SubscriptionRegistry) Acquire(
	ctx context.Context,
	key CanonicalKey,
	scope ScopeID,
	config QueryConfiguration,
	observer Observer,
) (*ObserverHandle, error) {

	ctx, span := r.env.startSpan(ctx, spanNameAcquire, r.keyLabels(key))

	for {
		entry, _ := r.entries.LoadOrStore(key, &registryEntry{
			key:       key,
			observers: make(map[uuid.UUID]Observer),
		})

		entry.mu.Lock()

		if entry.closed {
			// Raced with the teardown of a dying entry; make sure it is gone
			// from the map and start over with a fresh one.
			entry.mu.Unlock()
			r.dropEntry(key, entry)
			continue
		}

		if entry.upstream == nil {
			upstream, err := r.env.upstream.Subscribe(ctx, scope, config)
			if err != nil {
				entry.closed = true
				entry.mu.Unlock()
				r.dropEntry(key, entry)
				r.logError(ctx, logMsgOpenUpstreamFailed, logAttrError, err.Error(), logAttrKeyHash, key.Hash())
				r.env.finishSpan(span, statusError, map[string]string{logAttrError: err.Error()})

				return nil, errors.Join(ErrOpeningSubscriptionFailed, err)
			}

			entry.upstream = upstream
			go r.pump(entry, upstream)

			r.countEvent(ctx, metricSubscriptionsOpened, key)
			r.logDebug(ctx, logMsgSubscriptionOpened, logAttrNamespace, key.Namespace(), logAttrKeyHash, key.Hash())
			r.env.finishSpan(span, statusOK, map[string]string{spanAttrShared: "false"})
		} else {
			r.countEvent(ctx, metricSubscriptionsShared, key)
			r.logDebug(ctx, logMsgSubscriptionShared, logAttrNamespace, key.Namespace(), logAttrKeyHash, key.Hash())
			r.env.finishSpan(span, statusOK, map[string]string{spanAttrShared: "true"})
		}

		handle := &ObserverHandle{
			registry: r,
			key:      key,
			entry:    entry,
			id:       uuid.New(),
		}
		entry.observers[handle.id] = observer

		if entry.hasDelivered {
			// Enqueued while still holding the entry lock: the replay lands in
			// the dispatcher FIFO before any delivery that arrives afterwards.
			r.dispatchValues(observer, entry.lastDelivered)
		}

		entry.mu.Unlock()

		return handle, nil
	}
}

// Release detaches an observer. It is idempotent; releasing an
// already-released handle is a no-op. When the last observer of a key
// detaches, the upstream subscription is cancelled exactly once and the entry
// is removed.
func (r *SubscriptionRegistry) Release(handle *ObserverHandle) {
	if handle == nil || !handle.released.CompareAndSwap(false, true) {
		return
	}

	entry := handle.entry

	entry.mu.Lock()

	if entry.closed {
		entry.mu.Unlock()
		return
	}

	delete(entry.observers, handle.id)
	remaining := len(entry.observers)

	if remaining > 0 {
		entry.mu.Unlock()
		return
	}

	entry.closed = true
	upstream := entry.upstream
	entry.mu.Unlock()

	if upstream != nil {
		upstream.Cancel()
	}
	r.dropEntry(handle.key, entry)

	r.countEvent(context.Background(), metricSubscriptionsClosed, handle.key)
	r.logDebug(context.Background(), logMsgSubscriptionClosed,
		logAttrNamespace, handle.key.Namespace(), logAttrKeyHash, handle.key.Hash())
}

// ObserverCount returns the number of observers currently attached to a key.
func (r *SubscriptionRegistry) ObserverCount(key CanonicalKey) int {
	entry, ok := r.entries.Load(key)
	if !ok {
		return 0
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		return 0
	}

	return len(entry.observers)
}

// ActiveEntries returns the number of keys with a live upstream subscription.
func (r *SubscriptionRegistry) ActiveEntries() int {
	return r.entries.Size()
}

// pump bridges one upstream subscription's deliveries into the dispatcher
// until the channel closes or a terminal error arrives.
func (r *SubscriptionRegistry) pump(entry *registryEntry, upstream UpstreamSubscription) {
	for delivery := range upstream.Deliveries() {
		if delivery.Err != nil {
			r.fail(entry, delivery.Err)
			return
		}

		r.deliver(entry, delivery.Values)
	}
}

func (r *SubscriptionRegistry) deliver(entry *registryEntry, values Entities) {
	entry.mu.Lock()

	if entry.closed {
		entry.mu.Unlock()
		return
	}

	entry.lastDelivered = values
	entry.hasDelivered = true

	for _, observer := range entry.observers {
		r.dispatchValues(observer, values)
	}
	fanout := len(entry.observers)

	entry.mu.Unlock()

	if fanout > 0 {
		r.countEvent(context.Background(), metricDeliveriesFannedOut, entry.key)
	}
}

// fail tears the entry down on an upstream error: the error reaches every
// current observer exactly once, the upstream is cancelled, and the entry is
// removed so the next Acquire starts from scratch. Errors are never cached.
func (r *SubscriptionRegistry) fail(entry *registryEntry, err error) {
	entry.mu.Lock()

	if entry.closed {
		entry.mu.Unlock()
		return
	}

	entry.closed = true
	observers := make([]Observer, 0, len(entry.observers))
	for _, observer := range entry.observers {
		observers = append(observers, observer)
	}
	entry.observers = nil
	upstream := entry.upstream

	entry.mu.Unlock()

	if upstream != nil {
		upstream.Cancel()
	}
	r.dropEntry(entry.key, entry)

	for _, observer := range observers {
		r.dispatchError(observer, err)
	}

	r.countEvent(context.Background(), metricSubscriptionErrors, entry.key)
	r.logError(context.Background(), logMsgSubscriptionFailed,
		logAttrError, err.Error(),
		logAttrNamespace, entry.key.Namespace(),
		logAttrKeyHash, entry.key.Hash(),
		logAttrObserverCount, len(observers))
}

// dropEntry removes entry from the map if it is still the one registered for
// key. A newer entry for the same key is left alone.
func (r *SubscriptionRegistry) dropEntry(key CanonicalKey, entry *registryEntry) {
	r.entries.Compute(key, func(current *registryEntry, loaded bool) (*registryEntry, bool) {
		if loaded && current != entry {
			return current, false
		}

		return nil, true
	})
}

func (r *SubscriptionRegistry) dispatchValues(observer Observer, values Entities) {
	r.env.dispatcher.Dispatch(func() {
		apply := func() {
			if observer.OnValues != nil {
				observer.OnValues(values)
			}
		}

		if observer.Resume != nil {
			observer.Resume(apply)
		} else {
			apply()
		}
	})
}

func (r *SubscriptionRegistry) dispatchError(observer Observer, err error) {
	r.env.dispatcher.Dispatch(func() {
		if observer.OnError != nil {
			observer.OnError(err)
		}
	})
}

func (r *SubscriptionRegistry) keyLabels(key CanonicalKey) map[string]string {
	return map[string]string{
		logAttrNamespace: key.Namespace(),
		logAttrKeyHash:   key.Hash(),
	}
}

// countEvent increments a counter, preferring the context-aware method when
// the configured collector supports it.
func (r *SubscriptionRegistry) countEvent(ctx context.Context, metric string, key CanonicalKey) {
	if r.env.metricsCollector == nil {
		return
	}

	if contextual, ok := r.env.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, r.keyLabels(key))
		return
	}

	r.env.metricsCollector.IncrementCounter(metric, r.keyLabels(key))
}

func (r *SubscriptionRegistry) logDebug(ctx context.Context, msg string, args ...any) {
	if r.env.contextualLogger != nil {
		r.env.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}

	if r.env.logger != nil {
		r.env.logger.Debug(msg, args...)
	}
}

func (r *SubscriptionRegistry) logError(ctx context.Context, msg string, args ...any) {
	if r.env.contextualLogger != nil {
		r.env.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}

	if r.env.logger != nil {
		r.env.logger.Error(msg, args...)
	}
}
