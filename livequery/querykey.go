package livequery

import (
	"context"
	"errors"
	"sync"
)

// LoadReason states the caller's intent behind a one-shot load. Only an
// explicit refresh contacts the network; passive restoration resolves to the
// value already at hand.
type LoadReason int

const (
	// LoadReasonRestore resolves instantly to the current or default value,
	// e.g. when state is being restored from a cache rather than requested.
	LoadReasonRestore LoadReason = iota

	// LoadReasonRefresh is the explicit "user asked for fresh data" intent.
	LoadReasonRefresh
)

// String provides a string representation of LoadReason for logging and debugging.
func (r LoadReason) String() string {
	switch r {
	case LoadReasonRestore:
		return "restore"
	case LoadReasonRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// QueryKey is the per-observer facade over one query: the unit an individual
// binding holds. It computes the query's CanonicalKey once, offers the
// one-shot load contract and the continuous subscribe contract, and delegates
// subscription sharing to the environment's SubscriptionRegistry.
//
// A QueryKey may be constructed without a configuration; loads and subscribes
// then resolve to the current or default value without contacting the
// network. That is a deliberate no-op contract, not an error.
type QueryKey struct {
	env    *Environment
	config *QueryConfiguration
	scope  ScopeID
	key    CanonicalKey
	resume ResumeFunc

	mu             sync.Mutex
	current        Entities
	loadGeneration uint64
	loadCancel     context.CancelFunc
}

// KeyOption defines a functional option for configuring a QueryKey.
type KeyOption func(*QueryKey) error

// WithKeyScope overrides the environment's default scope for this key only.
func WithKeyScope(scope ScopeID) KeyOption {
	return func(k *QueryKey) error {
		if scope.IsZero() {
			return ErrZeroScope
		}

		k.scope = scope

		return nil
	}
}

// WithResume installs the presentation hook every delivery of this key is
// wrapped through, keeping animation concerns out of the dedup layer.
func WithResume(resume ResumeFunc) KeyOption {
	return func(k *QueryKey) error {
		k.resume = resume
		return nil
	}
}

// WithDefaultValues sets the value resolved before anything has been loaded
// or delivered.
func WithDefaultValues(values Entities) KeyOption {
	return func(k *QueryKey) error {
		k.current = values
		return nil
	}
}

// NewQueryKey creates a key for a configuration within an environment. Pass a
// nil configuration for the deliberate no-op contract.
func NewQueryKey(env *Environment, config *QueryConfiguration, options ...KeyOption) (*QueryKey, error) {
	if env == nil {
		return nil, ErrNilEnvironment
	}

	k := &QueryKey{
		env:   env,
		scope: env.Scope(),
	}

	if config != nil {
		configCopy := *config
		k.config = &configCopy
	}

	for _, option := range options {
		if err := option(k); err != nil {
			return nil, err
		}
	}

	if k.config != nil {
		key, err := DeriveCanonicalKey(k.scope, *k.config)
		if err != nil {
			return nil, err
		}
		k.key = key
	}

	return k, nil
}

// Key returns the canonical identity of this key's query. The zero value is
// returned for configuration-less keys.
func (k *QueryKey) Key() CanonicalKey {
	return k.key
}

// CurrentValues returns the most recently applied result set.
func (k *QueryKey) CurrentValues() Entities {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.current
}

// Load performs the one-shot contract: fetch exactly one snapshot, then detach.
//
// Short circuits, in order: without a configuration or without refresh intent
// it resolves to the current value immediately; with a testing fixture it
// resolves with the fixture and never touches the network; in test mode
// without a fixture it resolves to the current value. Otherwise it asks the
// upstream for exactly one result.
//
// A Load that is re-triggered while a previous one is still in flight
// supersedes it: the stale attempt is cancelled and its late result, should
// it still arrive, is discarded, never applied. A superseded or cancelled
// load resolves quietly to the current value; cancellation is not an error to
// the cancelling caller.
func (k *QueryKey) Load(ctx context.Context, reason LoadReason) (Entities, error) {
	if k.config == nil || reason != LoadReasonRefresh {
		return k.CurrentValues(), nil
	}

	if fixture, ok := k.config.TestingValue(); ok {
		k.setCurrent(fixture)
		return fixture, nil
	}

	if k.env.TestMode() {
		return k.CurrentValues(), nil
	}

	ctx, span := k.env.startSpan(ctx, spanNameLoad, map[string]string{
		logAttrNamespace: k.config.Namespace(),
		logAttrKeyHash:   k.key.Hash(),
	})

	k.mu.Lock()
	if k.loadCancel != nil {
		k.loadCancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	k.loadCancel = cancel
	k.loadGeneration++
	generation := k.loadGeneration
	k.mu.Unlock()

	defer cancel()

	values, err := k.env.upstream.QueryOnce(loadCtx, k.scope, *k.config)

	k.mu.Lock()
	stale := generation != k.loadGeneration
	if !stale {
		k.loadCancel = nil
		if err == nil {
			k.current = values
		}
	}
	k.mu.Unlock()

	if stale || errors.Is(err, context.Canceled) {
		k.env.finishSpan(span, statusSuperseded, nil)
		return k.CurrentValues(), nil
	}

	if err != nil {
		k.env.finishSpan(span, statusError, map[string]string{logAttrError: err.Error()})
		return nil, errors.Join(ErrLoadingOnceFailed, err)
	}

	k.env.finishSpan(span, statusOK, nil)

	return values, nil
}

// Subscribe performs the continuous contract: every delivered value reaches
// onValues, in upstream order, for the lifetime of the binding. The returned
// cancel detaches the observer; calling it more than once is harmless, and
// cancelling this observer never disturbs siblings sharing the same key.
//
// The same short circuits as Load apply: a testing fixture yields exactly
// once and the returned canceller is a no-op (no further values will ever
// arrive); without a configuration, or in test mode without a fixture, the
// current value is delivered once.
func (k *QueryKey) Subscribe(
	ctx context.Context,
	onValues func(Entities),
	onError func(error),
) (cancel func(), err error) {

	if k.config == nil {
		k.dispatchCurrent(onValues)
		return func() {}, nil
	}

	if fixture, ok := k.config.TestingValue(); ok {
		k.setCurrent(fixture)
		k.dispatchValues(onValues, fixture)

		return func() {}, nil
	}

	if k.env.TestMode() {
		k.dispatchCurrent(onValues)
		return func() {}, nil
	}

	observer := Observer{
		OnValues: func(values Entities) {
			k.setCurrent(values)
			if onValues != nil {
				onValues(values)
			}
		},
		OnError: onError,
		Resume:  k.resume,
	}

	handle, acquireErr := k.env.Registry().Acquire(ctx, k.key, k.scope, *k.config, observer)
	if acquireErr != nil {
		return nil, acquireErr
	}

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			k.env.Registry().Release(handle)
		})
	}

	return cancel, nil
}

func (k *QueryKey) setCurrent(values Entities) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.current = values
}

func (k *QueryKey) dispatchCurrent(onValues func(Entities)) {
	k.dispatchValues(onValues, k.CurrentValues())
}

func (k *QueryKey) dispatchValues(onValues func(Entities), values Entities) {
	if onValues == nil {
		return
	}

	k.env.dispatcher.Dispatch(func() {
		apply := func() {
			onValues(values)
		}

		if k.resume != nil {
			k.resume(apply)
		} else {
			apply()
		}
	})
}
