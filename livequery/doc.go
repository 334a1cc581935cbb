// Package livequery keeps UI-facing state synchronized with a remote realtime
// database through a small set of declarative keys.
//
// The package is the query identity and subscription-deduplication layer: it
// turns an arbitrary, possibly nested, possibly filtered query description
// into a canonical hashable identity, and multiplexes many logical observers
// of "the same" query onto one live upstream subscription per identity.
//
// Key types:
//   - QueryConfiguration: immutable description of what to fetch
//   - CanonicalKey: deterministic identity derived from a configuration plus a scope
//   - SubscriptionRegistry: one upstream subscription per key, fan-out, reference counting
//   - QueryKey: per-observer facade with one-shot load and continuous subscribe
//
// Common usage pattern:
//
//	config, err := livequery.BuildQueryConfiguration("todos").
//		Where("done", false).
//		OrderedBy("createdAt", true).
//		Including(livequery.Link("owner")).
//		Finalize()
//	if err != nil {
//		// handle error
//	}
//
//	env, err := livequery.NewEnvironment(upstream)
//	key, err := livequery.NewQueryKey(env, &config)
//
//	cancel, err := key.Subscribe(ctx, func(values livequery.Entities) {
//		// render values
//	}, func(err error) {
//		// surface the terminal error
//	})
//	defer cancel()
//
// The surrounding client (transport, storage engine, auth) is consumed through
// the narrow Upstream interface; postgresengine provides a reference
// implementation.
package livequery
