package livequery

import (
	"context"
)

// Upstream is the capability surface this layer consumes from the surrounding
// database client. It is deliberately narrow: a continuous subscription and a
// one-shot query. Wire protocol, storage representation, and retry policy all
// live behind this interface; this layer only multiplexes and caches.
type Upstream interface {
	// Subscribe opens a continuous subscription for the configuration within
	// the scope. Results and the terminal error, if any, arrive on the
	// returned subscription's delivery channel.
	Subscribe(ctx context.Context, scope ScopeID, config QueryConfiguration) (UpstreamSubscription, error)

	// QueryOnce fetches a single snapshot of the query's results.
	QueryOnce(ctx context.Context, scope ScopeID, config QueryConfiguration) (Entities, error)
}

// UpstreamSubscription is one live upstream stream of result sets.
type UpstreamSubscription interface {
	// Deliveries returns the channel results arrive on. The channel is closed
	// after cancellation or after a terminal error delivery.
	Deliveries() <-chan Delivery

	// Cancel stops the subscription. It must be idempotent; calling it twice
	// is harmless.
	Cancel()
}
