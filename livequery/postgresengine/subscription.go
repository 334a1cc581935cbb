package postgresengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/technoplato/sharing-instant-sub003/livequery"
)

const (
	logMsgSubscriptionStarted = "subscription poll loop started"
	logMsgSubscriptionStopped = "subscription poll loop stopped"
	logMsgPollFailed          = "subscription poll failed"
	logAttrPollInterval       = "poll_interval"
)

// Subscribe implements livequery.Upstream. The subscription delivers an
// initial snapshot, then re-runs the query on every poll interval tick and on
// every change-feed wake, delivering only when the result digest changed. A
// failing poll delivers the error and ends the subscription; the registry
// layer above treats that as terminal.
func (e *Engine) Subscribe(
	ctx context.Context,
	scope livequery.ScopeID,
	config livequery.QueryConfiguration,
) (livequery.UpstreamSubscription, error) {

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	wake, unregister := e.notifier.register()

	sub := &subscription{
		deliveries: make(chan livequery.Delivery, 1),
		cancel:     cancel,
		unregister: unregister,
	}

	e.logDebug(ctx, logMsgSubscriptionStarted,
		logAttrNamespace, config.Namespace(),
		logAttrPollInterval, e.pollInterval.String())

	go e.poll(subCtx, sub, scope, config, wake)

	return sub, nil
}

// poll owns the subscription's delivery channel: it closes it on exit, after
// either cancellation or a terminal error.
func (e *Engine) poll(
	ctx context.Context,
	sub *subscription,
	scope livequery.ScopeID,
	config livequery.QueryConfiguration,
	wake <-chan struct{},
) {

	defer close(sub.deliveries)
	defer e.logDebug(ctx, logMsgSubscriptionStopped, logAttrNamespace, config.Namespace())

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	lastDigest := ""

	for {
		entities, err := e.fetch(ctx, scope, config)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			e.logError(ctx, logMsgPollFailed, logAttrError, err.Error(), logAttrNamespace, config.Namespace())
			sub.send(ctx, livequery.Delivery{Err: err})

			return
		}

		digest := resultDigest(entities)
		if digest != lastDigest {
			lastDigest = digest
			if !sub.send(ctx, livequery.Delivery{Values: entities}) {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
	}
}

// resultDigest computes a canonical digest of a result set for change
// suppression. Key-sorted JSON keeps the digest independent of map iteration
// order.
func resultDigest(entities livequery.Entities) string {
	data, err := payloadJSON.Marshal(entities)
	if err != nil {
		// an unmarshalable result never equals the previous digest
		return ""
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// subscription is one open poll loop handed out by Subscribe.
type subscription struct {
	deliveries chan livequery.Delivery
	cancel     context.CancelFunc
	unregister func()
	once       sync.Once
}

// Deliveries implements livequery.UpstreamSubscription.
func (s *subscription) Deliveries() <-chan livequery.Delivery {
	return s.deliveries
}

// Cancel implements livequery.UpstreamSubscription. Safe to call repeatedly.
func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.unregister()
		s.cancel()
	})
}

// send delivers without ever blocking past cancellation.
func (s *subscription) send(ctx context.Context, delivery livequery.Delivery) bool {
	select {
	case s.deliveries <- delivery:
		return true
	case <-ctx.Done():
		return false
	}
}

/***** change-feed fan-out *****/

// notifier fans one change feed out to every open subscription. Wakes are
// best-effort: a subscription that is mid-poll already observes the change.
type notifier struct {
	mu          sync.Mutex
	subscribers map[int]chan struct{}
	nextID      int
}

func newNotifier() *notifier {
	return &notifier{subscribers: make(map[int]chan struct{})}
}

func (n *notifier) register() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	ch := make(chan struct{}, 1)
	n.subscribers[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subscribers, id)
	}
}

func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subscribers {
		select {
		case ch <- struct{}{}:
		default: // a pending wake is already enough
		}
	}
}
