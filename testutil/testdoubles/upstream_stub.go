package testdoubles

import (
	"context"
	"sync"

	"github.com/technoplato/sharing-instant-sub003/livequery"
)

// UpstreamStub is a scripted livequery.Upstream implementation for tests.
// Subscriptions deliver whatever the test emits on them; one-shot queries are
// answered by a configurable function. All interactions are counted so tests
// can assert on sharing and teardown behavior.
type UpstreamStub struct {
	mu             sync.Mutex
	subscribeCalls int
	queryOnceCalls int
	subscribeErr   error
	queryOnceFn    func(config livequery.QueryConfiguration) (livequery.Entities, error)
	queryOnceGate  chan struct{}
	subscriptions  []*StubSubscription
}

// NewUpstreamStub creates a stub whose one-shot queries return an empty result set.
func NewUpstreamStub() *UpstreamStub {
	return &UpstreamStub{}
}

// FailSubscribeWith makes every following Subscribe call return err.
func (s *UpstreamStub) FailSubscribeWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribeErr = err
}

// AnswerQueryOnceWith scripts the response of following QueryOnce calls.
func (s *UpstreamStub) AnswerQueryOnceWith(fn func(config livequery.QueryConfiguration) (livequery.Entities, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queryOnceFn = fn
}

// BlockQueryOnce makes the next QueryOnce call wait until the returned
// release function is called or the caller's context is cancelled. Calls
// after that one proceed unblocked.
func (s *UpstreamStub) BlockQueryOnce() (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.queryOnceGate = gate
	s.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			close(gate)
		})
	}
}

// Subscribe implements livequery.Upstream.
func (s *UpstreamStub) Subscribe(
	_ context.Context,
	scope livequery.ScopeID,
	config livequery.QueryConfiguration,
) (livequery.UpstreamSubscription, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribeCalls++

	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}

	subscription := &StubSubscription{
		Scope:      scope,
		Config:     config,
		deliveries: make(chan livequery.Delivery, 64),
	}
	s.subscriptions = append(s.subscriptions, subscription)

	return subscription, nil
}

// QueryOnce implements livequery.Upstream.
func (s *UpstreamStub) QueryOnce(
	ctx context.Context,
	_ livequery.ScopeID,
	config livequery.QueryConfiguration,
) (livequery.Entities, error) {

	s.mu.Lock()
	s.queryOnceCalls++
	gate := s.queryOnceGate
	s.queryOnceGate = nil
	fn := s.queryOnceFn
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fn != nil {
		return fn(config)
	}

	return livequery.Entities{}, nil
}

// SubscribeCalls returns how many times Subscribe was called.
func (s *UpstreamStub) SubscribeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.subscribeCalls
}

// QueryOnceCalls returns how many times QueryOnce was called.
func (s *UpstreamStub) QueryOnceCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryOnceCalls
}

// Subscriptions returns every subscription handed out so far, in order.
func (s *UpstreamStub) Subscriptions() []*StubSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*StubSubscription(nil), s.subscriptions...)
}

// LastSubscription returns the most recently opened subscription, or nil.
func (s *UpstreamStub) LastSubscription() *StubSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subscriptions) == 0 {
		return nil
	}

	return s.subscriptions[len(s.subscriptions)-1]
}

// ActiveSubscriptions returns how many handed-out subscriptions have not been cancelled.
func (s *UpstreamStub) ActiveSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, subscription := range s.subscriptions {
		if subscription.CancelCalls() == 0 {
			active++
		}
	}

	return active
}

// StubSubscription is one handed-out upstream subscription under test control.
type StubSubscription struct {
	Scope  livequery.ScopeID
	Config livequery.QueryConfiguration

	mu          sync.Mutex
	deliveries  chan livequery.Delivery
	cancelled   bool
	cancelCalls int
}

// Deliveries implements livequery.UpstreamSubscription.
func (s *StubSubscription) Deliveries() <-chan livequery.Delivery {
	return s.deliveries
}

// Cancel implements livequery.UpstreamSubscription. Safe to call repeatedly.
func (s *StubSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelCalls++

	if !s.cancelled {
		s.cancelled = true
		close(s.deliveries)
	}
}

// Emit delivers a result set to the subscriber. Emissions after cancellation are dropped.
func (s *StubSubscription) Emit(values livequery.Entities) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return
	}

	s.deliveries <- livequery.Delivery{Values: values}
}

// Fail delivers a terminal error to the subscriber.
func (s *StubSubscription) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return
	}

	s.deliveries <- livequery.Delivery{Err: err}
}

// CancelCalls returns how many times Cancel was invoked.
func (s *StubSubscription) CancelCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancelCalls
}

// Ensure UpstreamStub implements livequery.Upstream.
var _ livequery.Upstream = (*UpstreamStub)(nil)
