package livequery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/technoplato/sharing-instant-sub003/livequery"
	"github.com/technoplato/sharing-instant-sub003/testutil/testdoubles"
)

const waitTimeout = 2 * time.Second

// recorder collects deliveries for one observer so tests can wait on them.
type recorder struct {
	values chan livequery.Entities
	errs   chan error
}

func newRecorder() *recorder {
	return &recorder{
		values: make(chan livequery.Entities, 16),
		errs:   make(chan error, 16),
	}
}

func (r *recorder) observer() livequery.Observer {
	return livequery.Observer{
		OnValues: func(values livequery.Entities) { r.values <- values },
		OnError:  func(err error) { r.errs <- err },
	}
}

func (r *recorder) waitValues(t *testing.T) livequery.Entities {
	t.Helper()

	select {
	case values := <-r.values:
		return values
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a value delivery")
		return nil
	}
}

func (r *recorder) waitError(t *testing.T) error {
	t.Helper()

	select {
	case err := <-r.errs:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for an error delivery")
		return nil
	}
}

func (r *recorder) expectNoValues(t *testing.T, within time.Duration) {
	t.Helper()

	select {
	case values := <-r.values:
		t.Fatalf("expected no delivery, got %v", values)
	case <-time.After(within):
	}
}

func (r *recorder) expectNoErrors(t *testing.T, within time.Duration) {
	t.Helper()

	select {
	case err := <-r.errs:
		t.Fatalf("expected no error delivery, got %v", err)
	case <-time.After(within):
	}
}

func givenEnvironment(t *testing.T, stub *testdoubles.UpstreamStub, options ...livequery.Option) *livequery.Environment {
	t.Helper()

	options = append([]livequery.Option{livequery.WithDispatcher(livequery.DirectDispatcher{})}, options...)
	env, err := livequery.NewEnvironment(stub, options...)
	require.NoError(t, err)

	return env
}

func givenConfiguration(t *testing.T, builder livequery.ConfigurationBuilder) livequery.QueryConfiguration {
	t.Helper()

	config, err := builder.Finalize()
	require.NoError(t, err)

	return config
}

func someEntities(ids ...string) livequery.Entities {
	entities := make(livequery.Entities, 0, len(ids))
	for _, id := range ids {
		entities = append(entities, livequery.Entity{ID: id, Fields: map[string]any{"id": id}})
	}

	return entities
}
