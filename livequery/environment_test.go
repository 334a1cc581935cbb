package livequery_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technoplato/sharing-instant-sub003/livequery"
	"github.com/technoplato/sharing-instant-sub003/testutil/testdoubles"
)

func Test_NewEnvironment_RequiresAnUpstream(t *testing.T) {
	_, err := livequery.NewEnvironment(nil)
	assert.ErrorIs(t, err, livequery.ErrNilUpstream)
}

func Test_NewEnvironment_RejectsZeroScope(t *testing.T) {
	_, err := livequery.NewEnvironment(testdoubles.NewUpstreamStub(), livequery.WithScope(livequery.ScopeID{}))
	assert.ErrorIs(t, err, livequery.ErrZeroScope)
}

func Test_NewEnvironment_GeneratesFreshScopesPerEnvironment(t *testing.T) {
	first, err := livequery.NewEnvironment(testdoubles.NewUpstreamStub())
	require.NoError(t, err)
	defer first.Close()

	second, err := livequery.NewEnvironment(testdoubles.NewUpstreamStub())
	require.NoError(t, err)
	defer second.Close()

	assert.False(t, first.Scope().IsZero())
	assert.NotEqual(t, first.Scope(), second.Scope())
}

func Test_Environment_ScopeOption_IsUsedByKeys(t *testing.T) {
	scope := livequery.NewScopeID()
	stub := testdoubles.NewUpstreamStub()
	env := givenEnvironment(t, stub, livequery.WithScope(scope))
	config := givenConfiguration(t, livequery.BuildQueryConfiguration("todos"))

	key := givenQueryKey(t, env, config)

	cancel, err := key.Subscribe(context.Background(), nil, nil)
	require.NoError(t, err)
	defer cancel()

	assert.Equal(t, scope, stub.LastSubscription().Scope)
}

func Test_Environment_Logs_SubscriptionLifecycle(t *testing.T) {
	stub := testdoubles.NewUpstreamStub()
	spy := testdoubles.NewLoggerSpy()
	env := givenEnvironment(t, stub, livequery.WithLogger(spy))
	config := givenConfiguration(t, livequery.BuildQueryConfiguration("todos"))

	handle1, _ := acquire(t, env, config, newRecorder().observer())
	handle2, _ := acquire(t, env, config, newRecorder().observer())
	env.Registry().Release(handle1)
	env.Registry().Release(handle2)

	messages := spy.MessagesAtLevel("debug")
	assert.Contains(t, messages, "upstream subscription opened")
	assert.Contains(t, messages, "upstream subscription shared")
	assert.Contains(t, messages, "upstream subscription closed")
}

func Test_Environment_ContextualLogger_TakesPrecedence(t *testing.T) {
	stub := testdoubles.NewUpstreamStub()
	plain := testdoubles.NewLoggerSpy()
	contextual := testdoubles.NewContextualLoggerSpy()
	env := givenEnvironment(t, stub,
		livequery.WithLogger(plain),
		livequery.WithContextualLogger(contextual))
	config := givenConfiguration(t, livequery.BuildQueryConfiguration("todos"))

	handle, _ := acquire(t, env, config, newRecorder().observer())
	env.Registry().Release(handle)

	assert.Empty(t, plain.MessagesAtLevel("debug"))
	assert.Contains(t, contextual.MessagesAtLevel("debug"), "upstream subscription opened")
}
