package livequery_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/technoplato/sharing-instant-sub003/livequery"
)

func Test_SerialDispatcher_RunsTasksInSubmissionOrder(t *testing.T) {
	dispatcher := livequery.NewSerialDispatcher()
	defer dispatcher.Close()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := range 100 {
		i := i
		dispatcher.Dispatch(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()

			if i == 99 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the dispatcher to drain")
	}

	mu.Lock()
	defer mu.Unlock()

	for i, got := range order {
		assert.Equal(t, i, got, "tasks must run strictly in submission order")
	}
}

func Test_SerialDispatcher_NeverRunsTasksConcurrently(t *testing.T) {
	dispatcher := livequery.NewSerialDispatcher()
	defer dispatcher.Close()

	var mu sync.Mutex
	running := 0
	maxRunning := 0
	done := make(chan struct{})

	for i := range 50 {
		i := i
		dispatcher.Dispatch(func() {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()

			if i == 49 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the dispatcher to drain")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxRunning)
}

func Test_SerialDispatcher_CloseDrainsPendingTasks(t *testing.T) {
	dispatcher := livequery.NewSerialDispatcher()

	var mu sync.Mutex
	ran := 0

	for range 20 {
		dispatcher.Dispatch(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}

	dispatcher.Close()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran == 20
	}, waitTimeout, 5*time.Millisecond, "tasks submitted before Close must still run")
}

func Test_SerialDispatcher_DispatchAfterCloseIsDropped(t *testing.T) {
	dispatcher := livequery.NewSerialDispatcher()
	dispatcher.Close()

	executed := false
	dispatcher.Dispatch(func() { executed = true })

	time.Sleep(50 * time.Millisecond)
	assert.False(t, executed)
}

func Test_DirectDispatcher_RunsInline(t *testing.T) {
	var order []string

	livequery.DirectDispatcher{}.Dispatch(func() { order = append(order, "task") })
	order = append(order, "after")

	assert.Equal(t, []string{"task", "after"}, order)
}
