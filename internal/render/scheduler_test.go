package render

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestFrameSchedulerCoalescesByKey(t *testing.T) {
	mock := clock.NewMock()
	s := NewFrameScheduler(mock, 16*time.Millisecond)

	var mu sync.Mutex
	var ran []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
		}
	}

	s.Defer("points", record("points-1"))
	s.Defer("labels", record("labels"))
	s.Defer("points", record("points-2"))
	assert.Equal(t, 2, s.Pending())

	mock.Add(10 * time.Millisecond)
	assert.Equal(t, 2, s.Pending())

	mock.Add(10 * time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ran) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, s.Frames())
	assert.Equal(t, []string{"points-2", "labels"}, ran)
	assert.Equal(t, 0, s.Pending())
}

func TestFrameSchedulerFlushAndStop(t *testing.T) {
	mock := clock.NewMock()
	s := NewFrameScheduler(mock, 0)

	calls := 0
	s.Defer("a", func() { calls++ })
	s.Flush()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, s.Frames())

	// The cancelled timer must not run an empty frame.
	mock.Add(DefaultFrameInterval)
	assert.Equal(t, 1, s.Frames())

	s.Defer("a", func() { calls++ })
	s.Stop()
	s.Defer("b", func() { calls++ })
	mock.Add(DefaultFrameInterval)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Pending())
}
