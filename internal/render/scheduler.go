package render

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultFrameInterval approximates one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameScheduler defers work to the next frame. Tasks queued under the
// same key within one frame coalesce: only the last one runs.
type FrameScheduler struct {
	clock    clock.Clock
	interval time.Duration

	mu      sync.Mutex
	order   []string
	pending map[string]func()
	timer   *clock.Timer
	frames  int
	stopped bool
}

// NewFrameScheduler creates a scheduler ticking on c.
func NewFrameScheduler(c clock.Clock, interval time.Duration) *FrameScheduler {
	if c == nil {
		c = clock.New()
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{
		clock:    c,
		interval: interval,
		pending:  make(map[string]func()),
	}
}

// Defer queues fn to run on the next frame under key.
func (s *FrameScheduler) Defer(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if _, ok := s.pending[key]; !ok {
		s.order = append(s.order, key)
	}
	s.pending[key] = fn
	if s.timer == nil {
		s.timer = s.clock.AfterFunc(s.interval, s.Flush)
	}
}

// Pending returns the number of queued tasks.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Frames returns how many frames have run.
func (s *FrameScheduler) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Flush runs every queued task now, in queue order.
func (s *FrameScheduler) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	order, pending := s.order, s.pending
	s.order, s.pending = nil, make(map[string]func())
	if len(order) > 0 {
		s.frames++
	}
	s.mu.Unlock()

	for _, key := range order {
		pending[key]()
	}
}

// Stop cancels queued work and rejects further tasks.
func (s *FrameScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.order, s.pending = nil, make(map[string]func())
}
