package graphview

import (
	"sync"
	"time"
)

// DefaultDebounce is the trailing quiet window for coalescing filter input
// from continuous sources such as sliders and keystrokes.
const DefaultDebounce = 500 * time.Millisecond

// Scheduler coalesces rapid filter triggers: a recomputation runs only after
// no new trigger has arrived for a full window, and a superseding trigger
// replaces the pending one.
type Scheduler struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	stopped bool
	run     func(Criteria)
}

// NewScheduler creates a scheduler that invokes run with the most recent
// criteria once the quiet window elapses.
func NewScheduler(window time.Duration, run func(Criteria)) *Scheduler {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Scheduler{window: window, run: run}
}

// Trigger records new criteria and restarts the quiet window.
func (s *Scheduler) Trigger(c Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, func() {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			s.run(c)
		}
	})
}

// Stop cancels any pending recomputation. The scheduler cannot be reused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
