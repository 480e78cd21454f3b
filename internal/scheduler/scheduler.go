package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs one-shot deferred actions keyed by an id. An action that has
// been cancelled before its timer fires never runs.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[uint64]*entry
	stopped bool
	log     *zap.Logger
}

type entry struct {
	timer *time.Timer
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{
		timers: make(map[uint64]*entry),
		log:    log.Named("scheduler"),
	}
}

// Schedule arms fn to run once after delay. Scheduling a key that is already
// armed replaces the earlier action.
func (s *Scheduler) Schedule(key uint64, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.log.Warn("schedule after stop ignored", zap.Uint64("key", key))
		return
	}
	if old, ok := s.timers[key]; ok {
		old.timer.Stop()
	}

	e := &entry{}
	e.timer = time.AfterFunc(delay, func() {
		if !s.claim(key, e) {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scheduled action panicked", zap.Uint64("key", key), zap.Any("panic", r))
			}
		}()
		fn()
	})
	s.timers[key] = e
}

// Cancel disarms key and reports whether an action was still pending.
func (s *Scheduler) Cancel(key uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	e.timer.Stop()
	return true
}

// Pending returns the number of armed actions.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms everything; later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, key)
	}
	s.stopped = true
}

// claim removes e from the table if it is still the current entry for key.
// A timer that lost the race against Cancel or a newer Schedule returns false.
func (s *Scheduler) claim(key uint64, e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.timers[key]; !ok || cur != e {
		return false
	}
	delete(s.timers, key)
	return true
}
