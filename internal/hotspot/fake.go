package hotspot

import (
	"sort"
	"sync"
	"time"
)

// FakeScheduler is a test double with a manually advanced clock.
// Due callbacks run synchronously on the goroutine calling Advance, in
// deadline order (scheduling order for equal deadlines).
type FakeScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *FakeScheduler
	when    time.Time
	seq     int
	f       func()
	pending bool
}

// NewFakeScheduler creates a FakeScheduler whose clock starts at start.
func NewFakeScheduler(start time.Time) *FakeScheduler {
	return &FakeScheduler{now: start}
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{s: s, when: s.now.Add(d), seq: s.seq, f: f, pending: true}
	s.timers = append(s.timers, t)
	return t
}

// Now returns the virtual time.
func (s *FakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward by d, running every callback that falls due.
// Callbacks scheduled by other callbacks run too if they fall inside the window.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	for {
		next := s.nextDueLocked(target)
		if next == nil {
			break
		}
		next.pending = false
		s.now = next.when
		s.mu.Unlock()
		next.f()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}

// Pending returns the number of callbacks that have not run or been stopped.
func (s *FakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.pending {
			n++
		}
	}
	return n
}

func (s *FakeScheduler) nextDueLocked(target time.Time) *fakeTimer {
	live := s.timers[:0]
	for _, t := range s.timers {
		if t.pending {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		if !s.timers[i].when.Equal(s.timers[j].when) {
			return s.timers[i].when.Before(s.timers[j].when)
		}
		return s.timers[i].seq < s.timers[j].seq
	})
	if len(s.timers) == 0 || s.timers[0].when.After(target) {
		return nil
	}
	return s.timers[0]
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if !t.pending {
		return false
	}
	t.pending = false
	return true
}
