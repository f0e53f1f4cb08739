package mirror

import (
	"sync"
	"time"
)

// Scheduler coalesces paint requests: at most one is pending at any time.
type Scheduler interface {
	// Request schedules fn for the next tick. It returns false, and drops fn,
	// when a request is already pending. fn never runs on the caller's goroutine.
	Request(fn func()) bool
	// Cancel drops the pending request. A cancelled fn never runs.
	Cancel()
}

// TimerScheduler fires pending requests on a fixed cadence, like a display refresh.
type TimerScheduler struct {
	interval time.Duration
	now      func() time.Time

	locker     sync.Locker
	timer      *time.Timer
	pending    bool
	generation uint64
	lastTick   time.Time
}

func NewTimerScheduler(frameRate float64) *TimerScheduler {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &TimerScheduler{
		interval: time.Duration(float64(time.Second) / frameRate),
		now:      time.Now,
		locker:   &sync.Mutex{},
	}
}

func (s *TimerScheduler) Interval() time.Duration {
	return s.interval
}

func (s *TimerScheduler) Request(fn func()) bool {
	s.locker.Lock()
	defer s.locker.Unlock()

	if s.pending {
		return false
	}

	s.pending = true
	generation := s.generation

	delay := s.interval - s.now().Sub(s.lastTick)
	if delay < 0 {
		delay = 0
	}

	s.timer = time.AfterFunc(delay, func() {
		s.locker.Lock()
		if generation != s.generation || !s.pending {
			s.locker.Unlock()
			return
		}
		s.pending = false
		s.lastTick = s.now()
		s.locker.Unlock()

		fn()
	})

	return true
}

func (s *TimerScheduler) Cancel() {
	s.locker.Lock()
	defer s.locker.Unlock()

	s.generation++
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *TimerScheduler) Pending() bool {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.pending
}
