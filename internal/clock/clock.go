package clock

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled callback. It is safe to call more than once
// and after the callback has run.
type CancelFunc func()

// Scheduler is the time source for everything that waits: cache staleness,
// garbage collection, retry backoff and polling.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) CancelFunc
}

type realScheduler struct{}

func Real() Scheduler {
	return realScheduler{}
}

func (realScheduler) Now() time.Time {
	return time.Now()
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(d, fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			timer.Stop()
		})
	}
}

// Sleep blocks for d on sched or until done is closed. It reports whether
// the full duration elapsed.
func Sleep(sched Scheduler, d time.Duration, done <-chan struct{}) bool {
	if d <= 0 {
		return true
	}
	fired := make(chan struct{})
	cancel := sched.AfterFunc(d, func() {
		close(fired)
	})
	select {
	case <-fired:
		return true
	case <-done:
		cancel()
		return false
	}
}
