package hotspot

import "time"

// newUnstartedActivationTask builds a task without starting it and hands back
// the start function and the token so callers can interleave cancellation with
// the start. run starts the task on a new goroutine and returns a channel that
// is closed once the task has settled (cancelled or completed).
func newUnstartedActivationTask(id int, sched Scheduler, delay time.Duration, started func(int)) (*activationTask, func() <-chan struct{}, *cancelToken) {
	token := newCancelToken()
	t := newActivationTask(id, token, sched, delay, started, func(int) {})
	run := func() <-chan struct{} {
		go t.start()
		return t.settled
	}
	return t, run, token
}

// done reports whether the timer has claimed the task.
func (t *activationTask) done() bool {
	t.token.mu.Lock()
	defer t.token.mu.Unlock()
	return t.token.fired
}
