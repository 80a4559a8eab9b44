package hotspot

import (
	"sync"
	"time"
)

// cancelToken decides, under its own lock, whether an activation attempt
// completes or is cancelled. Exactly one of fired and cancelled ever becomes true.
type cancelToken struct {
	mu        sync.Mutex
	bound     bool
	cancelled bool
	fired     bool
}

func newCancelToken() *cancelToken {
	return &cancelToken{}
}

// cancelLocked marks the token cancelled unless the completion already claimed
// it. The caller must hold c.mu.
func (c *cancelToken) cancelLocked() bool {
	if c.fired {
		return false
	}
	c.cancelled = true
	return true
}

// activationTask is one in-flight attempt to activate a hotspot: a started
// callback run when the task starts, then a completed callback run after the
// delay unless the task is cancelled first.
type activationTask struct {
	id        int
	token     *cancelToken
	sched     Scheduler
	delay     time.Duration
	started   func(id int)
	completed func(id int)

	// Guarded by token.mu.
	timer     Timer
	startedAt time.Time

	settled    chan struct{}
	settleOnce sync.Once

	// releasePending records an unpress that lost the race against completion.
	// Guarded by the owning Handler's mutex.
	releasePending bool
}

// newActivationTask binds a fresh token to a new task. Binding a token that was
// already bound, cancelled or fired is a programming error and panics.
func newActivationTask(id int, token *cancelToken, sched Scheduler, delay time.Duration, started, completed func(int)) *activationTask {
	token.mu.Lock()
	if token.bound || token.cancelled || token.fired {
		token.mu.Unlock()
		panic("hotspot: activation task built from a used cancel token")
	}
	token.bound = true
	token.mu.Unlock()

	return &activationTask{
		id:        id,
		token:     token,
		sched:     sched,
		delay:     delay,
		started:   started,
		completed: completed,
		settled:   make(chan struct{}),
	}
}

// start runs the started callback and schedules completion. It returns false,
// without calling back, if the task was cancelled before it could start.
func (t *activationTask) start() bool {
	t.token.mu.Lock()
	defer t.token.mu.Unlock()

	if t.token.cancelled {
		t.settle()
		return false
	}
	t.started(t.id)
	t.startedAt = t.sched.Now()
	t.timer = t.sched.AfterFunc(t.delay, t.fire)
	return true
}

func (t *activationTask) fire() {
	t.token.mu.Lock()
	if t.token.cancelled || t.token.fired {
		t.token.mu.Unlock()
		return
	}
	t.token.fired = true
	t.token.mu.Unlock()

	// Once fired, cancellation has no effect; the completion runs outside the
	// token lock so it may take the handler's lock.
	t.completed(t.id)
	t.settle()
}

// cancel prevents completion. It returns false if the completion already
// claimed the task.
func (t *activationTask) cancel() bool {
	t.token.mu.Lock()
	defer t.token.mu.Unlock()

	if !t.token.cancelLocked() {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.settle()
	return true
}

// elapsed reports how long the task has been running.
func (t *activationTask) elapsed() time.Duration {
	t.token.mu.Lock()
	defer t.token.mu.Unlock()
	if t.startedAt.IsZero() {
		return 0
	}
	return t.sched.Now().Sub(t.startedAt)
}

func (t *activationTask) settle() {
	t.settleOnce.Do(func() { close(t.settled) })
}
