package hotspot

import (
	"log"
	"sync"
)

// Handler is the activation state machine. It holds a single slot: at most one
// hotspot is ever activating, active or deactivating.
//
// Transitions for the slot:
//
//	None         --press(id)-->              Activating   (HotspotActivating)
//	Activating   --ActivationTime-->         Active       (HotspotActivated)
//	Activating   --unpress(id)-->            None         (settled)
//	Active       --unpress(id)-->            Deactivating (HotspotDeactivating)
//	Deactivating --DeactivationTime-->       None         (settled)
//	Deactivating --press(id)-->              Active       (settled)
//	Active|Deactivating --press(other)-->    None, then Activating(other)
//	                                          (HotspotForcefullyDeactivated, HotspotActivating; Preempt only)
//	any          --select(id)-->             Active       (slot cleared first, then HotspotActivated)
type Handler struct {
	cfg       Config
	sched     Scheduler
	known     map[int]struct{}
	listeners listenerSet

	mu              sync.Mutex
	current         int
	state           State
	task            *activationTask
	deactivation    Timer
	deactivationSeq uint64
	disposed        bool
}

// NewHandler creates a handler accepting signals for the given hotspot ids.
// An empty ids slice accepts any non-negative id.
func NewHandler(cfg Config, sched Scheduler, ids []int) *Handler {
	if sched == nil {
		sched = RealScheduler()
	}
	h := &Handler{
		cfg:     cfg.withDefaults(),
		sched:   sched,
		current: -1,
	}
	if len(ids) > 0 {
		h.known = make(map[int]struct{}, len(ids))
		for _, id := range ids {
			h.known[id] = struct{}{}
		}
	}
	return h
}

// Config returns the effective timing and policy.
func (h *Handler) Config() Config {
	return h.cfg
}

// Subscribe registers l for lifecycle events.
func (h *Handler) Subscribe(l Listener) Subscription {
	return h.listeners.add(l)
}

// OnHotspotPressed handles a press signal. It never blocks on a timer.
func (h *Handler) OnHotspotPressed(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pressLocked(id)
}

func (h *Handler) pressLocked(id int) {
	if h.disposed || !h.isKnown(id) {
		return
	}

	switch h.state {
	case StateNone:
		h.beginActivationLocked(id)

	case StateActivating:
		if h.current != id {
			log.Printf("hotspot: ignoring press %d while %d is activating", id, h.current)
			return
		}
		// A release that lost the race is undone by pressing again.
		h.task.releasePending = false

	case StateActive:
		if h.current == id {
			return
		}
		if !h.cfg.Preempt {
			log.Printf("hotspot: ignoring press %d while %d is active", id, h.current)
			return
		}
		h.forceLocked()
		h.beginActivationLocked(id)

	case StateDeactivating:
		if h.current == id {
			h.stopDeactivationLocked()
			h.state = StateActive
			h.listeners.settle(id, StateActive)
			return
		}
		if !h.cfg.Preempt {
			log.Printf("hotspot: ignoring press %d while %d is deactivating", id, h.current)
			return
		}
		h.forceLocked()
		h.beginActivationLocked(id)
	}
}

// OnHotspotUnpressed handles an unpress signal. Signals for ids other than the
// current one are no-ops.
func (h *Handler) OnHotspotUnpressed(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unpressLocked(id)
}

func (h *Handler) unpressLocked(id int) {
	if h.disposed || h.current != id {
		return
	}

	switch h.state {
	case StateActivating:
		t := h.task
		if !t.cancel() {
			// Completion won the race; replay the unpress once it lands.
			t.releasePending = true
			return
		}
		log.Printf("hotspot: activation of %d cancelled after %v", id, t.elapsed())
		h.task = nil
		h.clearLocked()
		h.listeners.settle(id, StateNone)

	case StateActive:
		h.beginDeactivationLocked()
	}
}

// Reset clears the slot immediately. An active or deactivating hotspot is
// forcefully deactivated; an activating one is cancelled.
func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.resetLocked()
}

func (h *Handler) resetLocked() {
	switch h.state {
	case StateActivating:
		id := h.current
		// If the timer already claimed the task, cancel fails, but the
		// completion finds h.task changed and drops itself: Reset still wins
		// and no HotspotActivated follows.
		h.task.cancel()
		h.task = nil
		h.clearLocked()
		h.listeners.settle(id, StateNone)
	case StateActive, StateDeactivating:
		h.forceLocked()
	}
}

// HotspotSelected makes id Active at once, skipping the activation delay. It
// is the single-shot signal from camera-driven detectors. Whatever else holds
// the slot is cleared first, as Reset would, so Preempt does not apply.
// Selecting the active hotspot is a no-op; selecting a deactivating or
// activating one completes it.
func (h *Handler) HotspotSelected(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed || !h.isKnown(id) {
		return
	}

	if h.current == id {
		switch h.state {
		case StateActive:
			return
		case StateDeactivating:
			h.stopDeactivationLocked()
			h.state = StateActive
			h.listeners.settle(id, StateActive)
			return
		case StateActivating:
			t := h.task
			t.cancel()
			h.task = nil
			h.state = StateActive
			h.listeners.emit(eventActivated, id)
			if t.releasePending {
				h.beginDeactivationLocked()
			}
			return
		}
	}

	h.resetLocked()
	h.current = id
	h.state = StateActive
	h.listeners.emit(eventActivated, id)
}

// Current returns the id and state occupying the slot. ok is false when the
// slot is empty.
func (h *Handler) Current() (id int, state State, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateNone {
		return -1, StateNone, false
	}
	return h.current, h.state, true
}

// State returns the lifecycle state of id.
func (h *Handler) State(id int) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != id {
		return StateNone
	}
	return h.state
}

// Dispose cancels outstanding timers, ignores further signals and drops all
// listeners. Calling it again is a no-op.
func (h *Handler) Dispose() {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	h.disposed = true
	if h.task != nil {
		h.task.cancel()
		h.task = nil
	}
	h.stopDeactivationLocked()
	h.clearLocked()
	h.mu.Unlock()

	h.listeners.clear()
}

func (h *Handler) isKnown(id int) bool {
	if id < 0 {
		return false
	}
	if h.known == nil {
		return true
	}
	if _, ok := h.known[id]; !ok {
		log.Printf("hotspot: ignoring signal for unknown id %d", id)
		return false
	}
	return true
}

func (h *Handler) beginActivationLocked(id int) {
	h.current = id
	h.state = StateActivating

	var t *activationTask
	t = newActivationTask(id, newCancelToken(), h.sched, h.cfg.ActivationTime,
		func(id int) { h.listeners.emit(eventActivating, id) },
		func(int) { h.activationCompleted(t) },
	)
	h.task = t
	t.start()
}

// activationCompleted runs on the scheduler's goroutine once a task fires.
func (h *Handler) activationCompleted(t *activationTask) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed || h.task != t {
		return
	}
	h.task = nil

	// The slot holds the activating task, so any previously active hotspot was
	// already forcefully deactivated when this press preempted it.
	h.current = t.id
	h.state = StateActive
	h.listeners.emit(eventActivated, t.id)

	if t.releasePending {
		h.beginDeactivationLocked()
	}
}

func (h *Handler) beginDeactivationLocked() {
	id := h.current
	h.state = StateDeactivating
	h.listeners.emit(eventDeactivating, id)

	h.deactivationSeq++
	seq := h.deactivationSeq
	h.deactivation = h.sched.AfterFunc(h.cfg.DeactivationTime, func() {
		h.deactivationElapsed(seq)
	})
}

func (h *Handler) deactivationElapsed(seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed || seq != h.deactivationSeq || h.state != StateDeactivating {
		return
	}
	id := h.current
	h.deactivation = nil
	h.clearLocked()
	h.listeners.settle(id, StateNone)
}

func (h *Handler) stopDeactivationLocked() {
	if h.deactivation != nil {
		h.deactivation.Stop()
		h.deactivation = nil
	}
	// A callback that already started will see a stale sequence number.
	h.deactivationSeq++
}

// forceLocked clears an active or deactivating slot and announces it.
func (h *Handler) forceLocked() {
	id := h.current
	h.stopDeactivationLocked()
	h.clearLocked()
	h.listeners.emit(eventForcefullyDeactivated, id)
}

func (h *Handler) clearLocked() {
	h.current = -1
	h.state = StateNone
}
