package hotspot

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// recorder captures lifecycle events and settle notifications as strings.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recorder) HotspotActivating(a HotspotArgs) { r.add(fmt.Sprintf("activating:%d", a.ID)) }
func (r *recorder) HotspotActivated(a HotspotArgs)  { r.add(fmt.Sprintf("activated:%d", a.ID)) }
func (r *recorder) HotspotDeactivating(a HotspotArgs) {
	r.add(fmt.Sprintf("deactivating:%d", a.ID))
}
func (r *recorder) HotspotForcefullyDeactivated(a HotspotArgs) {
	r.add(fmt.Sprintf("forced:%d", a.ID))
}
func (r *recorder) HotspotSettled(a HotspotArgs, s State) {
	r.add(fmt.Sprintf("settled:%d:%s", a.ID, s))
}

// take returns and clears the recorded events.
func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func setupHandler(t *testing.T, cfg Config, ids ...int) (*Handler, *FakeScheduler, *recorder) {
	t.Helper()
	sched := NewFakeScheduler(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	h := NewHandler(cfg, sched, ids)
	rec := &recorder{}
	h.Subscribe(rec)
	t.Cleanup(h.Dispose)
	return h, sched, rec
}

func assertEvents(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events: got %v, want %v", got, want)
		}
	}
}

func assertState(t *testing.T, h *Handler, id int, want State) {
	t.Helper()
	if got := h.State(id); got != want {
		t.Errorf("state of %d: got %s, want %s", id, got, want)
	}
}

// activate drives id to the active state.
func activate(t *testing.T, h *Handler, sched *FakeScheduler, rec *recorder, id int) {
	t.Helper()
	h.OnHotspotPressed(id)
	sched.Advance(h.Config().ActivationTime)
	if h.State(id) != StateActive {
		t.Fatalf("failed to activate %d: state %s", id, h.State(id))
	}
	rec.take()
}

func TestNewHandlerDefaults(t *testing.T) {
	h := NewHandler(Config{}, nil, nil)
	cfg := h.Config()
	if cfg.ActivationTime != 5*time.Second {
		t.Errorf("ActivationTime: got %v, want 5s", cfg.ActivationTime)
	}
	if cfg.ForcefulDeactivationTime != 500*time.Millisecond {
		t.Errorf("ForcefulDeactivationTime: got %v, want 500ms", cfg.ForcefulDeactivationTime)
	}
	if cfg.DeactivationTime != DefaultDeactivationTime {
		t.Errorf("DeactivationTime: got %v, want %v", cfg.DeactivationTime, DefaultDeactivationTime)
	}
	if _, _, ok := h.Current(); ok {
		t.Error("new handler should have an empty slot")
	}
}

func TestPressActivatesAfterActivationTime(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1, 2)

	h.OnHotspotPressed(0)
	assertEvents(t, rec.take(), "activating:0")
	assertState(t, h, 0, StateActivating)
	assertState(t, h, 1, StateNone)
	assertState(t, h, 2, StateNone)

	sched.Advance(4900 * time.Millisecond)
	assertEvents(t, rec.take())
	assertState(t, h, 0, StateActivating)

	sched.Advance(100 * time.Millisecond)
	assertEvents(t, rec.take(), "activated:0")
	assertState(t, h, 0, StateActive)

	id, state, ok := h.Current()
	if !ok || id != 0 || state != StateActive {
		t.Errorf("Current: got (%d, %s, %v), want (0, ACTIVE, true)", id, state, ok)
	}
}

func TestDuplicatePressDoesNotRestartTimer(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1, 2)

	h.OnHotspotPressed(0)
	h.OnHotspotPressed(0)
	sched.Advance(3 * time.Second)
	h.OnHotspotPressed(0)
	sched.Advance(2 * time.Second)

	assertEvents(t, rec.take(), "activating:0", "activated:0")

	// Pressing an active hotspot is a no-op.
	h.OnHotspotPressed(0)
	sched.Advance(10 * time.Second)
	assertEvents(t, rec.take())
	assertState(t, h, 0, StateActive)
}

func TestUnpressBeforeActivationCancels(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1, 2)

	h.OnHotspotPressed(0)
	sched.Advance(time.Second)
	h.OnHotspotUnpressed(0)

	assertEvents(t, rec.take(), "activating:0", "settled:0:NONE")
	assertState(t, h, 0, StateNone)

	sched.Advance(10 * time.Second)
	assertEvents(t, rec.take())
	if sched.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", sched.Pending())
	}
}

func TestPressAfterCancelStartsFresh(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0)

	h.OnHotspotPressed(0)
	sched.Advance(4 * time.Second)
	h.OnHotspotUnpressed(0)
	h.OnHotspotPressed(0)
	sched.Advance(4 * time.Second)

	assertEvents(t, rec.take(), "activating:0", "settled:0:NONE", "activating:0")
	sched.Advance(time.Second)
	assertEvents(t, rec.take(), "activated:0")
}

func TestUnpressActiveDeactivates(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1, 2)
	activate(t, h, sched, rec, 0)

	h.OnHotspotUnpressed(0)
	assertEvents(t, rec.take(), "deactivating:0")
	assertState(t, h, 0, StateDeactivating)

	// Duplicate unpress is ignored.
	h.OnHotspotUnpressed(0)
	assertEvents(t, rec.take())

	sched.Advance(h.Config().DeactivationTime - time.Millisecond)
	assertState(t, h, 0, StateDeactivating)

	sched.Advance(time.Millisecond)
	assertEvents(t, rec.take(), "settled:0:NONE")
	assertState(t, h, 0, StateNone)
}

func TestRepressWhileDeactivatingRestoresActive(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1, 2)
	activate(t, h, sched, rec, 0)

	h.OnHotspotPressed(0)
	assertEvents(t, rec.take())

	h.OnHotspotUnpressed(0)
	sched.Advance(h.Config().DeactivationTime / 2)
	h.OnHotspotPressed(0)

	assertEvents(t, rec.take(), "deactivating:0", "settled:0:ACTIVE")
	assertState(t, h, 0, StateActive)

	sched.Advance(time.Minute)
	assertEvents(t, rec.take())
	assertState(t, h, 0, StateActive)
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1, 2)

	h.OnHotspotPressed(999)
	h.OnHotspotUnpressed(999)
	h.OnHotspotPressed(-1)
	sched.Advance(10 * time.Second)
	assertEvents(t, rec.take())
	for _, id := range []int{0, 1, 2} {
		assertState(t, h, id, StateNone)
	}

	activate(t, h, sched, rec, 0)
	h.OnHotspotPressed(999)
	h.OnHotspotUnpressed(999)
	h.OnHotspotUnpressed(1)
	sched.Advance(10 * time.Second)
	assertEvents(t, rec.take())
	assertState(t, h, 0, StateActive)
	assertState(t, h, 1, StateNone)
	assertState(t, h, 2, StateNone)
}

func TestPressOtherWhileActivatingIgnored(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1)

	h.OnHotspotPressed(0)
	sched.Advance(time.Second)
	h.OnHotspotPressed(1)
	h.OnHotspotUnpressed(1)
	sched.Advance(4 * time.Second)

	assertEvents(t, rec.take(), "activating:0", "activated:0")
	assertState(t, h, 1, StateNone)
}

func TestPreemptActive(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1)
	activate(t, h, sched, rec, 0)

	h.OnHotspotPressed(1)
	assertEvents(t, rec.take(), "forced:0", "activating:1")
	assertState(t, h, 0, StateNone)
	assertState(t, h, 1, StateActivating)

	// The old hotspot's release no longer matters.
	h.OnHotspotUnpressed(0)
	sched.Advance(h.Config().ActivationTime)
	assertEvents(t, rec.take(), "activated:1")
	assertState(t, h, 0, StateNone)
	assertState(t, h, 1, StateActive)
}

func TestPreemptDeactivating(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1)
	activate(t, h, sched, rec, 0)
	h.OnHotspotUnpressed(0)
	rec.take()

	h.OnHotspotPressed(1)
	assertEvents(t, rec.take(), "forced:0", "activating:1")

	// The stopped deactivation timer must not clear hotspot 1.
	sched.Advance(h.Config().DeactivationTime)
	assertEvents(t, rec.take())
	assertState(t, h, 1, StateActivating)
}

func TestNoPreemptIgnoresOtherPress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Preempt = false
	h, sched, rec := setupHandler(t, cfg, 0, 1)
	activate(t, h, sched, rec, 0)

	h.OnHotspotPressed(1)
	sched.Advance(time.Minute)
	assertEvents(t, rec.take())
	assertState(t, h, 0, StateActive)

	h.OnHotspotUnpressed(0)
	h.OnHotspotPressed(1)
	assertEvents(t, rec.take(), "deactivating:0")
	assertState(t, h, 1, StateNone)

	sched.Advance(h.Config().DeactivationTime)
	h.OnHotspotPressed(1)
	assertEvents(t, rec.take(), "settled:0:NONE", "activating:1")
}

func TestForcefulDeactivationIsTerminal(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1)
	activate(t, h, sched, rec, 0)

	h.OnHotspotPressed(1)
	h.OnHotspotUnpressed(1)
	sched.Advance(time.Minute)

	got := rec.take()
	assertEvents(t, got, "forced:0", "activating:1", "settled:1:NONE")
	for _, e := range got[1:] {
		if e == "deactivating:0" || e == "forced:0" {
			t.Errorf("unexpected event for hotspot 0 after forceful deactivation: %s", e)
		}
	}
}

func TestReset(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0)

	h.Reset()
	assertEvents(t, rec.take())

	h.OnHotspotPressed(0)
	h.Reset()
	sched.Advance(time.Minute)
	assertEvents(t, rec.take(), "activating:0", "settled:0:NONE")

	activate(t, h, sched, rec, 0)
	h.Reset()
	assertEvents(t, rec.take(), "forced:0")

	activate(t, h, sched, rec, 0)
	h.OnHotspotUnpressed(0)
	h.Reset()
	sched.Advance(time.Minute)
	assertEvents(t, rec.take(), "deactivating:0", "forced:0")
}

// claimCompletion holds the handler lock while the activation timer fires, so
// the task is claimed but its completion is blocked. fn runs with the lock
// held; the completion lands after it returns.
func claimCompletion(t *testing.T, h *Handler, sched *FakeScheduler, fn func()) {
	t.Helper()
	task := h.task
	h.mu.Lock()
	advanced := make(chan struct{})
	go func() {
		sched.Advance(h.cfg.ActivationTime)
		close(advanced)
	}()
	deadline := time.Now().Add(5 * time.Second)
	for !task.done() {
		if time.Now().After(deadline) {
			h.mu.Unlock()
			t.Fatal("timer never claimed the task")
		}
		time.Sleep(time.Millisecond)
	}
	fn()
	h.mu.Unlock()
	<-advanced
}

func TestResetWinsOverClaimedCompletion(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0)

	h.OnHotspotPressed(0)
	rec.take()

	claimCompletion(t, h, sched, h.resetLocked)

	assertEvents(t, rec.take(), "settled:0:NONE")
	assertState(t, h, 0, StateNone)
	if _, _, ok := h.Current(); ok {
		t.Error("slot should be empty after reset")
	}
}

func TestSelectFromIdle(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1)

	h.HotspotSelected(1)
	assertEvents(t, rec.take(), "activated:1")
	assertState(t, h, 1, StateActive)

	h.OnHotspotUnpressed(1)
	sched.Advance(h.cfg.DeactivationTime)
	assertEvents(t, rec.take(), "deactivating:1", "settled:1:NONE")
}

func TestSelectReplacesActive(t *testing.T) {
	h, sched, rec := setupHandler(t, Config{Preempt: false}, 0, 1)
	activate(t, h, sched, rec, 0)

	h.HotspotSelected(1)
	assertEvents(t, rec.take(), "forced:0", "activated:1")

	// A late unpress of the replaced hotspot changes nothing.
	h.OnHotspotUnpressed(0)
	sched.Advance(time.Minute)
	assertEvents(t, rec.take())
	assertState(t, h, 0, StateNone)
	assertState(t, h, 1, StateActive)
}

func TestSelectCancelsOtherActivation(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0, 1)

	h.OnHotspotPressed(0)
	rec.take()
	h.HotspotSelected(1)
	sched.Advance(time.Minute)

	assertEvents(t, rec.take(), "settled:0:NONE", "activated:1")
	assertState(t, h, 1, StateActive)
}

func TestSelectSameHotspot(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0)

	// Activating: completes at once, timer is dropped.
	h.OnHotspotPressed(0)
	rec.take()
	h.HotspotSelected(0)
	sched.Advance(time.Minute)
	assertEvents(t, rec.take(), "activated:0")

	// Active: no-op.
	h.HotspotSelected(0)
	assertEvents(t, rec.take())

	// Deactivating: restored.
	h.OnHotspotUnpressed(0)
	h.HotspotSelected(0)
	sched.Advance(time.Minute)
	assertEvents(t, rec.take(), "deactivating:0", "settled:0:ACTIVE")
	assertState(t, h, 0, StateActive)
}

func TestSelectUnknownIgnored(t *testing.T) {
	h, _, rec := setupHandler(t, DefaultConfig(), 0)
	h.HotspotSelected(5)
	h.HotspotSelected(-1)
	assertEvents(t, rec.take())
}

func TestUnpressLosingRaceIsReplayedAfterActivation(t *testing.T) {
	h, sched, rec := setupHandler(t, DefaultConfig(), 0)

	h.OnHotspotPressed(0)
	rec.take()

	claimCompletion(t, h, sched, func() { h.unpressLocked(0) })

	assertEvents(t, rec.take(), "activated:0", "deactivating:0")
	assertState(t, h, 0, StateDeactivating)
}

func TestDisposeIsIdempotent(t *testing.T) {
	sched := NewFakeScheduler(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	h := NewHandler(DefaultConfig(), sched, []int{0})
	counter := NewCounter(h)
	rec := &recorder{}
	counter.Subscribe(rec)

	h.OnHotspotPressed(0)
	rec.take()

	h.Dispose()
	h.Dispose()
	sched.Advance(time.Minute)
	h.OnHotspotPressed(0)
	h.OnHotspotUnpressed(0)
	h.Reset()

	assertEvents(t, rec.take())
	if _, _, ok := h.Current(); ok {
		t.Error("disposed handler should report an empty slot")
	}
	if sched.Pending() != 0 {
		t.Errorf("expected disposed handler to stop its timers, %d pending", sched.Pending())
	}
}

// TestMutualExclusion drives random signal sequences and tracks states from the
// emitted events; no two ids may ever be outside NONE at once.
func TestMutualExclusion(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []int{0, 1, 2, 3}

	for _, preempt := range []bool{true, false} {
		cfg := DefaultConfig()
		cfg.Preempt = preempt
		sched := NewFakeScheduler(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
		h := NewHandler(cfg, sched, ids)

		states := map[int]State{}
		check := func(id int, s State) {
			states[id] = s
			busy := 0
			for _, st := range states {
				if st != StateNone {
					busy++
				}
			}
			if busy > 1 {
				t.Fatalf("preempt=%v: more than one busy hotspot: %v", preempt, states)
			}
		}
		h.Subscribe(&ListenerFuncs{
			OnActivating:            func(a HotspotArgs) { check(a.ID, StateActivating) },
			OnActivated:             func(a HotspotArgs) { check(a.ID, StateActive) },
			OnDeactivating:          func(a HotspotArgs) { check(a.ID, StateDeactivating) },
			OnForcefullyDeactivated: func(a HotspotArgs) { check(a.ID, StateNone) },
			OnSettled:               func(a HotspotArgs, s State) { check(a.ID, s) },
		})

		for i := 0; i < 2000; i++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(3) {
			case 0:
				h.OnHotspotPressed(id)
			case 1:
				h.OnHotspotUnpressed(id)
			case 2:
				sched.Advance(time.Duration(rng.Intn(3000)) * time.Millisecond)
			}
			for _, other := range ids {
				if other == id {
					continue
				}
				if h.State(other) != StateNone && h.State(id) != StateNone {
					t.Fatalf("preempt=%v: %d and %d both busy", preempt, id, other)
				}
			}
		}
		h.Dispose()
	}
}

func TestConcurrentSignalsWithRealScheduler(t *testing.T) {
	cfg := Config{
		ActivationTime:           5 * time.Millisecond,
		DeactivationTime:         5 * time.Millisecond,
		ForcefulDeactivationTime: time.Millisecond,
		Preempt:                  true,
	}
	h := NewHandler(cfg, RealScheduler(), []int{0, 1, 2})
	defer h.Dispose()

	var mu sync.Mutex
	active := map[int]bool{}
	h.Subscribe(&ListenerFuncs{
		OnActivated: func(a HotspotArgs) {
			mu.Lock()
			defer mu.Unlock()
			for id, on := range active {
				if on && id != a.ID {
					t.Errorf("hotspot %d activated while %d active", a.ID, id)
				}
			}
			active[a.ID] = true
		},
		OnDeactivating:          func(a HotspotArgs) { mu.Lock(); active[a.ID] = false; mu.Unlock() },
		OnForcefullyDeactivated: func(a HotspotArgs) { mu.Lock(); active[a.ID] = false; mu.Unlock() },
	})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				id := rng.Intn(3)
				if rng.Intn(2) == 0 {
					h.OnHotspotPressed(id)
				} else {
					h.OnHotspotUnpressed(id)
				}
				time.Sleep(time.Duration(rng.Intn(2000)) * time.Microsecond)
			}
		}(int64(g))
	}
	wg.Wait()
}

func TestRealSchedulerActivation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActivationTime = 20 * time.Millisecond
	h := NewHandler(cfg, nil, []int{0})
	defer h.Dispose()

	activated := make(chan int, 1)
	h.Subscribe(&ListenerFuncs{OnActivated: func(a HotspotArgs) { activated <- a.ID }})

	h.OnHotspotPressed(0)
	select {
	case id := <-activated:
		if id != 0 {
			t.Errorf("activated id: got %d, want 0", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("hotspot never activated")
	}
}
