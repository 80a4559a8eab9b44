package hotspot

import "sync"

// Listener receives hotspot lifecycle events.
// Callbacks run synchronously inside the handler's critical section and must
// not call back into the Handler on the same goroutine.
type Listener interface {
	HotspotActivating(args HotspotArgs)
	HotspotActivated(args HotspotArgs)
	HotspotDeactivating(args HotspotArgs)
	HotspotForcefullyDeactivated(args HotspotArgs)
}

// Settler is an optional Listener extension notified of the transitions that
// raise no lifecycle event: a cancelled activation returning to none, an
// elapsed deactivation returning to none, and a re-press returning a
// deactivating hotspot to active.
type Settler interface {
	HotspotSettled(args HotspotArgs, state State)
}

// Subscription is returned by Subscribe. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Notifier is a source of lifecycle events.
type Notifier interface {
	Subscribe(l Listener) Subscription
}

// ListenerFuncs adapts plain functions to Listener and Settler.
// Nil fields are skipped.
type ListenerFuncs struct {
	OnActivating            func(HotspotArgs)
	OnActivated             func(HotspotArgs)
	OnDeactivating          func(HotspotArgs)
	OnForcefullyDeactivated func(HotspotArgs)
	OnSettled               func(HotspotArgs, State)
}

func (f *ListenerFuncs) HotspotActivating(args HotspotArgs) {
	if f.OnActivating != nil {
		f.OnActivating(args)
	}
}

func (f *ListenerFuncs) HotspotActivated(args HotspotArgs) {
	if f.OnActivated != nil {
		f.OnActivated(args)
	}
}

func (f *ListenerFuncs) HotspotDeactivating(args HotspotArgs) {
	if f.OnDeactivating != nil {
		f.OnDeactivating(args)
	}
}

func (f *ListenerFuncs) HotspotForcefullyDeactivated(args HotspotArgs) {
	if f.OnForcefullyDeactivated != nil {
		f.OnForcefullyDeactivated(args)
	}
}

func (f *ListenerFuncs) HotspotSettled(args HotspotArgs, state State) {
	if f.OnSettled != nil {
		f.OnSettled(args, state)
	}
}

// eventKind selects which Listener method a dispatch calls.
type eventKind int

const (
	eventActivating eventKind = iota
	eventActivated
	eventDeactivating
	eventForcefullyDeactivated
)

type listenerEntry struct {
	id int
	l  Listener
}

// listenerSet is a registry of listeners safe for concurrent subscribe,
// unsubscribe and dispatch.
type listenerSet struct {
	mu      sync.Mutex
	nextID  int
	entries []listenerEntry
}

func (s *listenerSet) add(l Listener) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.entries = append(s.entries, listenerEntry{id: s.nextID, l: l})
	return &subscription{set: s, id: s.nextID}
}

func (s *listenerSet) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return
		}
	}
}

func (s *listenerSet) clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

func (s *listenerSet) snapshot() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Listener, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.l
	}
	return out
}

func (s *listenerSet) emit(kind eventKind, id int) {
	args := HotspotArgs{ID: id}
	for _, l := range s.snapshot() {
		switch kind {
		case eventActivating:
			l.HotspotActivating(args)
		case eventActivated:
			l.HotspotActivated(args)
		case eventDeactivating:
			l.HotspotDeactivating(args)
		case eventForcefullyDeactivated:
			l.HotspotForcefullyDeactivated(args)
		}
	}
}

func (s *listenerSet) settle(id int, state State) {
	args := HotspotArgs{ID: id}
	for _, l := range s.snapshot() {
		if st, ok := l.(Settler); ok {
			st.HotspotSettled(args, state)
		}
	}
}

type subscription struct {
	set  *listenerSet
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.set.remove(s.id) })
}

// Counter wraps a Notifier and tracks how many subscriptions are live.
type Counter struct {
	inner Notifier

	mu    sync.Mutex
	count int
}

// NewCounter wraps n.
func NewCounter(n Notifier) *Counter {
	return &Counter{inner: n}
}

// Subscribe forwards to the wrapped notifier and counts the subscription.
func (c *Counter) Subscribe(l Listener) Subscription {
	sub := c.inner.Subscribe(l)
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return &countedSubscription{c: c, inner: sub}
}

// Count returns the number of live subscriptions made through c.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

type countedSubscription struct {
	c     *Counter
	inner Subscription
	once  sync.Once
}

func (s *countedSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.inner.Unsubscribe()
		s.c.mu.Lock()
		s.c.count--
		s.c.mu.Unlock()
	})
}
