package history

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// Recorder is a hotspot listener that appends every event to a Store from a
// background goroutine.
type Recorder struct {
	store   *Store
	session string
	now     func() time.Time

	queue chan Record
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewRecorder starts recording into store, tagging rows with session.
func NewRecorder(store *Store, session string, now func() time.Time) *Recorder {
	r := &Recorder{
		store:   store,
		session: session,
		now:     now,
		queue:   make(chan Record, 128),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Append(ctx, rec); err != nil {
			log.Printf("history: %v", err)
		}
		cancel()
	}
}

func (r *Recorder) HotspotActivating(args hotspot.HotspotArgs) {
	r.record(KindActivating, args.ID, "")
}

func (r *Recorder) HotspotActivated(args hotspot.HotspotArgs) {
	r.record(KindActivated, args.ID, "")
}

func (r *Recorder) HotspotDeactivating(args hotspot.HotspotArgs) {
	r.record(KindDeactivating, args.ID, "")
}

func (r *Recorder) HotspotForcefullyDeactivated(args hotspot.HotspotArgs) {
	r.record(KindForcefullyDeactivated, args.ID, "")
}

func (r *Recorder) HotspotSettled(args hotspot.HotspotArgs, state hotspot.State) {
	r.record(KindSettled, args.ID, state.String())
}

func (r *Recorder) record(kind string, id int, state string) {
	rec := Record{
		ID:        uuid.NewString(),
		Session:   r.session,
		HotspotID: id,
		Kind:      kind,
		State:     state,
		At:        r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- rec:
	default:
		log.Printf("history: queue full, dropping %s %d", kind, id)
	}
}

// Close stops accepting events and waits until queued ones are written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}
