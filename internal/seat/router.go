package seat

import (
	"container/list"
	"sync"

	"github.com/bnema/jaywl/internal/scene"
)

// Router owns the set of seats compositor-wide, orders them by recent
// activity (seat_queue, spec §3), and coalesces tree_changed
// notifications to at most once per event-loop turn (spec §4.6).
type Router struct {
	mu    sync.Mutex
	seats map[string]*Seat
	queue *list.List // most-recently-active seat at Front()

	treeChangedPending bool
	onTreeChanged      func()
}

// NewRouter creates an empty router. onTreeChanged is invoked from
// the event loop at most once per turn, after FlushTreeChanged is
// called, whenever a mutation marked the tree dirty in between.
func NewRouter(onTreeChanged func()) *Router {
	return &Router{
		seats:         make(map[string]*Seat),
		queue:         list.New(),
		onTreeChanged: onTreeChanged,
	}
}

// AddSeat registers a new seat, placing it at the front of the
// activity queue.
func (r *Router) AddSeat(s *Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.elem = r.queue.PushFront(s)
	r.seats[s.Name] = s
}

// RemoveSeat drops a seat entirely (seat device unplugged).
func (r *Router) RemoveSeat(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[name]
	if !ok {
		return
	}
	r.queue.Remove(s.elem)
	delete(r.seats, name)
}

// Touch moves a seat to the front of the activity queue, marking it
// "most recently active" for ActiveSeat() (spec §3: "ordered ... by
// recent activity").
func (r *Router) Touch(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[name]
	if !ok {
		return
	}
	r.queue.MoveToFront(s.elem)
}

// ActiveSeat returns the most recently active seat, or nil if none
// exist, satisfying scene.ActiveSeat for map_tiled step 1.
func (r *Router) ActiveSeat() scene.ActiveSeat {
	r.mu.Lock()
	defer r.mu.Unlock()
	front := r.queue.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Seat)
}

// Seats returns every registered seat, in no particular order.
func (r *Router) Seats() []*Seat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Seat, 0, len(r.seats))
	for _, s := range r.seats {
		out = append(out, s)
	}
	return out
}

// MarkTreeChanged records that the scene tree mutated. It does not
// call onTreeChanged synchronously; the event loop calls
// FlushTreeChanged once at the next idle point so that N mutations in
// one turn produce exactly one notification (spec §5 ordering
// guarantees).
func (r *Router) MarkTreeChanged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.treeChangedPending = true
}

// FlushTreeChanged invokes onTreeChanged if a mutation was marked
// since the last flush, then clears the flag. Call this once per
// event-loop turn, after draining the turn's work.
func (r *Router) FlushTreeChanged() {
	r.mu.Lock()
	pending := r.treeChangedPending
	r.treeChangedPending = false
	r.mu.Unlock()

	if pending && r.onTreeChanged != nil {
		r.onTreeChanged()
	}
}

// OnOutputRemoved notifies every seat that an output disconnected, so
// seats parked on it fall back to the dummy output.
func (r *Router) OnOutputRemoved(removed, dummy *scene.Output) {
	r.mu.Lock()
	seats := make([]*Seat, 0, len(r.seats))
	for _, s := range r.seats {
		seats = append(seats, s)
	}
	r.mu.Unlock()

	for _, s := range seats {
		s.OnOutputRemoved(removed, dummy)
	}
	r.MarkTreeChanged()
}
