// Package runtime implements the single-threaded cooperative event
// loop (spec §5): an epoll-driven reactor over client sockets, a timer
// wheel for idle/repeat/configure timeouts, and the pending-function
// queue other goroutines (the accept loop, the backend driver) use to
// hand work to the one thread that is allowed to touch compositor
// state.
package runtime

import (
	"container/heap"
)

// timerEntry is one scheduled callback, ordered by deadline in a
// min-heap the way gaio's watcher orders its timeout aiocbs
// (other_examples' socket515-gaio watcher.go: timedHeap over
// time.Time deadlines, popped as the poll loop's wait timeout elapses).
type timerEntry struct {
	id       uint64
	deadline int64 // UnixNano
	period   int64 // 0 for one-shot
	fn       func()
	index    int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Timers is the idle/repeat/configure-timeout wheel (spec §5, §4.8
// configure deadlines, §6.2 Configuration.OnIdle). It is only ever
// touched from the event loop thread; no locking.
type Timers struct {
	h      timerHeap
	nextID uint64
}

// NewTimers creates an empty timer wheel.
func NewTimers() *Timers {
	return &Timers{}
}

// After schedules fn to run once nowNano+d nanoseconds from now.
func (t *Timers) After(nowNano int64, d int64, fn func()) uint64 {
	t.nextID++
	e := &timerEntry{id: t.nextID, deadline: nowNano + d, fn: fn}
	heap.Push(&t.h, e)
	return e.id
}

// Every schedules fn to run repeatedly every d nanoseconds, starting
// at nowNano+d.
func (t *Timers) Every(nowNano int64, d int64, fn func()) uint64 {
	t.nextID++
	e := &timerEntry{id: t.nextID, deadline: nowNano + d, period: d, fn: fn}
	heap.Push(&t.h, e)
	return e.id
}

// Cancel removes a scheduled timer by id, if it is still pending.
func (t *Timers) Cancel(id uint64) {
	for i, e := range t.h {
		if e.id == id {
			heap.Remove(&t.h, i)
			return
		}
	}
}

// NextDeadline returns the nanosecond deadline of the soonest
// scheduled timer, used to bound the reactor's epoll_wait timeout so
// the loop wakes up in time even with no fd readiness (spec §5
// "timer wheel ticks").
func (t *Timers) NextDeadline() (int64, bool) {
	if len(t.h) == 0 {
		return 0, false
	}
	return t.h[0].deadline, true
}

// FireDue runs every timer whose deadline is at or before nowNano,
// rescheduling periodic ones.
func (t *Timers) FireDue(nowNano int64) {
	for len(t.h) > 0 && t.h[0].deadline <= nowNano {
		e := heap.Pop(&t.h).(*timerEntry)
		if e.period > 0 {
			e.deadline = nowNano + e.period
			heap.Push(&t.h, e)
		}
		e.fn()
	}
}
