// Package ticktime implements domain.Timing over a simple tick counter,
// for driving a domain.Manager from a scenario script rather than a live
// emulator clock. There is no ecosystem priority-queue library in play
// here, and the queue itself is small and local, so this uses
// container/heap directly rather than reaching for a dependency.
package ticktime

import (
	"container/heap"

	"github.com/avalonos/coreemu/domain"
)

type event struct {
	due      uint64
	seq      uint64
	handle   domain.EventHandle
	payload  domain.NodeID
	canceled bool
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x interface{}) { *q = append(*q, x.(*event)) }
func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// Wheel is a synchronous tick scheduler: Advance(n) moves the clock
// forward n ticks and fires, in due order, every event whose deadline
// falls within that span. It implements domain.Timing.
type Wheel struct {
	now      uint64
	nextSeq  uint64
	handlers []func(domain.NodeID)
	pending  map[domain.EventHandle]map[domain.NodeID]*event
	queue    eventQueue
}

// New constructs an empty Wheel at tick 0.
func New() *Wheel {
	return &Wheel{
		pending: make(map[domain.EventHandle]map[domain.NodeID]*event),
	}
}

// Now returns the current tick.
func (w *Wheel) Now() uint64 { return w.now }

// RegisterEvent implements domain.Timing.
func (w *Wheel) RegisterEvent(name string, callback func(payload domain.NodeID)) domain.EventHandle {
	w.handlers = append(w.handlers, callback)
	h := domain.EventHandle(len(w.handlers) - 1)
	w.pending[h] = make(map[domain.NodeID]*event)
	return h
}

// ScheduleEvent implements domain.Timing. Rescheduling an (h, payload)
// pair that is already pending cancels the earlier firing in place of
// stacking a second one.
func (w *Wheel) ScheduleEvent(h domain.EventHandle, payload domain.NodeID, delayTicks uint64) {
	w.UnscheduleEvent(h, payload)
	e := &event{due: w.now + delayTicks, seq: w.nextSeq, handle: h, payload: payload}
	w.nextSeq++
	w.pending[h][payload] = e
	heap.Push(&w.queue, e)
}

// UnscheduleEvent implements domain.Timing.
func (w *Wheel) UnscheduleEvent(h domain.EventHandle, payload domain.NodeID) {
	if e, ok := w.pending[h][payload]; ok {
		e.canceled = true
		delete(w.pending[h], payload)
	}
}

// Advance moves the clock forward by delta ticks, firing every event due
// at or before the new time, in (deadline, schedule-order) order.
func (w *Wheel) Advance(delta uint64) {
	target := w.now + delta
	for w.queue.Len() > 0 && w.queue[0].due <= target {
		e := heap.Pop(&w.queue).(*event)
		if e.canceled {
			continue
		}
		delete(w.pending[e.handle], e.payload)
		w.now = e.due
		w.handlers[e.handle](e.payload)
	}
	w.now = target
}
