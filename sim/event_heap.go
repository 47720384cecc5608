package sim

import "container/heap"

// EventHeap holds pending events. The next event is the one with the
// earliest timestamp; among equal timestamps, the one scheduled first.
type EventHeap struct {
	pending eventQueue
}

// NewEventHeap returns an empty heap.
func NewEventHeap() *EventHeap {
	return &EventHeap{}
}

// Len returns the number of pending events.
func (h *EventHeap) Len() int {
	return len(h.pending)
}

// Schedule adds e. It does not check e against the clock; see Simulator.Schedule.
func (h *EventHeap) Schedule(e Event) {
	heap.Push(&h.pending, e)
}

// PopNext removes and returns the next event, or nil when empty.
func (h *EventHeap) PopNext() Event {
	if len(h.pending) == 0 {
		return nil
	}
	return heap.Pop(&h.pending).(Event)
}

// Peek returns the next event without removing it, or nil when empty.
func (h *EventHeap) Peek() Event {
	if len(h.pending) == 0 {
		return nil
	}
	return h.pending[0]
}

// eventQueue is the heap.Interface backing EventHeap.
type eventQueue []Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if ti, tj := q[i].Timestamp(), q[j].Timestamp(); ti != tj {
		return ti < tj
	}
	// IDs increase with every event a simulator creates.
	return q[i].EventID() < q[j].EventID()
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(Event))
}

func (q *eventQueue) Pop() any {
	old := *q
	last := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return last
}
