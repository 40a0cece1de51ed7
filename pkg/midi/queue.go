package midi

import (
	"sort"
)

// EventQueue collects events within one host block and answers range queries
// with stable, offset-sorted results. It is used on the control/host boundary
// only; the audio path works on plain slices popped from a FIFO.
type EventQueue struct {
	events []Event
	sorted bool
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		events: make([]Event, 0, 128),
		sorted: true,
	}
}

func (q *EventQueue) Add(event Event) {
	q.events = append(q.events, event)
	q.sorted = false
}

func (q *EventQueue) AddMultiple(events []Event) {
	if len(events) == 0 {
		return
	}
	q.events = append(q.events, events...)
	q.sorted = false
}

// EventsInRange returns the events with startSample <= offset < endSample,
// re-stamped relative to startSample. They are appended to dst[:0], and the
// result shares dst's backing array.
func (q *EventQueue) EventsInRange(startSample, endSample int32, dst []Event) []Event {
	q.ensureSorted()

	dst = dst[:0]
	for _, e := range q.events {
		off := e.SampleOffset()
		if off < startSample {
			continue
		}
		if off >= endSample {
			break
		}
		dst = append(dst, WithOffset(e, off-startSample))
	}
	return dst
}

func (q *EventQueue) AllEvents() []Event {
	q.ensureSorted()
	return q.events
}

func (q *EventQueue) Clear() {
	q.events = q.events[:0]
	q.sorted = true
}

func (q *EventQueue) Size() int {
	return len(q.events)
}

func (q *EventQueue) IsEmpty() bool {
	return len(q.events) == 0
}

func (q *EventQueue) ensureSorted() {
	if q.sorted {
		return
	}
	sort.SliceStable(q.events, func(i, j int) bool {
		return q.events[i].SampleOffset() < q.events[j].SampleOffset()
	})
	q.sorted = true
}

// FIFO accumulates events in lockstep with an audio sample FIFO. Pushed
// events are re-stamped relative to the FIFO read head; popping advances the
// head and shifts the remaining events back.
type FIFO struct {
	events []Event
	stored int32
}

func NewFIFO(capacityHint int) *FIFO {
	return &FIFO{events: make([]Event, 0, capacityHint)}
}

// Push appends the block's events and accounts for numSamples of audio
// pushed alongside them.
func (f *FIFO) Push(events []Event, numSamples int32) {
	for _, e := range events {
		f.events = append(f.events, WithOffset(e, e.SampleOffset()+f.stored))
	}
	f.stored += numSamples
}

// Pop moves every event with offset < numSamples into dst and rebases the
// rest. Returns the filled dst.
func (f *FIFO) Pop(numSamples int32, dst []Event) []Event {
	dst = dst[:0]

	keep := f.events[:0]
	for _, e := range f.events {
		if e.SampleOffset() < numSamples {
			dst = append(dst, e)
		} else {
			keep = append(keep, WithOffset(e, e.SampleOffset()-numSamples))
		}
	}
	f.events = keep

	f.stored -= numSamples
	if f.stored < 0 {
		f.stored = 0
	}
	return dst
}

func (f *FIFO) Clear() {
	f.events = f.events[:0]
	f.stored = 0
}

func (f *FIFO) NumStoredSamples() int32 {
	return f.stored
}
