// Package score provides the event-timing utility of the compiler: timed
// event lists with uniform shift and scale transforms. The interesting
// structure lives in the instrument graphs; a score only carries when
// instances of them sound.
package score

// DefaultDur is the duration given to an immediate single event. One day
// outlasts any plausible performance, which is the conventional way to
// hold a note "forever" without special-casing infinity.
const DefaultDur = 86400.0

// Event is one timed item: when it starts, how long it lasts, and what it
// carries.
type Event[T any] struct {
	Start   float64
	Dur     float64
	Content T
}

// List is a canonical score: events plus the recorded total duration. The
// total is tracked explicitly rather than derived, because transforms must
// move it even when it exceeds the span of the events.
type List[T any] struct {
	Total  float64
	Events []Event[T]
}

// EventList returns the list itself, satisfying Score.
func (l List[T]) EventList() List[T] {
	return l
}

// Score is anything convertible to a canonical event list.
type Score[T any] interface {
	EventList() List[T]
}

// FromEvent wraps a single event as a score whose total duration is the
// event's end time.
func FromEvent[T any](ev Event[T]) List[T] {
	return List[T]{
		Total:  ev.Start + ev.Dur,
		Events: []Event[T]{ev},
	}
}

// Single is an immediate event carrying content, lasting DefaultDur.
func Single[T any](content T) List[T] {
	return FromEvent(Event[T]{Start: 0, Dur: DefaultDur, Content: content})
}

// Shift moves every event later by dt and extends the total by the same
// amount. Durations are unchanged. Shift(0) is the identity;
// Shift(a) of Shift(b) equals Shift(a+b).
func Shift[T any](dt float64, s Score[T]) List[T] {
	l := s.EventList()
	out := List[T]{
		Total:  l.Total + dt,
		Events: make([]Event[T], len(l.Events)),
	}
	for i, ev := range l.Events {
		ev.Start += dt
		out.Events[i] = ev
	}
	return out
}

// Scale multiplies every start, every duration, and the total by k.
// Scale(1) is the identity; Scale(a) of Scale(b) equals Scale(a*b).
func Scale[T any](k float64, s Score[T]) List[T] {
	l := s.EventList()
	out := List[T]{
		Total:  l.Total * k,
		Events: make([]Event[T], len(l.Events)),
	}
	for i, ev := range l.Events {
		ev.Start *= k
		ev.Dur *= k
		out.Events[i] = ev
	}
	return out
}
