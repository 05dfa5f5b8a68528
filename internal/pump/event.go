package pump

import (
	"reflect"

	"github.com/verte-zerg/speedr/internal/reader"
)

// EventKind tags an Event.
type EventKind uint8

const (
	// EventWord carries the next word to show.
	EventWord EventKind = iota

	// EventComplete reports that the stream is exhausted.
	EventComplete
)

func (k EventKind) String() string {
	switch k {
	case EventWord:
		return "word"
	case EventComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners by the engine worker.
type Event struct {
	Kind EventKind
	Word reader.Word
}

// WordEvent returns a word event.
func WordEvent(w reader.Word) Event {
	return Event{Kind: EventWord, Word: w}
}

// CompleteEvent returns the end-of-stream event.
func CompleteEvent() Event {
	return Event{Kind: EventComplete}
}

// Done reports whether the event marks the end of the stream.
func (e Event) Done() bool {
	return e.Kind == EventComplete
}

// Listener receives engine events. See the package documentation for the
// threading contract.
type Listener interface {
	HandlePump(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// HandlePump calls f(e).
func (f ListenerFunc) HandlePump(e Event) {
	f(e)
}

// ListenerID identifies a registration. IDs are never reused by an engine.
type ListenerID uint64

type registration struct {
	id       ListenerID
	listener Listener
}

// registry keeps listeners in registration order. Callers hold the engine lock.
type registry struct {
	lastID  ListenerID
	entries []registration
}

func (r *registry) add(l Listener) (ListenerID, error) {
	if isNilListener(l) {
		return 0, ErrNilListener
	}
	for _, entry := range r.entries {
		if sameListener(entry.listener, l) {
			return 0, ErrDuplicateListener
		}
	}
	r.lastID++
	r.entries = append(r.entries, registration{id: r.lastID, listener: l})
	return r.lastID, nil
}

func (r *registry) remove(id ListenerID) error {
	for i, entry := range r.entries {
		if entry.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return nil
		}
	}
	return ErrUnknownListener
}

func (r *registry) snapshot() []Listener {
	out := make([]Listener, len(r.entries))
	for i, entry := range r.entries {
		out[i] = entry.listener
	}
	return out
}

func isNilListener(l Listener) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// sameListener only matches pointer listeners; other kinds are not reliably
// comparable.
func sameListener(a, b Listener) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || ta.Kind() != reflect.Pointer {
		return false
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
