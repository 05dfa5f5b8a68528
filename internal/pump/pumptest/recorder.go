// Package pumptest provides helpers for observing engines in tests.
package pumptest

import (
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/speedr/internal/pump"
)

// Recorder records every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []pump.Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// HandlePump appends the event.
func (r *Recorder) HandlePump(e pump.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a snapshot copy of the recorded events.
func (r *Recorder) Events() []pump.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]pump.Event, len(r.events))
	copy(cp, r.events)
	return cp
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Transcript renders the events as "word word ... <done>" for compact assertions.
func (r *Recorder) Transcript() string {
	events := r.Events()
	parts := make([]string, 0, len(events))
	for _, e := range events {
		if e.Done() {
			parts = append(parts, "<done>")
			continue
		}
		parts = append(parts, e.Word.Text())
	}
	return strings.Join(parts, " ")
}

// WaitFor polls until at least n events are recorded or the timeout expires.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if r.Len() >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
