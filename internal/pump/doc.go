// Package pump delivers the words of a reader.Stream to listeners at a timed
// cadence.
//
// # Lifecycle
//
// An Engine is bound to one stream for its whole life:
//
//	Idle -> Running <-> Paused -> Stopped
//	                           -> Completed
//
// Stopped and Completed are terminal. A terminal engine rejects every control
// call except Stop, which is idempotent. Reading a different source means
// building a new stream and a new engine.
//
// # Delivery
//
// Start launches one worker goroutine. For every word the worker delivers a
// word event to each listener, then waits for the word's duration. When the
// stream runs out it delivers one complete event and exits. Pause and Stop
// interrupt the wait immediately.
//
// # Listener contract
//
// Listeners are called synchronously on the worker goroutine, in registration
// order. The engine does not hand events to any other goroutine:
//
//   - A listener that must run somewhere else (a UI loop, for instance) is
//     responsible for handing the event over itself.
//   - The worker cannot start the next word's timer until every listener has
//     returned, so slow listeners stretch the pacing.
//   - PauseAndGetContext waits for the worker, so calling it from inside a
//     listener fails with ErrAckTimeout. Stop is safe from a listener.
//
// # Ordering
//
// Word events arrive in stream order without gaps. The one duplicate is on
// resume: the word that was on screen when the engine paused is delivered again
// and gets its full duration, while the cursor itself never moves back.
//
// Once PauseAndGetContext returns, no later word is delivered until SetPaused(false).
// Once Stop returns, no listener receives an event it has not already been
// handed. A listener call that was in progress when Stop ran still completes.
package pump
