package pump

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/speedr/internal/reader"
)

var (
	// ErrInvalidState is returned when a control call is not allowed in the
	// engine's current state.
	ErrInvalidState = errors.New("invalid engine state")

	// ErrAckTimeout is returned when the worker does not acknowledge a pause in
	// time. The engine is stopped when this happens.
	ErrAckTimeout = errors.New("pause not acknowledged")

	// ErrNilListener is returned when registering a nil listener.
	ErrNilListener = errors.New("nil listener")

	// ErrDuplicateListener is returned when a listener is already registered.
	ErrDuplicateListener = errors.New("listener already registered")

	// ErrUnknownListener is returned when removing an ID that is not registered.
	ErrUnknownListener = errors.New("unknown listener")
)

// State is the engine lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether the state accepts no further control calls.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCompleted
}

type wakeReason uint8

const (
	wakeElapsed wakeReason = iota
	wakePause
	wakeStop
)

func (r wakeReason) String() string {
	switch r {
	case wakeElapsed:
		return "elapsed"
	case wakePause:
		return "pause"
	case wakeStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Engine paces one stream. Its methods are safe for concurrent use.
type Engine struct {
	windowSize int
	ackTimeout time.Duration
	logger     *slog.Logger

	// wake holds at most one pending signal; every state change sends one.
	wake chan struct{}
	done chan struct{}

	mu        sync.Mutex
	stream    *reader.Stream
	state     State
	listeners registry
	pauseAck  chan struct{}
	current   reader.Word
	shown     bool
	replay    bool
}

// New builds an idle engine that owns stream. The caller must not touch the
// stream afterwards.
func New(stream *reader.Stream, opts ...Option) *Engine {
	if stream == nil {
		stream = reader.NewStream(nil)
	}
	e := &Engine{
		windowSize: DefaultWindowSize,
		ackTimeout: DefaultAckTimeout,
		logger:     slog.Default(),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		stream:     stream,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// AddListener registers l. Registering the same pointer twice fails.
func (e *Engine) AddListener(l Listener) (ListenerID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listeners.add(l)
}

// RemoveListener unregisters id. Events already handed to the listener's
// snapshot may still arrive.
func (e *Engine) RemoveListener(id ListenerID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listeners.remove(id)
}

// Start launches the delivery worker.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return e.invalidLocked("start")
	}
	e.state = StateRunning
	e.logger.Debug("pump started", "words", e.stream.Len())
	go e.run()
	return nil
}

// Stop ends playback. No Complete event is delivered for a stopped engine.
// Stop on a terminal engine does nothing.
func (e *Engine) Stop() error {
	e.mu.Lock()
	prev := e.state
	if prev.Terminal() {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopped
	e.mu.Unlock()

	if prev == StateIdle {
		close(e.done)
	}
	e.signal()
	e.logger.Debug("pump stopped", "from", prev.String())
	return nil
}

// PauseAndGetContext holds the worker on the current word and returns the
// words around the paused position. It blocks until the worker acknowledges.
func (e *Engine) PauseAndGetContext() (reader.ContextWindow, error) {
	e.mu.Lock()
	if e.state != StateRunning {
		err := e.invalidLocked("pause")
		e.mu.Unlock()
		return reader.ContextWindow{}, err
	}
	if e.pauseAck != nil {
		e.mu.Unlock()
		return reader.ContextWindow{}, fmt.Errorf("pause: another pause is pending: %w", ErrInvalidState)
	}
	ack := make(chan struct{})
	e.pauseAck = ack
	e.mu.Unlock()
	e.signal()

	timer := time.NewTimer(e.ackTimeout)
	defer timer.Stop()

	select {
	case <-ack:
	case <-e.done:
	case <-timer.C:
		e.mu.Lock()
		if e.pauseAck == ack {
			e.pauseAck = nil
			e.state = StateStopped
			e.mu.Unlock()
			e.signal()
			e.logger.Error("pump worker unresponsive, stopping", "timeout", e.ackTimeout)
			return reader.ContextWindow{}, fmt.Errorf("pause: no acknowledgement within %s: %w", e.ackTimeout, ErrAckTimeout)
		}
		e.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pauseAck == ack {
		e.pauseAck = nil
	}
	if e.state != StatePaused {
		return reader.ContextWindow{}, e.invalidLocked("pause")
	}
	e.logger.Debug("pump paused", "position", e.stream.Position())
	return e.stream.ContextAround(e.windowSize), nil
}

// SetPaused pauses (true) or resumes (false) the engine. Resuming delivers the
// word that was on screen again with its full duration before moving on.
func (e *Engine) SetPaused(paused bool) error {
	if paused {
		_, err := e.PauseAndGetContext()
		return err
	}
	e.mu.Lock()
	if e.state != StatePaused {
		err := e.invalidLocked("resume")
		e.mu.Unlock()
		return err
	}
	e.state = StateRunning
	pos := e.stream.Position()
	e.mu.Unlock()
	e.signal()
	e.logger.Debug("pump resumed", "position", pos)
	return nil
}

// IsPaused reports whether the engine is holding on a word.
func (e *Engine) IsPaused() bool {
	return e.State() == StatePaused
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Position returns how many words have been delivered and the stream length.
func (e *Engine) Position() (pos, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream.Position(), e.stream.Len()
}

// Remaining returns the nominal time left for undelivered words.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream.Remaining()
}

// Done is closed once the worker has exited, or when an idle engine is stopped.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) invalidLocked(op string) error {
	return fmt.Errorf("%s: engine is %s: %w", op, e.state, ErrInvalidState)
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) run() {
	defer close(e.done)
	defer func() {
		if r := recover(); r != nil {
			e.mu.Lock()
			e.state = StateStopped
			e.mu.Unlock()
			e.logger.Error("pump worker failed, stopping", "panic", r)
		}
	}()

	for {
		ev, listeners, ok := e.next()
		if !ok {
			return
		}
		for _, l := range listeners {
			if e.State() == StateStopped {
				return
			}
			l.HandlePump(ev)
		}
		if ev.Done() {
			e.logger.Debug("pump completed")
			return
		}
		reason := e.sleep(ev.Word.Duration())
		if reason != wakeElapsed {
			e.logger.Debug("pump woke early", "reason", reason.String())
		}
		if reason == wakeStop {
			return
		}
	}
}

// next waits out any pause and picks the next event. It returns false when the
// worker must exit without delivering anything.
func (e *Engine) next() (Event, []Listener, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		if e.state == StateStopped {
			return Event{}, nil, false
		}
		if e.pauseAck != nil {
			e.state = StatePaused
			e.replay = e.shown
			close(e.pauseAck)
			e.pauseAck = nil
		}
		if e.state != StatePaused {
			break
		}
		e.mu.Unlock()
		<-e.wake
		e.mu.Lock()
	}

	if e.replay {
		e.replay = false
		return WordEvent(e.current), e.listeners.snapshot(), true
	}
	w, ok := e.stream.Advance()
	if !ok {
		e.state = StateCompleted
		return CompleteEvent(), e.listeners.snapshot(), true
	}
	e.current = w
	e.shown = true
	return WordEvent(w), e.listeners.snapshot(), true
}

// sleep waits for d unless a stop or a pause request arrives first.
func (e *Engine) sleep(d time.Duration) wakeReason {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return wakeElapsed
		case <-e.wake:
			if reason, ok := e.interrupted(); ok {
				return reason
			}
		}
	}
}

func (e *Engine) interrupted() (wakeReason, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.state == StateStopped:
		return wakeStop, true
	case e.pauseAck != nil:
		return wakePause, true
	default:
		return wakeElapsed, false
	}
}
