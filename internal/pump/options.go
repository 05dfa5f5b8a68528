package pump

import (
	"log/slog"
	"time"
)

const (
	// DefaultWindowSize is the number of words on each side of a pause context.
	DefaultWindowSize = 10

	// DefaultAckTimeout bounds how long a pause waits for the worker.
	DefaultAckTimeout = 2 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithWindowSize sets how many words PauseAndGetContext returns on each side.
//
// Negative values are normalized to 0.
func WithWindowSize(n int) Option {
	return func(e *Engine) {
		e.windowSize = max(0, n)
	}
}

// WithAckTimeout bounds the wait for the worker to acknowledge a pause.
//
// Values <= 0 keep DefaultAckTimeout.
func WithAckTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.ackTimeout = d
		}
	}
}

// WithLogger sets the logger used for lifecycle and failure messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
