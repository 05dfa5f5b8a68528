// Package session binds one content source to a fresh stream, engine and
// history record.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/speedr/internal/model"
	"github.com/verte-zerg/speedr/internal/pump"
	"github.com/verte-zerg/speedr/internal/reader"
	"github.com/verte-zerg/speedr/internal/source"
)

// Recorder persists finished sessions.
type Recorder interface {
	InsertSession(ctx context.Context, stats model.SessionStats) (int64, error)
}

// Session is one playback of one source. It is discarded when playback ends.
type Session struct {
	Source source.Source
	Engine *pump.Engine

	stats    model.SessionStats
	logger   *slog.Logger
	finished bool
}

// Pacing converts reader settings into tokenizer pacing.
func Pacing(cfg model.Config) reader.Pacing {
	return reader.Pacing{
		BaseMillis:    cfg.BaseMillis,
		MinMillis:     cfg.MinMillis,
		MaxMillis:     cfg.MaxMillis,
		AverageLength: cfg.AverageLength,
	}
}

// Open reads the source and builds an idle engine over its words.
func Open(src source.Source, cfg model.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	content, err := src.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", src.Title(), err)
	}
	stream := reader.FromContent(content, Pacing(cfg))
	stats := model.NewSessionStats(src.Title(), src.Detail(), stream.Len(), cfg.BaseMillis, time.Now())
	logger = logger.With("session", stats.UUID.String(), "source", src.Title())

	opts := []pump.Option{
		pump.WithWindowSize(cfg.WindowSize),
		pump.WithLogger(logger),
	}
	if cfg.AckTimeoutMs > 0 {
		opts = append(opts, pump.WithAckTimeout(time.Duration(cfg.AckTimeoutMs)*time.Millisecond))
	}
	logger.Info("session opened", "words", stream.Len())
	return &Session{
		Source: src,
		Engine: pump.New(stream, opts...),
		stats:  stats,
		logger: logger,
	}, nil
}

// Start marks the session start time and starts the engine.
func (s *Session) Start() error {
	s.stats.StartedAt = time.Now()
	return s.Engine.Start()
}

// NotePause counts a pause for the history record.
func (s *Session) NotePause() {
	s.stats.Pauses++
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Finish stops the engine if needed and returns the history record. Only the
// first call produces a record; later calls return ok=false.
func (s *Session) Finish() (model.SessionStats, bool) {
	if s.finished {
		return model.SessionStats{}, false
	}
	s.finished = true
	if err := s.Engine.Stop(); err != nil {
		s.logger.Warn("failed to stop engine", "err", err)
	}
	outcome := model.OutcomeStopped
	if s.Engine.State() == pump.StateCompleted {
		outcome = model.OutcomeCompleted
	}
	read, _ := s.Engine.Position()
	s.stats.Finish(time.Now(), read, outcome)
	s.logger.Info("session finished", "outcome", string(outcome), "read", read, "total", s.stats.WordsTotal)
	return s.stats, true
}

// Record finishes the session and stores it. Sessions where nothing was shown
// are not stored.
func (s *Session) Record(ctx context.Context, rec Recorder) error {
	stats, ok := s.Finish()
	if !ok || rec == nil || stats.WordsRead == 0 {
		return nil
	}
	if _, err := rec.InsertSession(ctx, stats); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
