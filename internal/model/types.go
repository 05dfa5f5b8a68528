// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Config defines reading settings.
type Config struct {
	BaseMillis      int
	MinMillis       int
	MaxMillis       int
	AverageLength   float64
	WindowSize      int
	Countdown       int
	CountdownMillis int
	AckTimeoutMs    int
}

// StatsConfig defines filters and options for history output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Outcome records how a reading session ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
)

// SessionStats captures one finished reading session.
type SessionStats struct {
	UUID         uuid.UUID
	StartedAt    time.Time
	EndedAt      time.Time
	SourceTitle  string
	SourceDetail string
	WordsTotal   int
	WordsRead    int
	Pauses       int
	BaseMillis   int
	Outcome      Outcome
	DurationMs   int64
}

// NewSessionStats starts a session record with a fresh identifier.
func NewSessionStats(title, detail string, wordsTotal, baseMillis int, startedAt time.Time) SessionStats {
	return SessionStats{
		UUID:         uuid.New(),
		StartedAt:    startedAt,
		SourceTitle:  title,
		SourceDetail: detail,
		WordsTotal:   wordsTotal,
		BaseMillis:   baseMillis,
	}
}

// Finish stamps the end of the session.
func (s *SessionStats) Finish(endedAt time.Time, wordsRead int, outcome Outcome) {
	s.EndedAt = endedAt
	s.WordsRead = wordsRead
	s.Outcome = outcome
	s.DurationMs = endedAt.Sub(s.StartedAt).Milliseconds()
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	SessionID   int64
	UUID        string
	EndedAt     time.Time
	SourceTitle string
	WordsTotal  int
	WordsRead   int
	Pauses      int
	Outcome     Outcome
	DurationMs  int64
}
