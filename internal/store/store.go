// Package store handles SQLite persistence of reading history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/speedr/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			session_uuid TEXT NOT NULL UNIQUE,
			started_at_ms INTEGER NOT NULL,
			ended_at_ms INTEGER NOT NULL,
			source_title TEXT NOT NULL,
			source_detail TEXT NOT NULL,
			words_total INTEGER NOT NULL,
			words_read INTEGER NOT NULL,
			pauses INTEGER NOT NULL,
			base_ms INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at_ms);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished reading session.
func (s *Store) InsertSession(ctx context.Context, stats model.SessionStats) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_uuid, started_at_ms, ended_at_ms, source_title, source_detail, words_total, words_read, pauses, base_ms, outcome, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.UUID.String(),
		stats.StartedAt.UnixMilli(),
		stats.EndedAt.UnixMilli(),
		stats.SourceTitle,
		stats.SourceDetail,
		stats.WordsTotal,
		stats.WordsRead,
		stats.Pauses,
		stats.BaseMillis,
		string(stats.Outcome),
		stats.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at_ms >= ?")
		args = append(args, cfg.Since.UnixMilli())
	}
	query := fmt.Sprintf(`SELECT id, session_uuid, ended_at_ms, source_title, words_total, words_read, pauses, outcome, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at_ms ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAtMs int64
		var outcome string
		if err := rows.Scan(&agg.SessionID, &agg.UUID, &endedAtMs, &agg.SourceTitle, &agg.WordsTotal, &agg.WordsRead, &agg.Pauses, &outcome, &agg.DurationMs); err != nil {
			return nil, err
		}
		agg.EndedAt = time.UnixMilli(endedAtMs)
		agg.Outcome = model.Outcome(outcome)
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
