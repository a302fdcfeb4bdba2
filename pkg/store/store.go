// Package store keeps the history of finished tracking sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"

	_ "modernc.org/sqlite" // SQLite driver.
)

var ErrNotFound = errors.New("session not found")

// fixed width, so that text ordering in SQLite is chronological
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Session struct {
	ID           string    `json:"id"`
	Exercise     string    `json:"exercise"`
	Source       string    `json:"source"`
	Reps         int       `json:"reps"`
	AssistedReps int       `json:"assistedReps"`
	AssistMode   bool      `json:"assistMode"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
}

func (s Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// ExerciseTotals aggregates all the saved sessions of one exercise.
type ExerciseTotals struct {
	Exercise     string `json:"exercise"`
	Sessions     int    `json:"sessions"`
	Reps         int    `json:"reps"`
	AssistedReps int    `json:"assistedReps"`
}

type ListParams struct {
	Exercise string
	Limit    int
}

type Store struct {
	db *sql.DB

	entropyMu sync.Mutex
	entropy   *rand.Rand
}

//Open opens or creates the database at path and applies migrations
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		return nil, multierr.Combine(fmt.Errorf("migrate: %w", err), db.Close())
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			exercise      TEXT NOT NULL,
			source        TEXT NOT NULL,
			reps          INTEGER NOT NULL,
			assisted_reps INTEGER NOT NULL,
			assist_mode   INTEGER NOT NULL,
			started_at    TEXT NOT NULL,
			ended_at      TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_exercise ON sessions(exercise);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) newID(t time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

//SaveSession stores a finished session. A missing ID is generated
func (s *Store) SaveSession(ctx context.Context, session Session) (Session, error) {
	if session.Exercise == "" {
		return Session{}, errors.New("session exercise is empty")
	}
	if session.ID == "" {
		session.ID = s.newID(session.StartedAt)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, exercise, source, reps, assisted_reps, assist_mode, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Exercise,
		session.Source,
		session.Reps,
		session.AssistedReps,
		session.AssistMode,
		session.StartedAt.UTC().Format(timeLayout),
		session.EndedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, exercise, source, reps, assisted_reps, assist_mode, started_at, ended_at
		 FROM sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

//ListSessions returns sessions newest first. Limit <= 0 means no limit
func (s *Store) ListSessions(ctx context.Context, params ListParams) ([]Session, error) {
	query := `SELECT id, exercise, source, reps, assisted_reps, assist_mode, started_at, ended_at FROM sessions`
	var args []any
	if params.Exercise != "" {
		query += ` WHERE exercise = ?`
		args = append(args, params.Exercise)
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if params.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, params.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

//Totals returns sessions and reps per exercise, sorted by exercise name
func (s *Store) Totals(ctx context.Context) ([]ExerciseTotals, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise, COUNT(*), COALESCE(SUM(reps), 0), COALESCE(SUM(assisted_reps), 0)
		 FROM sessions GROUP BY exercise ORDER BY exercise`)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	defer rows.Close()

	totals := make([]ExerciseTotals, 0)
	for rows.Next() {
		var t ExerciseTotals
		if err := rows.Scan(&t.Exercise, &t.Sessions, &t.Reps, &t.AssistedReps); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (Session, error) {
	var (
		session            Session
		startedAt, endedAt string
	)
	if err := sc.Scan(
		&session.ID,
		&session.Exercise,
		&session.Source,
		&session.Reps,
		&session.AssistedReps,
		&session.AssistMode,
		&startedAt,
		&endedAt,
	); err != nil {
		return Session{}, err
	}

	var err error
	if session.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}
	if session.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
		return Session{}, fmt.Errorf("parse ended_at: %w", err)
	}
	return session, nil
}
