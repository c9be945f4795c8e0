package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Record(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO match_results (match_id, seed, winner, score_red, score_blue, ticks, shots, lost_balls, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id) DO UPDATE SET
			seed = excluded.seed,
			winner = excluded.winner,
			score_red = excluded.score_red,
			score_blue = excluded.score_blue,
			ticks = excluded.ticks,
			shots = excluded.shots,
			lost_balls = excluded.lost_balls,
			finished_at = excluded.finished_at
	`, rec.MatchID, rec.Seed, rec.Winner, rec.ScoreRed, rec.ScoreBlue, rec.Ticks, rec.Shots, rec.LostBalls, rec.FinishedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("record match %s: %w", rec.MatchID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, matchID string) (Record, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Record{}, false, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT match_id, seed, winner, score_red, score_blue, ticks, shots, lost_balls, finished_at
		FROM match_results WHERE match_id = ?
	`, matchID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get match %s: %w", matchID, err)
	}
	return rec, true, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT match_id, seed, winner, score_red, score_blue, ticks, shots, lost_balls, finished_at
		FROM match_results
		ORDER BY finished_at DESC, match_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec      Record
		finished int64
	)
	if err := row.Scan(&rec.MatchID, &rec.Seed, &rec.Winner, &rec.ScoreRed, &rec.ScoreBlue, &rec.Ticks, &rec.Shots, &rec.LostBalls, &finished); err != nil {
		return Record{}, err
	}
	rec.FinishedAt = time.Unix(0, finished).UTC()
	return rec, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS match_results (
			match_id TEXT PRIMARY KEY,
			seed TEXT NOT NULL,
			winner TEXT NOT NULL,
			score_red INTEGER NOT NULL,
			score_blue INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			shots INTEGER NOT NULL,
			lost_balls INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS match_results_finished_at ON match_results (finished_at);
	`)
	return err
}
