// Package results persists the outcome of finished matches.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// ErrNotInitialized is returned by stores used before Init.
var ErrNotInitialized = errors.New("results: store is not initialized")

// Record is the persisted summary of one match.
type Record struct {
	MatchID    string    `json:"matchId"`
	Seed       string    `json:"seed"`
	Winner     string    `json:"winner"`
	ScoreRed   int       `json:"scoreRed"`
	ScoreBlue  int       `json:"scoreBlue"`
	Ticks      int       `json:"ticks"`
	Shots      int       `json:"shots"`
	LostBalls  int       `json:"lostBalls"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Store records match results. Recording an existing match id replaces the
// earlier record.
type Store interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, rec Record) error
	Get(ctx context.Context, matchID string) (Record, bool, error)
	// List returns the most recently finished records first. A limit <= 0
	// returns every record.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// NewStore builds an uninitialised store for the named backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		if strings.TrimSpace(sqlitePath) == "" {
			return nil, errors.New("results: sqlite path is required")
		}
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("results: unsupported store backend: %s", kind)
	}
}

// Open builds and initialises a store in one call.
func Open(ctx context.Context, kind, sqlitePath string) (Store, error) {
	store, err := NewStore(kind, sqlitePath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s results store: %w", kind, err)
	}
	return store, nil
}

func validate(rec Record) error {
	if strings.TrimSpace(rec.MatchID) == "" {
		return errors.New("results: match id is required")
	}
	return nil
}

func sortRecent(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].FinishedAt.Equal(records[j].FinishedAt) {
			return records[i].FinishedAt.After(records[j].FinishedAt)
		}
		return records[i].MatchID < records[j].MatchID
	})
}
