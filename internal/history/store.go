// Package history records every provisioning attempt in a DuckDB ledger.
// It never stores log records.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/lookout/internal/provision"
)

// Entry is one row of the ledger.
type Entry struct {
	ID        int64     `json:"id"`
	At        time.Time `json:"at"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Requested int       `json:"requested"`
	Started   int       `json:"started"`
	Error     string    `json:"error,omitempty"`
}

// Store owns the DuckDB connection.
type Store struct {
	mu           sync.RWMutex
	db           *sql.DB
	path         string
	version      int
	QueryTimeout time.Duration
}

// Open opens or creates the ledger at path. An empty path is in-memory.
func Open(path string, queryTimeout ...time.Duration) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	version, err := migrate(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	qt := 5 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}
	return &Store{db: db, path: path, version: version, QueryTimeout: qt}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SchemaVersion is the newest applied migration.
func (s *Store) SchemaVersion() int { return s.version }

// Record inserts one outcome.
func (s *Store) Record(ctx context.Context, o provision.Outcome) error {
	var errText sql.NullString
	if o.Err != nil {
		errText = sql.NullString{String: o.Err.Error(), Valid: true}
	}
	at := o.At
	if at.IsZero() {
		at = time.Now()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO provisions (provisioned_at, name, kind, requested, started, error) VALUES (?, ?, ?, ?, ?, ?)`,
		at.UTC(), o.Name, string(o.Kind), o.Requested, o.Started, errText)
	if err != nil {
		return fmt.Errorf("record provision %q: %w", o.Name, err)
	}
	return nil
}

// Observe records o, logging failures. It satisfies provision.Observer.
func (s *Store) Observe(o provision.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), s.QueryTimeout)
	defer cancel()
	if err := s.Record(ctx, o); err != nil {
		log.Printf("history: %v", err)
	}
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provisioned_at, name, kind, requested, started, error FROM provisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var errText sql.NullString
		if err := rows.Scan(&e.ID, &e.At, &e.Name, &e.Kind, &e.Requested, &e.Started, &errText); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Error = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of recorded attempts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM provisions`).Scan(&n)
	return n, err
}
