// Package store persists chat turns in SQLite. Writes are append-only: a
// turn is never mutated or deleted after persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"gemchat/internal/chat"
)

type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the turn database at the given path, ensuring the
// parent directory exists.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	// seq breaks created_at ties in insertion order.
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_message TEXT NOT NULL,
			llm_response TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at_ms, seq);
	`)
	return err
}

// Append writes a new turn and returns it with its store-assigned id.
func (s *SQLite) Append(ctx context.Context, userMessage, modelReply string, createdAt time.Time) (chat.Turn, error) {
	id := ulid.Make().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, user_message, llm_response, created_at_ms) VALUES (?, ?, ?, ?)`,
		id, userMessage, modelReply, createdAt.UnixMilli(),
	)
	if err != nil {
		return chat.Turn{}, fmt.Errorf("insert turn: %w", err)
	}
	return chat.Turn{
		ID:          id,
		UserMessage: userMessage,
		ModelReply:  modelReply,
		CreatedAt:   createdAt.UTC().Truncate(time.Millisecond),
	}, nil
}

// List returns all turns ascending by creation time; ties preserve insertion
// order. An empty store yields an empty slice, not an error.
func (s *SQLite) List(ctx context.Context) ([]chat.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_message, llm_response, created_at_ms FROM turns ORDER BY created_at_ms ASC, seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []chat.Turn{}
	for rows.Next() {
		var t chat.Turn
		var ms int64
		if err := rows.Scan(&t.ID, &t.UserMessage, &t.ModelReply, &ms); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.CreatedAt = time.UnixMilli(ms).UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
