// Package feedback submits behavioral feedback events to the analytics
// service and retries undelivered events from a durable FIFO queue.
package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hustlexp/insight/pkg/models"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// Entry is one undelivered feedback event held for retry. Entries keep the
// exact original payload and its kind so redelivery reconstructs the
// original request deterministically.
type Entry struct {
	ID         int64            `json:"id"`
	Kind       models.EventKind `json:"kind"`
	Payload    json.RawMessage  `json:"payload"`
	EnqueuedAt time.Time        `json:"enqueuedAt"`
	Attempts   int              `json:"attempts"`
}

// Store persists queue entries in strict FIFO order.
type Store interface {
	// Append adds an entry at the tail and sets its ID.
	Append(ctx context.Context, entry *Entry) error
	// Head returns the oldest entry, or nil when the queue is empty.
	Head(ctx context.Context) (*Entry, error)
	// Remove deletes a delivered entry.
	Remove(ctx context.Context, id int64) error
	// MarkAttempt increments an entry's delivery attempt count.
	MarkAttempt(ctx context.Context, id int64) error
	// Len returns the number of pending entries.
	Len(ctx context.Context) (int, error)
	Close() error
}

// MemoryStore keeps entries in memory. Pending events are lost on process
// exit; intended for tests and explicit opt-out of durability.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*Entry
	nextID  int64
}

// NewMemoryStore returns an empty in-memory queue store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Append adds the entry at the tail.
func (s *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextID
	s.nextID++
	stored := *entry
	s.entries = append(s.entries, &stored)
	return nil
}

// Head returns the oldest entry.
func (s *MemoryStore) Head(ctx context.Context) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, nil
	}
	head := *s.entries[0]
	return &head, nil
}

// Remove deletes the entry with the given id.
func (s *MemoryStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// MarkAttempt increments the attempt count.
func (s *MemoryStore) MarkAttempt(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			e.Attempts++
			return nil
		}
	}
	return nil
}

// Len returns the number of pending entries.
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// SQLiteStore persists queue entries in SQLite so pending telemetry survives
// process restarts.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteStoreConfig configures the SQLite queue store.
type SQLiteStoreConfig struct {
	Path string // Path to the database file; ":memory:" for an ephemeral store
}

// NewSQLiteStore opens (creating if needed) the queue store at cfg.Path.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback_queue (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL,
			payload     BLOB NOT NULL,
			enqueued_at DATETIME NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("create feedback_queue table: %w", err)
	}
	return nil
}

// Append adds the entry at the tail.
func (s *SQLiteStore) Append(ctx context.Context, entry *Entry) error {
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_queue (kind, payload, enqueued_at, attempts)
		VALUES (?, ?, ?, ?)
	`, string(entry.Kind), []byte(entry.Payload), entry.EnqueuedAt, entry.Attempts)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// Head returns the oldest entry, or nil when the queue is empty.
func (s *SQLiteStore) Head(ctx context.Context) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, payload, enqueued_at, attempts
		FROM feedback_queue ORDER BY id LIMIT 1
	`)
	var entry Entry
	var kind string
	err := row.Scan(&entry.ID, &kind, (*[]byte)(&entry.Payload), &entry.EnqueuedAt, &entry.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}
	entry.Kind = models.EventKind(kind)
	return &entry, nil
}

// Remove deletes the entry with the given id.
func (s *SQLiteStore) Remove(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM feedback_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove entry %d: %w", id, err)
	}
	return nil
}

// MarkAttempt increments the attempt count.
func (s *SQLiteStore) MarkAttempt(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE feedback_queue SET attempts = attempts + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark attempt %d: %w", id, err)
	}
	return nil
}

// Len returns the number of pending entries.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback_queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
