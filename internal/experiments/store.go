package experiments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hustlexp/insight/internal/storage"
)

// StorageKey is the fixed key under which the whole assignment map is persisted.
const StorageKey = "ab_test_assignments"

// AssignmentStore holds each user's experiment assignments, loaded once from
// durable storage and persisted as a whole after every new assignment.
//
// Construction starts the load asynchronously; every read and write waits on
// an init gate until the load has finished, so reads never race ahead of the
// persisted data. After load the in-memory map is the single-writer copy.
type AssignmentStore struct {
	kv     storage.KV
	key    string
	logger *slog.Logger

	ready chan struct{}

	mu          sync.Mutex
	assignments map[string][]Assignment
}

// AssignmentStoreOption configures an AssignmentStore.
type AssignmentStoreOption func(*AssignmentStore)

// WithStorageKey overrides the persistence key.
func WithStorageKey(key string) AssignmentStoreOption {
	return func(s *AssignmentStore) { s.key = key }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) AssignmentStoreOption {
	return func(s *AssignmentStore) { s.logger = logger }
}

// NewAssignmentStore creates the store and begins loading persisted state.
func NewAssignmentStore(kv storage.KV, opts ...AssignmentStoreOption) *AssignmentStore {
	s := &AssignmentStore{
		kv:          kv,
		key:         StorageKey,
		logger:      slog.Default().With("component", "experiments.store"),
		ready:       make(chan struct{}),
		assignments: make(map[string][]Assignment),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.load()
	return s
}

// load reads the persisted map. A missing key or corrupt value degrades to an
// empty map; the store stays usable for the current process lifetime.
func (s *AssignmentStore) load() {
	defer close(s.ready)

	data, err := s.kv.Get(context.Background(), s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Error("failed to load assignments", "error", err)
		return
	}

	var loaded map[string][]Assignment
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Error("failed to decode assignments", "error", err)
		return
	}

	s.mu.Lock()
	s.assignments = loaded
	s.mu.Unlock()
}

// awaitReady blocks until the initial load finished or ctx is done.
func (s *AssignmentStore) awaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the user's assignment for the experiment, if any.
func (s *AssignmentStore) Get(ctx context.Context, userID, experimentID string) (Assignment, bool, error) {
	if err := s.awaitReady(ctx); err != nil {
		return Assignment{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments[userID] {
		if a.ExperimentID == experimentID {
			return a, true, nil
		}
	}
	return Assignment{}, false, nil
}

// List returns all of the user's assignments in assignment order.
func (s *AssignmentStore) List(ctx context.Context, userID string) ([]Assignment, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Assignment, len(s.assignments[userID]))
	copy(out, s.assignments[userID])
	return out, nil
}

// Add appends a new assignment and persists the whole map. A persistence
// failure is returned after the in-memory state was updated: the assignment
// stays effective for this process but will not survive a restart.
func (s *AssignmentStore) Add(ctx context.Context, userID string, assignment Assignment) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.assignments[userID] = append(s.assignments[userID], assignment)
	data, err := json.Marshal(s.assignments)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode assignments: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist assignments: %w", err)
	}
	return nil
}
