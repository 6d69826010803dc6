package store

import (
	"context"
	"sort"
	"sync"

	"github.com/flowcanvas/flowcanvas/pkg/errors"
)

// MemoryStore keeps snapshots in memory. Default backend for the CLI
// and for tests; history does not survive the process.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

// Save archives a snapshot.
func (s *MemoryStore) Save(ctx context.Context, snap Snapshot) error {
	if snap.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "snapshot ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.snaps[snap.ID]; exists {
		return errors.New(errors.ErrCodeInvalidInput, "snapshot ID already exists: %s", snap.ID)
	}
	s.snaps[snap.ID] = snap
	return nil
}

// List returns snapshots for a config, newest first.
func (s *MemoryStore) List(ctx context.Context, configID string, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Snapshot, 0)
	for _, snap := range s.snaps {
		if snap.ConfigID == configID {
			result = append(result, snap)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].SavedAt.Equal(result[j].SavedAt) {
			return result[i].SavedAt.After(result[j].SavedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Get retrieves a snapshot by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[id]
	if !ok {
		return Snapshot{}, errors.New(errors.ErrCodeNotFound, "snapshot not found: %s", id)
	}
	return snap, nil
}

// Close does nothing for the in-memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
