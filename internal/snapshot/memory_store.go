package snapshot

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/odds-tracker/internal/models"
)

// MemoryStore keeps encoded snapshots in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores raw content under key, replacing anything there. Used to stage fixtures.
func (s *MemoryStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

// List returns every snapshot key in ascending order
func (s *MemoryStore) List(ctx context.Context) ([]Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]Ref, 0, len(s.objects))
	for key := range s.objects {
		if IsSnapshotKey(key) {
			refs = append(refs, Ref{Key: key})
		}
	}
	sortRefs(refs)
	return refs, nil
}

// Load decodes one stored snapshot
func (s *MemoryStore) Load(ctx context.Context, ref Ref) (models.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.objects[ref.Key]
	s.mu.RUnlock()
	if !ok {
		return models.Snapshot{}, fmt.Errorf("%w: %s: not found", models.ErrCorruptSnapshot, ref.Key)
	}
	return Decode(ref.Key, data)
}

// Append stores a snapshot; an existing key is rejected
func (s *MemoryStore) Append(ctx context.Context, snap models.Snapshot) (Ref, error) {
	ref := Ref{Key: KeyFor(snap.Timestamp)}
	data, err := Encode(snap)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", models.ErrStorageWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[ref.Key]; exists {
		return Ref{}, fmt.Errorf("%w: %s already exists", models.ErrStorageWrite, ref.Key)
	}
	s.objects[ref.Key] = data
	return ref, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
