package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/armclient/internal/constants"
)

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Save stores cp under key.
func (s *MemoryStore) Save(ctx context.Context, key string, cp *Checkpoint) error {
	err := ValidateKey(key)
	if err != nil {
		return err
	}

	data, err := encode(cp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = data

	return nil
}

// Load returns the checkpoint stored under key.
func (s *MemoryStore) Load(ctx context.Context, key string) (*Checkpoint, error) {
	err := ValidateKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrCheckpointNotFound, key)
	}

	return decode(data)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	err := ValidateKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)

	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
