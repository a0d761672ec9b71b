package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/scibee/farmwiz/internal/logger"
)

// ErrNotFound is returned by a Backend when no value exists for a key.
var ErrNotFound = errors.New("record not found")

// Backend is raw key/value storage for serialized records.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Store persists wizard records on top of a Backend. Every operation is
// best-effort: a missing or unreadable record loads as empty, and write
// failures are logged, never returned.
type Store struct {
	backend Backend
	log     *logger.Logger
}

// NewStore wraps a backend with the record codec.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		log:     logger.With("store"),
	}
}

// Load returns the record for key, or an empty record.
func (s *Store) Load(ctx context.Context, key string) Record {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("Failed to read record %s: %v", key, err)
		}
		return Record{}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Record{}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn("Discarding corrupt record %s: %v", key, err)
		return Record{}
	}
	if rec == nil {
		// "null" decodes to a nil map
		return Record{}
	}
	return rec
}

// Save serializes and writes rec under key.
func (s *Store) Save(ctx context.Context, key string, rec Record) {
	if rec == nil {
		rec = Record{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		s.log.Error("Failed to encode record %s: %v", key, err)
		return
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		s.log.Warn("Failed to persist record %s: %v", key, err)
		return
	}
	s.log.Debug("Saved record %s (%d keys)", key, len(rec))
}

// Clear removes the record stored under key.
func (s *Store) Clear(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Warn("Failed to clear record %s: %v", key, err)
		return
	}
	s.log.Debug("Cleared record %s", key)
}

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = bytes.Clone(data)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
