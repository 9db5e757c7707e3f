package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when no record has the requested identifier.
var ErrNotFound = errors.New("scan record not found")

// Store keeps the most recent scans, newest first. Implementations are bounded:
// appending beyond capacity evicts the oldest record. Mutations are atomic with
// respect to each other.
type Store interface {
	Append(ctx context.Context, rec ScanRecord) error
	List(ctx context.Context) ([]ScanRecord, error)
	Get(ctx context.Context, id string) (ScanRecord, error)
	Remove(ctx context.Context, id string) error
	Close() error
}

// cloneAll deep-copies list; stores hand out copies only.
func cloneAll(list []ScanRecord) []ScanRecord {
	out := make([]ScanRecord, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}

// pushFront inserts rec at the head of list and truncates it to capacity.
func pushFront(list []ScanRecord, rec ScanRecord, capacity int) []ScanRecord {
	out := make([]ScanRecord, 0, min(len(list)+1, capacity))
	out = append(out, rec.Clone())
	for _, r := range list {
		if len(out) >= capacity {
			break
		}
		out = append(out, r)
	}
	return out
}

func removeID(list []ScanRecord, id string) ([]ScanRecord, bool) {
	for i, r := range list {
		if r.ID == id {
			out := make([]ScanRecord, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}

func findID(list []ScanRecord, id string) (ScanRecord, error) {
	for _, r := range list {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return ScanRecord{}, ErrNotFound
}

func normalizeCapacity(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []ScanRecord
	capacity int
}

// NewMemoryStore creates a store holding at most capacity records.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: normalizeCapacity(capacity)}
}

func (m *MemoryStore) Append(_ context.Context, rec ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = pushFront(m.records, rec, m.capacity)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]ScanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.records), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (ScanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findID(m.records, id)
}

func (m *MemoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok bool
	if m.records, ok = removeID(m.records, id); !ok {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Open returns the Store for the named backend: "memory", "file" or "sqlite".
func Open(backend, dataDir string, capacity int) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return NewMemoryStore(capacity), nil
	case "file", "json":
		return OpenFileStore(dataDir, capacity)
	case "sqlite":
		return OpenSQLiteStore(filepath.Join(dataDir, "history.db"), capacity)
	}
	return nil, fmt.Errorf("unknown history backend %q", backend)
}
