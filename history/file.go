package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the history as a JSON document, rewritten atomically on every change.
type FileStore struct {
	mu       sync.RWMutex
	records  []ScanRecord
	capacity int
	filePath string
}

// OpenFileStore loads (or creates) the history file in dataDir.
func OpenFileStore(dataDir string, capacity int) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &FileStore{
		capacity: normalizeCapacity(capacity),
		filePath: filepath.Join(dataDir, "history.json"),
	}

	data, err := os.ReadFile(s.filePath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read history: %w", err)
	default:
		if err := json.Unmarshal(data, &s.records); err != nil {
			return nil, fmt.Errorf("failed to decode history: %w", err)
		}
		if len(s.records) > s.capacity {
			s.records = s.records[:s.capacity]
		}
	}
	return s, nil
}

// save writes the records to a temporary file and renames it over the real one.
func (s *FileStore) save(records []ScanRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func (s *FileStore) Append(_ context.Context, rec ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := pushFront(s.records, rec, s.capacity)
	if err := s.save(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

func (s *FileStore) List(_ context.Context) ([]ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.records), nil
}

func (s *FileStore) Get(_ context.Context, id string) (ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findID(s.records, id)
}

func (s *FileStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := removeID(s.records, id)
	if !ok {
		return ErrNotFound
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
