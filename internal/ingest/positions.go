package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PositionStore tracks how far into each followed file the reader has
// progressed, so follow mode resumes after a restart instead of
// re-emitting the whole file.
type PositionStore struct {
	path    string
	mu      sync.RWMutex
	entries map[string]*Position
	dirty   bool
}

// Position is the persisted read state of one file. Inode and device
// identify the file across renames and rotation; Line keeps record
// provenance numbering continuous across restarts.
type Position struct {
	Path     string    `json:"path"`
	Inode    uint64    `json:"inode"`
	Device   uint64    `json:"device"`
	Offset   int64     `json:"offset"`
	Line     int       `json:"line"`
	Modified time.Time `json:"modified"`
}

// NewPositionStore creates a position store persisted at path.
func NewPositionStore(path string) (*PositionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating positions directory: %w", err)
	}

	return &PositionStore{
		path:    path,
		entries: make(map[string]*Position),
	}, nil
}

// Load reads persisted positions from disk. A missing file is a fresh
// start, not an error.
func (s *PositionStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading positions: %w", err)
	}

	var entries map[string]*Position
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing positions: %w", err)
	}

	s.entries = entries
	s.dirty = false
	return nil
}

// Save persists positions to disk, atomically via a temp file rename.
func (s *PositionStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling positions: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing positions: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming positions: %w", err)
	}

	s.dirty = false
	return nil
}

// Get returns the stored position for a file identity, or nil.
func (s *PositionStore) Get(path string, inode, device uint64) *Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entries[s.key(path, inode, device)]
}

// Set updates the stored position for a file identity.
func (s *PositionStore) Set(path string, inode, device uint64, offset int64, line int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[s.key(path, inode, device)] = &Position{
		Path:     path,
		Inode:    inode,
		Device:   device,
		Offset:   offset,
		Line:     line,
		Modified: time.Now(),
	}
	s.dirty = true
}

// RemoveStale drops entries that have not been touched within maxAge.
func (s *PositionStore) RemoveStale(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for key, entry := range s.entries {
		if entry.Modified.Before(cutoff) {
			delete(s.entries, key)
			s.dirty = true
		}
	}
}

func (s *PositionStore) key(path string, inode, device uint64) string {
	return fmt.Sprintf("%s|%d|%d", path, inode, device)
}
