package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/relabs-tech/beacon_tracker/internal/telemetry"
)

// FileStore appends rendered event lines to a file, one per event, and syncs
// after each write. At one beacon per second the sync cost is irrelevant and
// it keeps the log intact across power cuts, which is the whole point of a
// black box.
type FileStore struct {
	mu sync.Mutex
	f  *os.File
}

func OpenFile(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &FileStore{f: f}, nil
}

func (s *FileStore) Append(ev telemetry.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.f.WriteString(ev.Render() + "\n"); err != nil {
		return fmt.Errorf("event log write: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("event log sync: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
