package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore appends to a single file. While open it holds an exclusive
// advisory lock so two daemons cannot interleave records.
type FileStore struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewFileStore creates a store for path. Nothing is touched until Open.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Name returns the base file name, used for downloads.
func (s *FileStore) Name() string {
	return filepath.Base(s.path)
}

// Open opens the file in append mode, creating parent directories.
func (s *FileStore) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return fmt.Errorf("lock %s: %w", s.path, err)
	}

	s.file = f
	return nil
}

// Write appends p to the file.
func (s *FileStore) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return 0, ErrClosed
	}
	return s.file.Write(p)
}

// Flush fsyncs the file.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}
	return s.file.Sync()
}

// Remove closes and deletes the file. A missing file is not an error.
func (s *FileStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, err)
	}
	return nil
}

// Close unlocks and closes the file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *FileStore) closeLocked() error {
	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil

	unlockFile(f)
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}

// NewReader opens an independent read handle on the file.
func (s *FileStore) NewReader() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s for read: %w", s.path, err)
	}
	return f, nil
}
