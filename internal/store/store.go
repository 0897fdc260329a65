// Package store provides the append-only byte stores backing the sensor and
// event logs.
package store

import (
	"errors"
	"io"
)

// ErrClosed is returned when writing to a store that is not open.
var ErrClosed = errors.New("store: not open")

// Store is an append-only byte sink that can be deleted and recreated.
type Store interface {
	// Open opens the store for appending, creating it if needed.
	Open() error

	// Write appends p and returns the number of bytes actually persisted.
	Write(p []byte) (int, error)

	// Flush pushes appended bytes to durable storage.
	Flush() error

	// Remove closes and deletes the store. Open must be called again before writing.
	Remove() error

	// Close releases the store. Closing a closed store is a no-op.
	Close() error
}

// Source is a store whose contents can be read back.
type Source interface {
	NewReader() (io.ReadCloser, error)
	Name() string
}

// Reopen deletes the store and opens it fresh.
func Reopen(s Store) error {
	if err := s.Remove(); err != nil {
		return err
	}
	return s.Open()
}
