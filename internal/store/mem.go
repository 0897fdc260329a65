package store

import (
	"bytes"
	"io"
	"sync"
)

// MemStore is an in-memory Store for tests. Failure modes are scriptable.
type MemStore struct {
	mu sync.Mutex

	buf  bytes.Buffer
	open bool

	// OpenError, if set, is returned by Open.
	OpenError error

	// ShortBy, if non-zero, makes each Write persist that many fewer bytes
	// than requested (never below zero).
	ShortBy int

	// WriteError, if set, is returned by Write after the (possibly short) append.
	WriteError error

	// Writes counts Write calls. Flushes counts Flush calls.
	Writes  int
	Flushes int
	Removes int
}

// NewMemStore creates an empty, closed MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Open marks the store open unless OpenError is set.
func (m *MemStore) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenError != nil {
		return m.OpenError
	}
	m.open = true
	return nil
}

// Write appends p, honoring ShortBy and WriteError.
func (m *MemStore) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return 0, ErrClosed
	}
	m.Writes++

	n := len(p) - m.ShortBy
	if n < 0 {
		n = 0
	}
	m.buf.Write(p[:n])
	return n, m.WriteError
}

// Flush records the call.
func (m *MemStore) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return ErrClosed
	}
	m.Flushes++
	return nil
}

// Remove discards all content and closes the store.
func (m *MemStore) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf.Reset()
	m.open = false
	m.Removes++
	return nil
}

// Close marks the store closed; content is kept.
func (m *MemStore) Close() error {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
	return nil
}

// IsOpen reports whether Open succeeded and neither Close nor Remove followed.
func (m *MemStore) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Bytes returns a copy of everything persisted so far.
func (m *MemStore) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.buf.Bytes())
}

// NewReader returns a reader over a snapshot of the content.
func (m *MemStore) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.Bytes())), nil
}

// Name returns a fixed name.
func (m *MemStore) Name() string {
	return "mem"
}
