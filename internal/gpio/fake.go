package gpio

import "errors"

// FakeInput is a test double that returns scripted levels.
type FakeInput struct {
	// Levels contains scripted values to return.
	// Each call to Read() consumes the next level.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeInput creates a FakeInput with the given levels.
func NewFakeInput(levels ...bool) *FakeInput {
	return &FakeInput{Levels: levels}
}

// Read returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeInput) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}

	return level, nil
}

// Set replaces the script with a single level held indefinitely.
func (f *FakeInput) Set(level bool) {
	f.Levels = []bool{level}
	f.index = 0
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the input to the first scripted level.
func (f *FakeInput) Reset() {
	f.index = 0
	f.Closed = false
}
