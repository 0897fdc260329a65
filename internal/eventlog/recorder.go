package eventlog

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one recorded diagnostic.
type Entry struct {
	Level   Level
	Message string
}

// Recorder is a Sink that keeps messages in memory for test assertions.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log records the formatted message.
func (r *Recorder) Log(level Level, format string, args ...any) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprintf(format, args...)})
	r.mu.Unlock()
}

// Entries returns a copy of everything recorded.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns how many entries at level contain substr.
func (r *Recorder) Count(level Level, substr string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(Level, string, ...any) {}
