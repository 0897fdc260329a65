// Package eventlog is the leveled text diagnostic log. Lines are appended to a
// store as "L HHMMSS message", preceded by year, month and day header lines
// whenever the date changes, and mirrored to the process log.
package eventlog

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/pulse-logger/internal/store"
)

// Level is the severity of a diagnostic message.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

// Char returns the single-letter code written to the log file.
func (l Level) Char() byte {
	switch l {
	case Error:
		return 'E'
	case Warn:
		return 'W'
	}
	return 'I'
}

func (l Level) String() string {
	switch l {
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	}
	return "INFO"
}

// Sink receives diagnostic messages. Implementations must not block the caller
// for long and never report failures back.
type Sink interface {
	Log(level Level, format string, args ...any)
}

// Log writes diagnostic lines to an append-only store.
type Log struct {
	st  store.Store
	now func() time.Time

	mu     sync.Mutex
	opened bool
	year   int
	month  time.Month
	day    int
}

// New creates a Log over st. now supplies timestamps; nil means time.Now.
func New(st store.Store, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{st: st, now: now}
}

// Begin opens the store and writes the date header.
func (l *Log) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openLocked()
}

func (l *Log) openLocked() error {
	if err := l.st.Open(); err != nil {
		l.opened = false
		return fmt.Errorf("open event log: %w", err)
	}
	l.opened = true
	l.writeHeaderLocked(l.now())
	if err := l.st.Flush(); err != nil {
		return fmt.Errorf("flush event log: %w", err)
	}
	return nil
}

// Log formats and appends one line. Failures to persist are reported to the
// process log only.
func (l *Log) Log(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("%s: %s", level, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.opened {
		return
	}

	t := l.now()
	l.writeHeaderLocked(t)
	line := fmt.Sprintf("%c %02d%02d%02d %s\n", level.Char(), t.Hour(), t.Minute(), t.Second(), msg)
	if _, err := l.st.Write([]byte(line)); err != nil {
		log.Printf("eventlog: write failed: %v", err)
		return
	}
	if err := l.st.Flush(); err != nil {
		log.Printf("eventlog: flush failed: %v", err)
	}
}

func (l *Log) writeHeaderLocked(t time.Time) {
	var hdr []byte
	if l.year != t.Year() {
		l.year = t.Year()
		hdr = fmt.Appendf(hdr, "%d\n", l.year)
	}
	if l.month != t.Month() {
		l.month = t.Month()
		hdr = fmt.Appendf(hdr, "%s\n", l.month.String()[:3])
	}
	if l.day != t.Day() {
		l.day = t.Day()
		hdr = fmt.Appendf(hdr, "%02d\n", l.day)
	}
	if len(hdr) == 0 {
		return
	}
	if _, err := l.st.Write(hdr); err != nil {
		log.Printf("eventlog: write header failed: %v", err)
	}
}

// Empty deletes the log and starts a fresh one, headers included.
func (l *Log) Empty() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.year, l.month, l.day = 0, 0, 0
	if err := l.st.Remove(); err != nil {
		l.opened = false
		return fmt.Errorf("remove event log: %w", err)
	}
	return l.openLocked()
}

// Close releases the store.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = false
	return l.st.Close()
}
