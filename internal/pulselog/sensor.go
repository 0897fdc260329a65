package pulselog

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/pulse-logger/internal/debounce"
	"github.com/sweeney/pulse-logger/internal/eventlog"
	"github.com/sweeney/pulse-logger/internal/store"
)

// DefaultBufferSize is the number of entries held in memory between writes.
const DefaultBufferSize = 1024

var (
	// ErrShortWrite is reported when the store persists fewer bytes than requested.
	ErrShortWrite = errors.New("pulselog: short write")

	// ErrStoreUnavailable is returned by writes while the store could not be opened.
	ErrStoreUnavailable = errors.New("pulselog: log store unavailable")
)

// Config holds the sensor's bucketing parameters.
type Config struct {
	// BucketWidth is the time covered by one entry. Whole seconds, at least 1s.
	BucketWidth time.Duration

	// BufferSize is how many entries are batched per store write.
	// Zero means DefaultBufferSize.
	BufferSize int
}

// Bucket is a closed entry together with its absolute start time.
type Bucket struct {
	Entry
	Start time.Time
	Width time.Duration
}

// Stats is a point-in-time view of the sensor for status reporting.
type Stats struct {
	Level          bool
	TotalPulses    uint64
	PendingPulses  uint32
	EntriesWritten uint64
	EntriesDropped uint64
	Segments       uint64
	SegmentStart   time.Time
	Buffered       int
	WriteErrors    uint64
	StoreOK        bool
}

// Sensor counts falling edges from a debouncer and logs them per time bucket.
//
// Update is the fast path: it polls the debouncer and increments the pulse
// counter. Record is the bookkeeping path: it buckets wall-clock time, closes
// and opens entries, and writes the log. The two may run on different
// goroutines; the counter is exchanged atomically so no pulse is lost or
// counted twice. Update must not be called concurrently with itself.
type Sensor struct {
	deb   debounce.Debouncer
	st    store.Store
	sink  eventlog.Sink
	width int64 // seconds

	pulses atomic.Uint32
	total  atomic.Uint64
	level  atomic.Bool

	mu         sync.Mutex
	storeOK    bool
	entries    []Entry
	wire       []byte
	started    bool
	segStart   int64 // unix seconds
	open       bool
	openOffset uint16

	written     uint64
	dropped     uint64
	segments    uint64
	writeErrors uint64
}

// NewSensor creates a Sensor that owns deb and persists to st. Diagnostics go
// to sink.
func NewSensor(deb debounce.Debouncer, st store.Store, sink eventlog.Sink, cfg Config) (*Sensor, error) {
	if cfg.BucketWidth < time.Second {
		return nil, fmt.Errorf("bucket width %v: must be at least 1s", cfg.BucketWidth)
	}
	if cfg.BucketWidth%time.Second != 0 {
		return nil, fmt.Errorf("bucket width %v: must be whole seconds", cfg.BucketWidth)
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	if sink == nil {
		sink = eventlog.Discard
	}

	return &Sensor{
		deb:     deb,
		st:      st,
		sink:    sink,
		width:   int64(cfg.BucketWidth / time.Second),
		entries: make([]Entry, 0, size),
		wire:    make([]byte, 0, size*EntrySize),
	}, nil
}

// Begin seeds the debouncer and opens the log for appending. A log that
// cannot be opened is reported and the sensor keeps counting in memory.
func (s *Sensor) Begin() error {
	if err := s.deb.Begin(); err != nil {
		return fmt.Errorf("begin sensor: %w", err)
	}
	s.level.Store(s.deb.Read())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.openStoreLocked()
	return nil
}

func (s *Sensor) openStoreLocked() {
	if err := s.st.Open(); err != nil {
		s.storeOK = false
		s.sink.Log(eventlog.Error, "Failed to open log file: %v", err)
		return
	}
	s.storeOK = true
}

// Update polls the debouncer once and counts a pulse on a falling edge.
func (s *Sensor) Update() error {
	if err := s.deb.Update(); err != nil {
		return err
	}
	s.level.Store(s.deb.Read())
	if s.deb.Fell() {
		s.pulses.Add(1)
		s.total.Add(1)
	}
	return nil
}

// Record advances bucketing to now. When now falls in a new bucket the open
// entry is closed with the pulses counted since it opened and returned; a
// new entry is opened for the current bucket.
//
// A new segment is started on the first call, after Reset, when the offset
// would reach Delimiter, and when the wall clock moves backwards.
func (s *Sensor) Record(now time.Time) (Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now.Unix()
	if !s.started || ts < s.segStart {
		return s.rolloverLocked(ts)
	}

	offset := (ts - s.segStart) / s.width
	if s.open {
		if offset == int64(s.openOffset) {
			return Bucket{}, false
		}
		if offset < int64(s.openOffset) {
			return s.rolloverLocked(ts)
		}
	}
	if offset >= int64(Delimiter) {
		return s.rolloverLocked(ts)
	}

	closed, ok := s.closeEntryLocked()
	s.open = true
	s.openOffset = uint16(offset)
	return closed, ok
}

// UpdateAt records at now and then polls, so a pulse seen on this call is
// attributed to now's bucket.
func (s *Sensor) UpdateAt(now time.Time) (Bucket, bool, error) {
	b, ok := s.Record(now)
	err := s.Update()
	return b, ok, err
}

// rolloverLocked closes the open entry, writes buffered entries, starts a
// new segment at ts and opens offset 0.
func (s *Sensor) rolloverLocked(ts int64) (Bucket, bool) {
	closed, ok := s.closeEntryLocked()
	s.writeBufferLocked()

	s.started = true
	s.segStart = ts
	s.segments++
	s.open = true
	s.openOffset = 0

	s.persistLocked(AppendMarker(nil, SegmentMarker{Timestamp: ts}), "segment marker")
	s.sink.Log(eventlog.Info, "Sensor: reset timestamp at %d", ts)
	return closed, ok
}

// closeEntryLocked exchanges the pulse counter into the open entry and
// buffers it, writing the buffer when full.
func (s *Sensor) closeEntryLocked() (Bucket, bool) {
	if !s.open {
		return Bucket{}, false
	}
	s.open = false

	n := s.pulses.Swap(0)
	if n > MaxPulses {
		s.sink.Log(eventlog.Warn, "Sensor: %d pulses in bucket %d, clamped to %d", n, s.openOffset, MaxPulses)
		n = MaxPulses
	}
	e := Entry{Offset: s.openOffset, Pulses: uint16(n)}

	s.entries = append(s.entries, e)
	if len(s.entries) == cap(s.entries) {
		s.writeBufferLocked()
	}

	return Bucket{
		Entry: e,
		Start: time.Unix(s.segStart+int64(e.Offset)*s.width, 0),
		Width: time.Duration(s.width) * time.Second,
	}, true
}

// writeBufferLocked writes all buffered entries in one batch. The buffer is
// emptied whether or not the write succeeds.
func (s *Sensor) writeBufferLocked() error {
	count := len(s.entries)
	if count == 0 {
		return nil
	}

	s.wire = s.wire[:0]
	for _, e := range s.entries {
		s.wire = AppendEntry(s.wire, e)
	}
	s.entries = s.entries[:0]

	if err := s.persistLocked(s.wire, fmt.Sprintf("log buffer (%d entries)", count)); err != nil {
		s.dropped += uint64(count)
		return err
	}
	s.written += uint64(count)
	return nil
}

// persistLocked appends p to the store and flushes. Failures are reported to
// the sink and not retried.
func (s *Sensor) persistLocked(p []byte, what string) error {
	if !s.storeOK {
		s.sink.Log(eventlog.Warn, "Log file unavailable, %s not written", what)
		return ErrStoreUnavailable
	}

	n, err := s.st.Write(p)
	if err == nil && n != len(p) {
		err = fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(p))
	}
	if err != nil {
		s.writeErrors++
		s.sink.Log(eventlog.Error, "Failed to write %s: %v", what, err)
		return err
	}

	if err := s.st.Flush(); err != nil {
		s.sink.Log(eventlog.Error, "Failed to flush log file: %v", err)
		return fmt.Errorf("flush log: %w", err)
	}
	return nil
}

// Flush writes closed entries still held in memory. The open entry stays open.
func (s *Sensor) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeBufferLocked()
}

// Reset deletes the log and recreates it empty. Buffered and open entries
// are discarded with it, and the next Record starts a new segment. Pulses
// not yet exchanged are kept and land in that segment's first entry.
func (s *Sensor) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = s.entries[:0]
	s.open = false
	s.started = false

	if err := store.Reopen(s.st); err != nil {
		s.storeOK = false
		s.sink.Log(eventlog.Error, "Failed to empty log file: %v", err)
		return fmt.Errorf("reset log: %w", err)
	}
	s.storeOK = true
	s.sink.Log(eventlog.Info, "Sensor: log emptied")
	return nil
}

// Close closes the open entry, writes everything buffered and releases the
// store. The sensor must not be used afterwards.
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeEntryLocked()
	werr := s.writeBufferLocked()

	s.storeOK = false
	if err := s.st.Close(); err != nil {
		return fmt.Errorf("close log: %w", err)
	}
	return werr
}

// Stats returns a snapshot for status reporting.
func (s *Sensor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Level:          s.level.Load(),
		TotalPulses:    s.total.Load(),
		PendingPulses:  s.pulses.Load(),
		EntriesWritten: s.written,
		EntriesDropped: s.dropped,
		Segments:       s.segments,
		Buffered:       len(s.entries),
		WriteErrors:    s.writeErrors,
		StoreOK:        s.storeOK,
	}
	if s.started {
		st.SegmentStart = time.Unix(s.segStart, 0)
	}
	return st
}
