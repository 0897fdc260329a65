// Package pulselog counts debounced pulses and persists them as a compact,
// segmented binary time series.
//
// The log is a sequence of two little-endian record kinds distinguished by
// their first uint16:
//
//	SegmentMarker  0xFFFF   int64 unix seconds            (10 bytes)
//	Entry          offset   uint16 pulses                 (4 bytes)
//
// Entry offsets count buckets since the most recent marker and are strictly
// increasing within a segment. 0xFFFF is never a valid offset.
package pulselog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// Delimiter opens a SegmentMarker.
	Delimiter uint16 = 0xFFFF

	// MaxOffset is the largest offset an Entry may carry.
	MaxOffset = Delimiter - 1

	// MaxPulses is the largest per-bucket count an Entry can hold.
	MaxPulses = 0xFFFF

	EntrySize  = 4
	MarkerSize = 10
)

// ErrTruncated is returned when the log ends partway through a record.
var ErrTruncated = errors.New("pulselog: truncated record")

// ErrOrphanEntry is returned when an entry precedes the first marker.
var ErrOrphanEntry = errors.New("pulselog: entry before first segment marker")

// Entry is one bucket's pulse count.
type Entry struct {
	Offset uint16 `json:"offset" yaml:"offset" cbor:"1,keyasint"`
	Pulses uint16 `json:"pulses" yaml:"pulses" cbor:"2,keyasint"`
}

// SegmentMarker starts a new time origin.
type SegmentMarker struct {
	Timestamp int64 // unix seconds
}

// AppendEntry appends the wire form of e to b.
func AppendEntry(b []byte, e Entry) []byte {
	b = binary.LittleEndian.AppendUint16(b, e.Offset)
	return binary.LittleEndian.AppendUint16(b, e.Pulses)
}

// AppendMarker appends the wire form of m to b.
func AppendMarker(b []byte, m SegmentMarker) []byte {
	b = binary.LittleEndian.AppendUint16(b, Delimiter)
	return binary.LittleEndian.AppendUint64(b, uint64(m.Timestamp))
}

// Record is one decoded item: exactly one of Marker or Entry is set.
type Record struct {
	Marker *SegmentMarker
	Entry  *Entry
}

// Decoder reads records from a log stream.
type Decoder struct {
	r   io.Reader
	buf [8]byte
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next record, or io.EOF at a clean end of stream.
func (d *Decoder) Next() (Record, error) {
	if _, err := io.ReadFull(d.r, d.buf[:2]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, ErrTruncated
		}
		return Record{}, err
	}

	head := binary.LittleEndian.Uint16(d.buf[:2])
	if head == Delimiter {
		if _, err := io.ReadFull(d.r, d.buf[:8]); err != nil {
			return Record{}, truncated(err)
		}
		ts := int64(binary.LittleEndian.Uint64(d.buf[:8]))
		return Record{Marker: &SegmentMarker{Timestamp: ts}}, nil
	}

	if _, err := io.ReadFull(d.r, d.buf[:2]); err != nil {
		return Record{}, truncated(err)
	}
	return Record{Entry: &Entry{Offset: head, Pulses: binary.LittleEndian.Uint16(d.buf[:2])}}, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

// Segment is a decoded run of entries sharing one time origin.
type Segment struct {
	Start   time.Time `json:"start" yaml:"start" cbor:"1,keyasint"`
	Entries []Entry   `json:"entries" yaml:"entries" cbor:"2,keyasint"`
}

// BucketStart returns the absolute start time of an entry's bucket.
func (s Segment) BucketStart(e Entry, width time.Duration) time.Time {
	return s.Start.Add(time.Duration(e.Offset) * width)
}

// Pulses returns the total pulses in the segment.
func (s Segment) Pulses() int {
	n := 0
	for _, e := range s.Entries {
		n += int(e.Pulses)
	}
	return n
}

// ReadSegments decodes a whole log. On a decode error the segments read so
// far are returned along with the error, so a truncated tail still yields
// everything before it.
func ReadSegments(r io.Reader) ([]Segment, error) {
	dec := NewDecoder(r)
	var segs []Segment
	for {
		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return segs, nil
		}
		if err != nil {
			return segs, err
		}

		if rec.Marker != nil {
			segs = append(segs, Segment{Start: time.Unix(rec.Marker.Timestamp, 0).UTC()})
			continue
		}
		if len(segs) == 0 {
			return segs, ErrOrphanEntry
		}
		cur := &segs[len(segs)-1]
		if n := len(cur.Entries); n > 0 && rec.Entry.Offset <= cur.Entries[n-1].Offset {
			return segs, fmt.Errorf("pulselog: offset %d after %d in segment starting %s",
				rec.Entry.Offset, cur.Entries[n-1].Offset, cur.Start.Format(time.RFC3339))
		}
		cur.Entries = append(cur.Entries, *rec.Entry)
	}
}
