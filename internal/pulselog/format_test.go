package pulselog

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireLayout(t *testing.T) {
	b := AppendMarker(nil, SegmentMarker{Timestamp: 0x0102030405060708})
	b = AppendEntry(b, Entry{Offset: 0x0010, Pulses: 0x0203})

	assert.Equal(t, []byte{
		0xFF, 0xFF, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x10, 0x00, 0x03, 0x02,
	}, b)
	assert.Len(t, b, MarkerSize+EntrySize)
}

func TestDecoderRecords(t *testing.T) {
	var b []byte
	b = AppendMarker(b, SegmentMarker{Timestamp: 1760000000})
	b = AppendEntry(b, Entry{Offset: 0, Pulses: 3})
	b = AppendEntry(b, Entry{Offset: MaxOffset, Pulses: 0xFFFF})

	dec := NewDecoder(bytes.NewReader(b))

	rec, err := dec.Next()
	require.NoError(t, err)
	require.NotNil(t, rec.Marker)
	assert.Nil(t, rec.Entry)
	assert.Equal(t, int64(1760000000), rec.Marker.Timestamp)

	rec, err = dec.Next()
	require.NoError(t, err)
	require.NotNil(t, rec.Entry)
	assert.Equal(t, Entry{Offset: 0, Pulses: 3}, *rec.Entry)

	rec, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, Entry{Offset: MaxOffset, Pulses: 0xFFFF}, *rec.Entry)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderTruncated(t *testing.T) {
	full := AppendEntry(AppendMarker(nil, SegmentMarker{Timestamp: 5}), Entry{Offset: 1, Pulses: 1})

	for _, cut := range []int{1, 3, 9, 11, 13} {
		dec := NewDecoder(bytes.NewReader(full[:cut]))
		var err error
		for err == nil {
			_, err = dec.Next()
		}
		assert.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)
	}
}

func TestReadSegments(t *testing.T) {
	var b []byte
	b = AppendMarker(b, SegmentMarker{Timestamp: 1000})
	b = AppendEntry(b, Entry{Offset: 0, Pulses: 1})
	b = AppendEntry(b, Entry{Offset: 4, Pulses: 2})
	b = AppendMarker(b, SegmentMarker{Timestamp: 5000})
	b = AppendEntry(b, Entry{Offset: 1, Pulses: 7})

	segs, err := ReadSegments(bytes.NewReader(b))
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, time.Unix(1000, 0).UTC(), segs[0].Start)
	assert.Equal(t, []Entry{{0, 1}, {4, 2}}, segs[0].Entries)
	assert.Equal(t, 3, segs[0].Pulses())
	assert.Equal(t, time.Unix(1040, 0).UTC(), segs[0].BucketStart(segs[0].Entries[1], 10*time.Second))
	assert.Equal(t, []Entry{{1, 7}}, segs[1].Entries)
}

func TestReadSegmentsEmptyMarkerOnly(t *testing.T) {
	segs, err := ReadSegments(bytes.NewReader(AppendMarker(nil, SegmentMarker{Timestamp: 1})))
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Empty(t, segs[0].Entries)
}

func TestReadSegmentsOrphanEntry(t *testing.T) {
	_, err := ReadSegments(bytes.NewReader(AppendEntry(nil, Entry{Offset: 0, Pulses: 1})))
	assert.ErrorIs(t, err, ErrOrphanEntry)
}

func TestReadSegmentsNonIncreasingOffset(t *testing.T) {
	var b []byte
	b = AppendMarker(b, SegmentMarker{Timestamp: 1})
	b = AppendEntry(b, Entry{Offset: 3, Pulses: 1})
	b = AppendEntry(b, Entry{Offset: 3, Pulses: 1})

	segs, err := ReadSegments(bytes.NewReader(b))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTruncated))
	require.Len(t, segs, 1)
	assert.Len(t, segs[0].Entries, 1)
}

func TestReadSegmentsKeepsDataBeforeTruncation(t *testing.T) {
	var b []byte
	b = AppendMarker(b, SegmentMarker{Timestamp: 1})
	b = AppendEntry(b, Entry{Offset: 0, Pulses: 9})
	b = append(b, 0x01)

	segs, err := ReadSegments(bytes.NewReader(b))
	assert.ErrorIs(t, err, ErrTruncated)
	require.Len(t, segs, 1)
	assert.Equal(t, []Entry{{0, 9}}, segs[0].Entries)
}
