package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/pulse-logger/internal/pulselog"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 5, DebounceMs: 50, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, "abc", cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Session != "abc" {
		t.Errorf("Session: got %q, want abc", snap.Session)
	}
	if snap.Config.PollMs != 5 {
		t.Errorf("Config.PollMs: got %d, want 5", snap.Config.PollMs)
	}
	if snap.LastBucket != nil {
		t.Error("expected no last bucket initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})

	tr.Update(pulselog.Stats{TotalPulses: 12, EntriesWritten: 3, StoreOK: true})

	snap := tr.Snapshot()
	if snap.Sensor.TotalPulses != 12 {
		t.Errorf("TotalPulses: got %d, want 12", snap.Sensor.TotalPulses)
	}
	if snap.Sensor.EntriesWritten != 3 {
		t.Errorf("EntriesWritten: got %d, want 3", snap.Sensor.EntriesWritten)
	}
	if !snap.Sensor.StoreOK {
		t.Error("expected StoreOK=true")
	}
}

func TestAddBucket(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})

	tr.AddBucket(pulselog.Bucket{Entry: pulselog.Entry{Offset: 1, Pulses: 4}})
	tr.AddBucket(pulselog.Bucket{Entry: pulselog.Entry{Offset: 2, Pulses: 9}})

	snap := tr.Snapshot()
	if snap.Buckets != 2 {
		t.Errorf("Buckets: got %d, want 2", snap.Buckets)
	}
	if snap.LastBucket == nil || snap.LastBucket.Offset != 2 || snap.LastBucket.Pulses != 9 {
		t.Errorf("LastBucket: got %+v", snap.LastBucket)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "", Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})
	tr.Update(pulselog.Stats{TotalPulses: 1})
	tr.AddBucket(pulselog.Bucket{Entry: pulselog.Entry{Offset: 1, Pulses: 1}})

	snap1 := tr.Snapshot()

	tr.Update(pulselog.Stats{TotalPulses: 2})
	tr.AddBucket(pulselog.Bucket{Entry: pulselog.Entry{Offset: 2, Pulses: 5}})

	// snap1 should still reflect old state
	if snap1.Sensor.TotalPulses != 1 {
		t.Error("snapshot should be a copy; stats were modified")
	}
	if snap1.LastBucket.Offset != 1 {
		t.Error("snapshot should be a copy; last bucket was modified")
	}
}

func testSnapshot() Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		Sensor: pulselog.Stats{
			Level:          true,
			TotalPulses:    42,
			PendingPulses:  2,
			EntriesWritten: 7,
			Segments:       1,
			SegmentStart:   start,
			Buffered:       3,
			StoreOK:        true,
		},
		LastBucket: &pulselog.Bucket{
			Entry: pulselog.Entry{Offset: 14, Pulses: 6},
			Start: start.Add(14 * time.Minute),
			Width: time.Minute,
		},
		Buckets:       8,
		Session:       "session-1",
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 5, DebounceMs: 50, BucketSec: 60, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Sensor.Level != "HIGH" {
		t.Errorf("Level: got %q, want HIGH", s.Sensor.Level)
	}
	if s.Sensor.TotalPulses != 42 || s.Sensor.PendingPulses != 2 {
		t.Errorf("pulses: got %+v", s.Sensor)
	}
	if s.Sensor.Buckets != 8 {
		t.Errorf("Buckets: got %d, want 8", s.Sensor.Buckets)
	}
	if s.Sensor.SegmentStart != "2026-01-01T00:00:00Z" {
		t.Errorf("SegmentStart: got %q", s.Sensor.SegmentStart)
	}
	if s.LastBucket == nil || s.LastBucket.Start != "2026-01-01T00:14:00Z" || s.LastBucket.Pulses != 6 {
		t.Errorf("LastBucket: got %+v", s.LastBucket)
	}
	if s.Config.BucketSec != 60 {
		t.Errorf("Config.BucketSec: got %d, want 60", s.Config.BucketSec)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty Event/Reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONBeforeFirstSegment(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["last_bucket"]; ok {
		t.Error("last_bucket should be omitted before any bucket closes")
	}
	sensor := raw["status"]["sensor"].(map[string]any)
	if _, ok := sensor["segment_start"]; ok {
		t.Error("segment_start should be omitted before the first segment")
	}
	if sensor["level"] != "LOW" {
		t.Errorf("level: got %v, want LOW", sensor["level"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Session != "session-1" {
		t.Errorf("Session: got %q", parsed.Status.Session)
	}
	if parsed.Status.Sensor.TotalPulses != 42 {
		t.Errorf("TotalPulses: got %d, want 42", parsed.Status.Sensor.TotalPulses)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), "", Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(pulselog.Stats{TotalPulses: uint64(i)})
			tr.AddBucket(pulselog.Bucket{Entry: pulselog.Entry{Offset: uint16(i)}})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
