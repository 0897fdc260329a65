package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Session       string      `json:"session"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Sensor        SensorJSON  `json:"sensor"`
	LastBucket    *BucketJSON `json:"last_bucket,omitempty"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// SensorJSON is the JSON representation of the sensor statistics.
type SensorJSON struct {
	Level          string `json:"level"`
	TotalPulses    uint64 `json:"total_pulses"`
	PendingPulses  uint32 `json:"pending_pulses"`
	Buckets        uint64 `json:"buckets"`
	EntriesWritten uint64 `json:"entries_written"`
	EntriesDropped uint64 `json:"entries_dropped"`
	Buffered       int    `json:"buffered"`
	Segments       uint64 `json:"segments"`
	SegmentStart   string `json:"segment_start,omitempty"`
	WriteErrors    uint64 `json:"write_errors"`
	StoreOK        bool   `json:"store_ok"`
}

// BucketJSON is the JSON representation of the last closed bucket.
type BucketJSON struct {
	Start  string `json:"start"`
	Offset uint16 `json:"offset"`
	Pulses uint16 `json:"pulses"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	Pin         int    `json:"pin"`
	Debouncer   string `json:"debouncer"`
	DebounceMs  int64  `json:"debounce_ms"`
	PollMs      int64  `json:"poll_ms"`
	RecordMs    int64  `json:"record_ms"`
	BucketSec   int64  `json:"bucket_seconds"`
	BufferSize  int    `json:"buffer_entries"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	DataDir     string `json:"data_dir"`
}

// LevelString renders the debounced input level.
func LevelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

func buildInner(snap Snapshot) StatusInner {
	st := snap.Sensor
	inner := StatusInner{
		Session:       snap.Session,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Sensor: SensorJSON{
			Level:          LevelString(st.Level),
			TotalPulses:    st.TotalPulses,
			PendingPulses:  st.PendingPulses,
			Buckets:        snap.Buckets,
			EntriesWritten: st.EntriesWritten,
			EntriesDropped: st.EntriesDropped,
			Buffered:       st.Buffered,
			Segments:       st.Segments,
			WriteErrors:    st.WriteErrors,
			StoreOK:        st.StoreOK,
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			Pin:         snap.Config.Pin,
			Debouncer:   snap.Config.Debouncer,
			DebounceMs:  snap.Config.DebounceMs,
			PollMs:      snap.Config.PollMs,
			RecordMs:    snap.Config.RecordMs,
			BucketSec:   snap.Config.BucketSec,
			BufferSize:  snap.Config.BufferSize,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			DataDir:     snap.Config.DataDir,
		},
	}
	if !st.SegmentStart.IsZero() {
		inner.Sensor.SegmentStart = st.SegmentStart.UTC().Format(time.RFC3339)
	}
	if b := snap.LastBucket; b != nil {
		inner.LastBucket = &BucketJSON{
			Start:  b.Start.UTC().Format(time.RFC3339),
			Offset: b.Offset,
			Pulses: b.Pulses,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
