// Package status provides a thread-safe status tracker for the pulse-logger daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pulse-logger/internal/pulselog"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	Pin         int
	Debouncer   string
	DebounceMs  int64
	PollMs      int64
	RecordMs    int64
	BucketSec   int64
	BufferSize  int
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	DataDir     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Sensor        pulselog.Stats
	LastBucket    *pulselog.Bucket
	Buckets       uint64
	Session       string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, session ID and config.
func NewTracker(startTime time.Time, session string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Session:   session,
			Config:    cfg,
		},
	}
}

// Update sets the sensor statistics. Called from runLoop on every record tick.
func (t *Tracker) Update(stats pulselog.Stats) {
	t.mu.Lock()
	t.snap.Sensor = stats
	t.mu.Unlock()
}

// AddBucket records a bucket that was just closed.
func (t *Tracker) AddBucket(b pulselog.Bucket) {
	t.mu.Lock()
	t.snap.LastBucket = &b
	t.snap.Buckets++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastBucket != nil {
		b := *s.LastBucket
		s.LastBucket = &b
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
