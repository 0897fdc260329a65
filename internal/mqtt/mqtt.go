// Package mqtt publishes closed pulse buckets and system lifecycle events,
// with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/pulse-logger/internal/pulselog"
)

// TopicBuckets is the MQTT topic for closed pulse buckets.
const TopicBuckets = "energy/pulse/sensor/buckets"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/pulse/sensor/system"

// Publisher publishes sensor data to MQTT.
type Publisher interface {
	// Publish sends one closed bucket.
	// Returns error if publishing fails (should not crash the process).
	Publish(b pulselog.Bucket) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "LOG_RESET"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message for a closed bucket.
type Payload struct {
	Pulse BucketPayload `json:"pulse"`
}

// BucketPayload contains one bucket's count.
type BucketPayload struct {
	Start        string `json:"start"`
	WidthSeconds int64  `json:"width_seconds"`
	Offset       uint16 `json:"offset"`
	Pulses       uint16 `json:"pulses"`
}

// FormatPayload creates the JSON payload for a closed bucket.
func FormatPayload(b pulselog.Bucket) ([]byte, error) {
	return json.Marshal(Payload{
		Pulse: BucketPayload{
			Start:        b.Start.UTC().Format(time.RFC3339),
			WidthSeconds: int64(b.Width / time.Second),
			Offset:       b.Offset,
			Pulses:       b.Pulses,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
