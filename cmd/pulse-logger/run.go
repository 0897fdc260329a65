package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/pulse-logger/internal/clock"
	"github.com/sweeney/pulse-logger/internal/debounce"
	"github.com/sweeney/pulse-logger/internal/eventlog"
	"github.com/sweeney/pulse-logger/internal/gpio"
	"github.com/sweeney/pulse-logger/internal/mqtt"
	"github.com/sweeney/pulse-logger/internal/pulselog"
	"github.com/sweeney/pulse-logger/internal/status"
	"github.com/sweeney/pulse-logger/internal/store"
	"github.com/sweeney/pulse-logger/internal/web"
)

func runDaemon(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	session := uuid.NewString()

	// Initialize GPIO
	in, err := gpio.NewRealInput(cfg.gpioConfig())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer in.Close()

	deb, err := debounce.New(cfg.Debouncer, in, clock.NewReal(), cfg.Debounce)
	if err != nil {
		return err
	}

	// A log that cannot be opened leaves the daemon running memory-only.
	eventStore := store.NewFileStore(cfg.EventLogPath())
	events := eventlog.New(eventStore, time.Now)
	if err := events.Begin(); err != nil {
		log.Printf("event log unavailable: %v", err)
	}
	defer events.Close()
	events.Log(eventlog.Info, "Sensor: started session %s", session)

	sensorStore := store.NewFileStore(cfg.SensorLogPath())
	sensor, err := pulselog.NewSensor(deb, sensorStore, events, pulselog.Config{
		BucketWidth: cfg.Bucket,
		BufferSize:  cfg.Buffer,
	})
	if err != nil {
		return err
	}
	if err := sensor.Begin(); err != nil {
		return err
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.Discard{}
	if cfg.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.Broker, "pulse-logger-"+session)
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), session, status.Config{
		Chip:        cfg.Chip,
		Pin:         cfg.Pin,
		Debouncer:   string(cfg.Debouncer),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		PollMs:      cfg.Poll.Milliseconds(),
		RecordMs:    cfg.Record.Milliseconds(),
		BucketSec:   int64(cfg.Bucket / time.Second),
		BufferSize:  cfg.Buffer,
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		DataDir:     cfg.DataDir,
	})
	tracker.Update(sensor.Stats())

	// Publish startup event with full status snapshot
	publishSystem(publisher, tracker, mqttStatus, "STARTUP", "", true)

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, web.Logs{
			Events:      eventStore,
			Sensor:      sensorStore,
			BucketWidth: cfg.Bucket,
			Reset:       func() error { return resetLogs(sensor, events, publisher, tracker, mqttStatus) },
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: pin=%s/%d debouncer=%s debounce=%v poll=%v bucket=%v broker=%q heartbeat=%v",
		cfg.Chip, cfg.Pin, cfg.Debouncer, cfg.Debounce, cfg.Poll, cfg.Bucket, cfg.Broker, cfg.Heartbeat)

	pollCtx, stopPoll := context.WithCancel(ctx)
	pollTicker := time.NewTicker(cfg.Poll)
	defer pollTicker.Stop()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pollLoop(pollCtx, sensor, pollTicker.C)
	}()

	recordTicker := time.NewTicker(cfg.Record)
	defer recordTicker.Stop()

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	reason := runLoop(loop{
		sensor:     sensor,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        time.Now,
		record:     recordTicker.C,
		heartbeat:  heartbeat,
		sig:        sigCh,
		done:       ctx.Done(),
	})

	stopPoll()
	wg.Wait()
	return shutdown(sensor, events, publisher, tracker, mqttStatus, reason)
}

// pollLoop drives the debouncer until ctx is done. Read errors are logged
// once per failure streak.
func pollLoop(ctx context.Context, sensor *pulselog.Sensor, tick <-chan time.Time) {
	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			err := sensor.Update()
			if err != nil && !failing {
				log.Printf("gpio read error: %v", err)
			} else if err == nil && failing {
				log.Printf("gpio read recovered")
			}
			failing = err != nil
		}
	}
}

// loop holds the collaborators of the bookkeeping loop.
type loop struct {
	sensor     *pulselog.Sensor
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	now        func() time.Time

	record    <-chan time.Time
	heartbeat <-chan time.Time
	sig       <-chan os.Signal
	done      <-chan struct{}
}

// runLoop buckets pulses on every record tick and publishes closed buckets
// and heartbeats. It returns the shutdown reason.
func runLoop(l loop) string {
	for {
		select {
		case s := <-l.sig:
			log.Printf("received %v, shutting down", s)
			return signalName(s)

		case <-l.done:
			return "CANCELLED"

		case <-l.record:
			if b, ok := l.sensor.Record(l.now()); ok {
				l.tracker.AddBucket(b)
				if err := l.publisher.Publish(b); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}
			l.tracker.Update(l.sensor.Stats())
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())

		case <-l.heartbeat:
			l.tracker.Update(l.sensor.Stats())
			st := l.tracker.Snapshot().Sensor
			log.Printf("heartbeat: pulses=%d written=%d dropped=%d write_errors=%d",
				st.TotalPulses, st.EntriesWritten, st.EntriesDropped, st.WriteErrors)
			publishSystem(l.publisher, l.tracker, l.mqttStatus, "HEARTBEAT", "", false)
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// shutdown flushes the sensor, publishes the final status and closes the
// event log.
func shutdown(sensor *pulselog.Sensor, events *eventlog.Log, publisher mqtt.Publisher, tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus, reason string) error {
	err := sensor.Close()
	if err != nil {
		log.Printf("sensor close: %v", err)
	}
	tracker.Update(sensor.Stats())
	events.Log(eventlog.Info, "Sensor: shutdown (%s)", reason)
	publishSystem(publisher, tracker, mqttStatus, "SHUTDOWN", reason, true)
	return err
}

// resetLogs empties both logs. Serves POST /delete-logs.
func resetLogs(sensor *pulselog.Sensor, events *eventlog.Log, publisher mqtt.Publisher, tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus) error {
	if err := events.Empty(); err != nil {
		log.Printf("event log reset: %v", err)
	}
	err := sensor.Reset()
	tracker.Update(sensor.Stats())
	publishSystem(publisher, tracker, mqttStatus, "LOG_RESET", "", false)
	return err
}

func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus, event, reason string, retained bool) {
	tracker.SetMQTTConnected(mqttStatus.IsConnected())
	snap := tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := publisher.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}
