// Package web provides an HTTP status server for the pulse-logger daemon.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/sweeney/pulse-logger/internal/pulselog"
	"github.com/sweeney/pulse-logger/internal/status"
	"github.com/sweeney/pulse-logger/internal/store"
)

// Logs gives the server read access to the on-disk logs and a way to empty them.
type Logs struct {
	Events      store.Source
	Sensor      store.Source
	BucketWidth time.Duration

	// Reset empties both logs. Nil disables POST /delete-logs.
	Reset func() error
}

// Server serves the status page and log downloads over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	logs       Logs
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, logs Logs) *Server {
	s := &Server{tracker: tracker, logs: logs}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/event-log", s.handleEventLog)
	mux.HandleFunc("/sensor-log", s.handleSensorLog)
	mux.HandleFunc("/sensor-log.json", s.handleSensorLogJSON)
	mux.HandleFunc("/delete-logs", s.handleDeleteLogs)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           gzhttp.GzipHandler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.logs.Reset != nil)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleEventLog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	serveSource(w, s.logs.Events)
}

func (s *Server) handleSensorLog(w http.ResponseWriter, r *http.Request) {
	if s.logs.Sensor != nil {
		w.Header().Set("Content-Disposition", `attachment; filename="`+s.logs.Sensor.Name()+`"`)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	serveSource(w, s.logs.Sensor)
}

// segmentJSON is one decoded segment with absolute bucket start times.
type segmentJSON struct {
	Start   string       `json:"start"`
	Pulses  int          `json:"pulses"`
	Entries []bucketJSON `json:"entries"`
}

type bucketJSON struct {
	Start  string `json:"start"`
	Offset uint16 `json:"offset"`
	Pulses uint16 `json:"pulses"`
}

func (s *Server) handleSensorLogJSON(w http.ResponseWriter, r *http.Request) {
	if s.logs.Sensor == nil {
		http.NotFound(w, r)
		return
	}
	rc, err := s.logs.Sensor.NewReader()
	if err != nil {
		http.Error(w, "log unavailable", http.StatusServiceUnavailable)
		return
	}
	defer rc.Close()

	segs, err := pulselog.ReadSegments(rc)
	if err != nil {
		// Serve what decoded; a partially written tail is expected after a crash.
		log.Printf("web: sensor log decode: %v", err)
	}

	out := make([]segmentJSON, 0, len(segs))
	for _, seg := range segs {
		sj := segmentJSON{
			Start:   seg.Start.UTC().Format(time.RFC3339),
			Pulses:  seg.Pulses(),
			Entries: make([]bucketJSON, 0, len(seg.Entries)),
		}
		for _, e := range seg.Entries {
			sj.Entries = append(sj.Entries, bucketJSON{
				Start:  seg.BucketStart(e, s.logs.BucketWidth).UTC().Format(time.RFC3339),
				Offset: e.Offset,
				Pulses: e.Pulses,
			})
		}
		out = append(out, sj)
	}

	w.Header().Set("Content-Type", "application/json")
	data, _ := json.MarshalIndent(map[string]any{"segments": out}, "", "  ")
	w.Write(data)
}

func (s *Server) handleDeleteLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.logs.Reset == nil {
		http.NotFound(w, r)
		return
	}
	if err := s.logs.Reset(); err != nil {
		log.Printf("web: delete logs: %v", err)
		http.Error(w, "failed to delete logs", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func serveSource(w http.ResponseWriter, src store.Source) {
	if src == nil {
		http.Error(w, "log not configured", http.StatusNotFound)
		return
	}
	rc, err := src.NewReader()
	if err != nil {
		http.Error(w, "log unavailable", http.StatusServiceUnavailable)
		return
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("web: serve %s: %v", src.Name(), err)
	}
}
