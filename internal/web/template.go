package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pulse-logger/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"level": status.LevelString,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pulse Logger</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; }
.bad { color: red; }
</style>
</head>
<body>
<h1>Pulse Logger</h1>

<h2>Sensor</h2>
<table>
<tr><th>Input</th><td>{{level .Sensor.Level}}</td></tr>
<tr><th>Total pulses</th><td>{{.Sensor.TotalPulses}}</td></tr>
<tr><th>Pending</th><td>{{.Sensor.PendingPulses}}</td></tr>
{{with .LastBucket}}<tr><th>Last bucket</th><td>{{.Start.UTC.Format "2006-01-02T15:04:05Z"}}: {{.Pulses}}</td></tr>{{end}}
<tr><th>Buckets closed</th><td>{{.Buckets}}</td></tr>
</table>

<h2>Log</h2>
<table>
<tr><th>Store</th><td class="{{if .Sensor.StoreOK}}ok{{else}}bad{{end}}">{{if .Sensor.StoreOK}}ok{{else}}unavailable{{end}}</td></tr>
<tr><th>Segment start</th><td>{{if .Sensor.SegmentStart.IsZero}}none{{else}}{{.Sensor.SegmentStart.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
<tr><th>Segments</th><td>{{.Sensor.Segments}}</td></tr>
<tr><th>Entries written</th><td>{{.Sensor.EntriesWritten}}</td></tr>
<tr><th>Entries buffered</th><td>{{.Sensor.Buffered}}</td></tr>
<tr><th>Entries dropped</th><td>{{.Sensor.EntriesDropped}}</td></tr>
<tr><th>Write errors</th><td>{{.Sensor.WriteErrors}}</td></tr>
</table>
<p><a href="/sensor-log">sensor log</a> | <a href="/sensor-log.json">decoded</a> | <a href="/event-log">event log</a></p>
{{if .CanReset}}<form method="post" action="/delete-logs" onsubmit="return confirm('Delete all logs?')"><button type="submit">Delete logs</button></form>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}bad{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Session</th><td>{{.Session}}</td></tr>
<tr><th>Pin</th><td>{{.Config.Chip}}/{{.Config.Pin}}</td></tr>
<tr><th>Debouncer</th><td>{{.Config.Debouncer}} {{.Config.DebounceMs}}ms</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Bucket</th><td>{{.Config.BucketSec}}s</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, canReset bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		CanReset bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		CanReset: canReset,
	}
	indexTmpl.Execute(w, data)
}
