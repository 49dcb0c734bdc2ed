package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gpio-monitor/internal/status"
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
	"orNone": func(s string) string {
		if s == "" {
			return "none"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Config.Daemon}} {{.Line}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.present, .idle { color: green; font-weight: bold; }
.absent { color: #888; }
.terminated { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>{{.Config.Daemon}}: {{.Line}}</h1>

<h2>Line</h2>
<table>
<tr><th>Device</th><td>{{.Config.Path}}</td></tr>
<tr><th>Offset</th><td>{{.Config.Offset}}</td></tr>
<tr><th>State</th><td id="state" class="{{if eq (printf "%s" .State) "TERMINATED"}}terminated{{else}}idle{{end}}">{{.State}}</td></tr>
<tr><th>Last event</th><td>{{orNone (printf "%s" .LastEvent)}}</td></tr>
</table>
{{with .Presence}}
<h2>Presence</h2>
<table>
<tr><th>Inventory</th><td>{{.Inventory}}</td></tr>
<tr><th>Name</th><td>{{orNone .Name}}</td></tr>
<tr><th>Present</th><td id="present" class="{{if .Present}}present{{else}}absent{{end}}">{{if .Present}}yes{{else}}no{{end}}</td></tr>
</table>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{orNone .Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Asserted</th><td>{{.Counts.Asserted}}</td></tr>
<tr><th>Deasserted</th><td>{{.Counts.Deasserted}}</td></tr>
<tr><th>Unit starts</th><td>{{.Counts.UnitStarts}}</td></tr>
<tr><th>Publications</th><td>{{.Counts.Publications}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{if .Config.Target}}<tr><th>Target</th><td>{{.Config.Target}}</td></tr>{{end}}
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
