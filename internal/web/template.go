package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sensor-hub/internal/status"
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
	"yesNo": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Sensor Hub</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.display { font-size: 2.4em; font-weight: bold; }
.motion { color: red; font-weight: bold; }
.error { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
pre { background: #f4f4f4; padding: 0.5em; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>Sensor Hub</h1>

<p class="display" id="display">{{.Display}} cm</p>

<h2>Last Report</h2>
{{if .HasReport}}<table>
<tr><th>Time</th><td>{{.Last.Time.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Distance</th><td>{{.Last.Reading.DistanceCM}} cm (raw {{.Last.Reading.DistanceRaw}})</td></tr>
{{if .Last.Reading.ClimateOK}}<tr><th>Temperature</th><td>{{.Last.Reading.Climate.TemperatureInt}}.{{.Last.Reading.Climate.TemperatureDec}} C</td></tr>
<tr><th>Humidity</th><td>{{.Last.Reading.Climate.HumidityInt}}.{{.Last.Reading.Climate.HumidityDec}} %</td></tr>
{{else}}<tr><th>Climate</th><td class="error">sensor error</td></tr>{{end}}
<tr><th>Motion</th><td{{if .Last.Motion}} class="motion"{{end}}>{{yesNo .Last.Motion}}</td></tr>
</table>
<pre>{{.Last.Line}}</pre>
{{else}}<p>Waiting for first cycle.</p>{{end}}

<h2>Counts</h2>
<table>
<tr><th>Cycles</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>Motion edges</th><td>{{.Counts.MotionEdges}}</td></tr>
<tr><th>Cycles with motion</th><td>{{.Counts.MotionCycles}}</td></tr>
<tr><th>Console lines</th><td>{{.Counts.ConsoleLines}}</td></tr>
{{if .LastLine}}<tr><th>Last console line</th><td>{{.LastLine}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>Peer</th><td>{{.Network.Peer}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Period</th><td>{{.Config.PeriodMs}}ms</td></tr>
<tr><th>Divisor</th><td>{{.Config.DistanceDivisor}}</td></tr>
<tr><th>Console</th><td>{{.Config.ConsolePort}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
