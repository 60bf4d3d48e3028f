package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pool-heater/internal/sensor"
	"github.com/sweeney/pool-heater/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
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
	"temp": func(v int) string {
		if sensor.Disconnected(v) {
			return "--"
		}
		return fmt.Sprintf("%d°", v)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Pool Heater</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.fault { color: red; }
</style>
</head>
<body>
<h1>Pool Heater</h1>

<h2>{{if .Label}}{{.Label}}{{else}}-{{end}}</h2>
<table>
<tr><th>State</th><td id="state">{{stateOrUnknown (printf "%s" .State)}}</td></tr>
<tr><th>Time in state</th><td>{{duration .TimeInState}}</td></tr>
<tr><th>Pump</th><td id="pump" class="{{if .Pump}}on{{else}}off{{end}}">{{if .Pump}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Temperatures</h2>
<table>
<tr><th>Pool</th><td id="pool">{{temp .Readings.PoolTemp}} / {{.Readings.PoolSetpoint}}°</td></tr>
<tr><th>Coil</th><td id="coil">{{temp .Readings.CoilTemp}} / {{.Readings.CoilSetpoint}}°</td></tr>
</table>

<h2>Activity</h2>
<table>
<tr><th>Transitions</th><td>{{.Counts.Transitions}}</td></tr>
<tr><th>Pump bursts</th><td>{{.Counts.PumpBursts}}</td></tr>
<tr><th>Success chimes</th><td>{{.Counts.Successes}}</td></tr>
<tr><th>Failure chimes</th><td{{if .Counts.Failures}} class="fault"{{end}}>{{.Counts.Failures}}</td></tr>
{{if .LastNote}}<tr><th>Last chime</th><td>{{.LastNote}} at {{.LastNoteAt.UTC.Format "15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Wait / Heat / Recheck / Burst</th><td>{{.Config.WaitMs}} / {{.Config.HeatMs}} / {{.Config.SmallHeatMs}} / {{.Config.PumpMs}} ms</td></tr>
<tr><th>Coil setpoint</th><td>{{.Config.CoilSetpoint}}° (primed within {{.Config.PrimedTolerance}}°)</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() and TimeInState() methods but the template needs
	// Duration fields.
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		TimeInState time.Duration
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		TimeInState: snap.TimeInState(),
	}
	return indexTmpl.Execute(w, data)
}
