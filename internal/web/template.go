package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/inbarayasoo/smart-dog-feeder/internal/status"
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
	"grams": func(v float64) string {
		return fmt.Sprintf("%.1fg", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Dog Feeder</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.warn { color: orange; font-weight: bold; }
.err { color: red; font-weight: bold; }
.dim { color: #888; }
</style>
</head>
<body>
<h1>Dog Feeder</h1>

<h2>State</h2>
<table>
<tr><th>Container</th><td class="{{if .ContainerEmpty}}err{{else}}ok{{end}}">{{if .ContainerEmpty}}EMPTY{{else}}OK{{end}}</td></tr>
<tr><th>Bowl weight</th><td>{{grams .WeightGrams}}</td></tr>
<tr><th>Dispensing</th><td>{{if .Dispensing}}yes{{else}}no{{end}}</td></tr>
<tr><th>Clock</th><td class="{{if .ClockValid}}ok{{else}}warn{{end}}">{{if .ClockValid}}synchronized{{else}}not synchronized{{end}}</td></tr>
{{if .LastFeeding}}<tr><th>Last feeding</th><td>{{.LastFeeding.MealName}}: {{.LastFeeding.AmountGrams}}g target, {{grams .LastFeeding.GramsServed}} served</td></tr>{{end}}
</table>

<h2>Sync</h2>
<table>
<tr><th>Remote</th><td class="{{if .Online}}ok{{else}}err{{end}}">{{if .Online}}reachable{{else}}offline{{end}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}} ({{.Config.Target}})</td></tr>
<tr><th>Queued records</th><td class="{{if .QueueDepth}}warn{{else}}dim{{end}}">{{.QueueDepth}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Feedings fired</th><td>{{.Counters.FeedingsFired}}</td></tr>
<tr><th>Weights pushed</th><td>{{.Counters.WeightsPushed}}</td></tr>
<tr><th>Weights queued</th><td>{{.Counters.WeightsQueued}}</td></tr>
<tr><th>Records flushed</th><td>{{.Counters.RecordsFlushed}}</td></tr>
<tr><th>Schedule fetches</th><td>{{.Counters.FetchOK}} ok / {{.Counters.FetchFailed}} failed</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Device</th><td>{{.Config.DeviceID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Fetch</th><td>{{.Config.FetchMs}}ms</td></tr>
<tr><th>Flush</th><td>{{.Config.FlushMs}}ms</td></tr>
<tr><th>Data dir</th><td>{{.Config.DataDir}}</td></tr>
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
