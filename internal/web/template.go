package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/signal-panel/internal/panel"
	"github.com/sweeney/signal-panel/internal/status"
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
	"channelName": func(i int) string {
		return panel.Channel(i).String()
	},
	"binary": func(b byte) string {
		return fmt.Sprintf("%08b", b)
	},
	"onOff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Signal Panel</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Signal Panel</h1>

<h2>Channels</h2>
<table id="channels">
<tr><th>Channel</th><td>Mode</td><td>Output</td></tr>
{{range $i, $c := .Channels}}<tr><th>{{$i}} {{channelName $i}}</th><td class="mode">{{$c.Mode}}</td><td class="output {{onOff $c.Output}}">{{onOff $c.Output}}</td></tr>
{{end}}</table>
<table>
<tr><th>Register</th><td id="register">{{binary .Register}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Switches</h2>
<table>
<tr><th>Blink left</th><td class="{{onOff .Switches.BlinkLeft}}">{{onOff .Switches.BlinkLeft}}</td></tr>
<tr><th>Blink right</th><td class="{{onOff .Switches.BlinkRight}}">{{onOff .Switches.BlinkRight}}</td></tr>
<tr><th>Four-way</th><td class="{{onOff .Switches.FourWay}}">{{onOff .Switches.FourWay}}</td></tr>
<tr><th>Horn</th><td class="{{onOff .Switches.Horn}}">{{onOff .Switches.Horn}}</td></tr>
<tr><th>Alert</th><td class="{{onOff .Switches.Alert}}">{{onOff .Switches.Alert}}</td></tr>
<tr><th>Position light</th><td class="{{onOff .Switches.PositionLight}}">{{onOff .Switches.PositionLight}}</td></tr>
<tr><th>Box light</th><td class="{{onOff .Switches.BoxLight}}">{{onOff .Switches.BoxLight}}</td></tr>
<tr><th>DRL</th><td class="{{onOff .Switches.DRL}}">{{onOff .Switches.DRL}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Cycles</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>Transitions</th><td>{{.Counts.Transitions}}</td></tr>
<tr><th>Faults</th><td>{{.Counts.Faults}}</td></tr>
<tr><th>Rejected</th><td>{{.Counts.Rejected}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Alert mode</th><td>{{.Config.AlertMode}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var rows = document.querySelectorAll("#channels tr");
  var reg = document.getElementById("register");

  function refresh() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      j.status.channels.forEach(function(c) {
        var row = rows[c.index + 1];
        if (!row) return;
        var out = c.output ? "on" : "off";
        row.querySelector(".mode").textContent = c.mode;
        var cell = row.querySelector(".output");
        cell.textContent = out;
        cell.className = "output " + out;
      });
      reg.textContent = j.status.register;
    }).catch(function() {});
  }

  setInterval(refresh, 500);
})();
</script>
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
