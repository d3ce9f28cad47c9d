package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/remote-motor/internal/mqtt"
	"github.com/sweeney/remote-motor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
}).Parse(indexHTML))

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Remote Motor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.running { color: green; font-weight: bold; }
.stopped { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Remote Motor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Motor</h2>
<table>
<tr><th>State</th><td id="motor-state" class="{{if .Motor.State.Enabled}}running{{else}}stopped{{end}}">{{.Description}}</td></tr>
<tr><th>Level</th><td id="motor-level">{{.Motor.State.Level}} / &plusmn;{{.Motor.MaxLevel}}</td></tr>
<tr><th>Duty</th><td id="motor-duty">{{.Motor.Output.Duty}}</td></tr>
<tr><th>Long press</th><td id="motor-long">{{if .Motor.State.LongPressActive}}active{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Remote</th><td class="{{if .Motor.Connected}}connected{{else}}disconnected{{end}}">{{if .Motor.Connected}}connected{{else}}disconnected for {{uptime .Motor.DisconnectedFor}}{{end}}</td></tr>
<tr><th>Input source</th><td>{{.Config.Source}}{{if .Config.Device}} ({{.Config.Device}}){{end}}</td></tr>
<tr><th>Dropped reports</th><td>{{.InputDropped}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if or .MQTTBuffered .MQTTDropped}}<tr><th>MQTT backlog</th><td>{{.MQTTBuffered}} buffered, {{.MQTTDropped}} dropped</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Short +/-</th><td>{{.Motor.Counts.ShortIncrement}} / {{.Motor.Counts.ShortDecrement}}</td></tr>
<tr><th>Long start/release</th><td>{{.Motor.Counts.LongStart}} / {{.Motor.Counts.LongRelease}}</td></tr>
<tr><th>Stop</th><td>{{.Motor.Counts.Stop}}</td></tr>
<tr><th>Watchdog stop</th><td>{{.Motor.Counts.WatchdogStop}}</td></tr>
<tr><th>Connect/disconnect</th><td>{{.Motor.Counts.Connected}} / {{.Motor.Counts.Disconnected}}</td></tr>
<tr><th>Unknown/malformed</th><td>{{.Motor.Counts.Unknown}} / {{.Motor.Counts.Malformed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Release timeout</th><td>{{.Config.ReleaseTimeoutMs}}ms</td></tr>
<tr><th>Stop timeout</th><td>{{.Config.StopTimeoutMs}}ms{{if .Config.StopOnDisconnect}} (stop on disconnect){{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var maxLevel = {{.Motor.MaxLevel}};
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("motor-state");
  var levelEl = document.getElementById("motor-level");
  var dutyEl = document.getElementById("motor-duty");
  var longEl = document.getElementById("motor-long");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });
  client.on("reconnect", function() { setDot("pending", "reconnecting"); });
  client.on("offline", function() { setDot("err", "offline"); });
  client.on("error", function() { setDot("err", "error"); });

  client.on("message", function(t, payload) {
    try {
      var m = JSON.parse(payload.toString()).motor;
      if (!m) { return; }
      var pct = Math.round(Math.abs(m.level) * 100 / maxLevel);
      stateEl.textContent = m.level === 0 ? "Stopped" : "Running " + m.direction.toLowerCase() + " at " + pct + "%";
      stateEl.className = m.level === 0 ? "stopped" : "running";
      levelEl.textContent = m.level + " / ±" + maxLevel;
      dutyEl.textContent = m.duty;
      longEl.textContent = m.long_press ? "active" : "no";
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() and Description() methods; the template reads fields.
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		Description string
		Topic       string
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		Description: snap.Description(),
		Topic:       mqtt.Topic,
	}
	return indexTmpl.Execute(w, data)
}
