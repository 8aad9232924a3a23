package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/egg-incubator/internal/logic"
	"github.com/sweeney/egg-incubator/internal/status"
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
	"relayClass": func(s string) string {
		switch s {
		case "ON":
			return "on"
		case "OFF":
			return "off"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Egg Incubator</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown, .warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; background: orange; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
</style>
</head>
<body>
<h1>Egg Incubator<span id="live-dot" class="live-dot" title="connecting"></span></h1>

<h2>Conditions</h2>
<table>
{{with .Status.Reading}}<tr><th>Temperature</th><td id="temperature">{{printf "%.1f" .TemperatureF}} &deg;F</td></tr>
<tr><th>Humidity</th><td id="humidity">{{printf "%.1f" .HumidityPct}} %</td></tr>
<tr><th>Read at</th><td id="read-at">{{.Timestamp}}</td></tr>{{else}}<tr><th>Sensor</th><td class="unknown">no reading yet</td></tr>{{end}}
{{if .Status.SensorError}}<tr><th>Sensor error</th><td class="warn">{{.Status.SensorError}}</td></tr>{{end}}
</table>

<h2>Relays</h2>
<table>
<tr><th>Heat</th><td id="heat" class="{{relayClass .Status.Relays.Heat}}">{{.Status.Relays.Heat}}</td></tr>
<tr><th>Humidifier</th><td id="humidifier" class="{{relayClass .Status.Relays.Humidity}}">{{.Status.Relays.Humidity}}</td></tr>
<tr><th>Turner</th><td id="turner" class="{{if .Status.Relays.TurnerEngaged}}on{{else}}off{{end}}">{{if .Status.Relays.TurnerEngaged}}turning{{else}}idle{{end}}</td></tr>
<tr><th>Last egg turn</th><td>{{or .Status.Relays.LastEggTurn "never"}}</td></tr>
</table>

<h2>Cycle</h2>
<table>
<tr><th>Day</th><td id="day">{{.Status.Cycle.Day}}{{if .Status.Cycle.PostHatch}} (past hatch){{end}}</td></tr>
<tr><th>Started</th><td>{{.Status.Config.StartDate}}</td></tr>
<tr><th>Lockdown</th><td>{{.Status.Cycle.LockdownDate}}{{if .Status.Cycle.Lockdown}} <span class="on">active</span>{{end}}</td></tr>
<tr><th>Hatch</th><td>{{.Status.Cycle.HatchDate}}</td></tr>
<tr><th>Humidity target</th><td>{{.Status.Cycle.HumidityTarget}} %</td></tr>
{{if .Status.Cycle.Error}}<tr><th>Cycle error</th><td class="warn">{{.Status.Cycle.Error}}</td></tr>{{end}}
</table>

<h2>Settings</h2>
<form id="settings">
<table>
<tr><th>Start date</th><td><input name="start_date" type="date" value="{{.Status.Config.StartDate}}"></td></tr>
<tr><th>Temperature threshold (&deg;F)</th><td><input name="temperature_threshold" value="{{.Status.Config.TemperatureThreshold}}"></td></tr>
<tr><th>Humidity threshold (%)</th><td><input name="humidity_threshold" value="{{.Status.Config.HumidityThreshold}}"></td></tr>
<tr><th>Log interval (s)</th><td><input name="log_interval" value="{{.Status.Config.LogInterval}}"></td></tr>
<tr><th>Turn interval (s)</th><td><input name="relay_interval" value="{{.Status.Config.RelayInterval}}"></td></tr>
<tr><th>Turn duration (s)</th><td><input name="roll_interval" value="{{.Status.Config.RollInterval}}"></td></tr>
</table>
<p id="settings-result"></p>
</form>

<h2>Recent Observations</h2>
<table>
<tr><th>Time</th><th>&deg;F</th><th>%RH</th><th>Heat</th><th>Hum.</th><th>Day</th></tr>
{{range .Observations}}<tr><td>{{.Timestamp}}</td><td>{{printf "%.1f" .TemperatureF}}</td><td>{{printf "%.1f" .HumidityPct}}</td><td class="{{relayClass .HeatRelay}}">{{.HeatRelay}}</td><td class="{{relayClass .HumidityRelay}}">{{.HumidityRelay}}</td><td>{{.DayInCycle}}</td></tr>
{{else}}<tr><td colspan="6">none yet</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .Status.MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Status.MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Sensor failures</th><td>{{.Status.Faults.SensorFailures}}</td></tr>
<tr><th>Actuator mismatches</th><td>{{.Status.Faults.ActuatorMismatches}}</td></tr>
<tr><th>Persistence errors</th><td>{{.Status.Faults.PersistenceErrors}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Poll</th><td>{{.Status.Config.PollMs}}ms</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/statistics">Statistics</a> &middot; <a href="/observations?limit=100">Observations</a></p>

<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setText(id, v) { var el = document.getElementById(id); if (el) el.textContent = v; }
  function setRelay(id, state) {
    var el = document.getElementById(id);
    if (!el) return;
    el.textContent = state;
    el.className = state === "ON" ? "on" : state === "OFF" ? "off" : "unknown";
  }

  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.onopen = function() { dot.className = "live-dot ok"; dot.title = "live"; };
  ws.onclose = function() { dot.className = "live-dot err"; dot.title = "offline"; };
  ws.onmessage = function(e) {
    try {
      var s = JSON.parse(e.data).status;
      if (s.reading) {
        setText("temperature", s.reading.temperature_f.toFixed(1) + " °F");
        setText("humidity", s.reading.humidity_pct.toFixed(1) + " %");
        setText("read-at", s.reading.timestamp);
      }
      setRelay("heat", s.relays.heat);
      setRelay("humidifier", s.relays.humidity);
      setText("day", s.cycle.day_in_cycle);
    } catch (err) {}
  };

  var form = document.getElementById("settings");
  form.addEventListener("change", function(e) {
    var out = document.getElementById("settings-result");
    fetch("/update_settings", {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify({variable: e.target.name, value: e.target.value})
    }).then(function(r) { return r.json(); }).then(function(body) {
      out.textContent = body.error ? body.error : (body.warning || "saved");
      out.className = body.error || body.warning ? "warn" : "";
    });
  });
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, recent []logic.Observation) error {
	data := struct {
		Status       status.StatusInner
		Observations []status.ObservationJSON
		Uptime       time.Duration
	}{
		Status:       status.Build(snap),
		Observations: status.FormatObservations(recent),
		Uptime:       snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
