package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
	"github.com/sweeney/hotspot-projector/internal/status"
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
	"stateClass": func(s hotspot.State) string {
		switch s {
		case hotspot.StateActive:
			return "active"
		case hotspot.StateActivating, hotspot.StateDeactivating:
			return "pending"
		default:
			return "idle"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Hotspot Projector</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: green; font-weight: bold; }
.pending { color: orange; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Hotspot Projector<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Slot</h2>
<table>
<tr><th>Current</th><td id="current">{{if ge .Current 0}}{{.Current}} ({{.CurrentState}}){{else}}none{{end}}</td></tr>
<tr><th>Overlay</th><td id="visible">{{if .Display.Visible}}visible{{else}}hidden{{end}}</td></tr>
<tr><th>Session</th><td>{{.Session}}</td></tr>
</table>

<h2>Projections</h2>
<table>
<tr><th>Hotspot</th><td>State</td></tr>
{{range .Display.Projections}}<tr><th>{{.ID}} ({{printf "%.0f" .X}}, {{printf "%.0f" .Y}}, d={{printf "%.0f" .D}})</th><td id="state-{{.ID}}" class="{{stateClass .State}}">{{.State}}</td></tr>
{{end}}</table>

<h2>Activations</h2>
<table>
<tr><th>Hotspot</th><td>activated / cancelled / forced</td></tr>
{{range $id, $c := .Counts}}<tr><th>{{$id}}</th><td>{{$c.Activations}} / {{$c.Cancelled}} / {{$c.Forced}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Activation</th><td>{{.Config.ActivationMs}}ms</td></tr>
<tr><th>Deactivation</th><td>{{.Config.DeactivationMs}}ms</td></tr>
<tr><th>Forceful</th><td>{{.Config.ForcefulDeactivationMs}}ms</td></tr>
<tr><th>Preempt</th><td>{{if .Config.Preempt}}yes{{else}}no{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Sources</th><td>{{range $i, $s := .Config.Sources}}{{if $i}}, {{end}}{{$s}}{{else}}none{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/projections.json">Projections</a> | <a href="/history.json">History</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var visibleEl = document.getElementById("visible");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function stateClass(state) {
    if (state === "ACTIVE") return "active";
    if (state === "ACTIVATING" || state === "DEACTIVATING") return "pending";
    return "idle";
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var snap = JSON.parse(ev.data);
        visibleEl.textContent = snap.visible ? "visible" : "hidden";
        snap.projections.forEach(function(p) {
          var el = document.getElementById("state-" + p.id);
          if (el) {
            el.textContent = p.state;
            el.className = stateClass(p.state);
          }
        });
      } catch (e) {}
    };
  }

  connect();
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
