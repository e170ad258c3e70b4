package view

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handlers implements the View's read-only HTTP surface: the latest
// LatencyWindow and the last 100 ActionResults as JSON, a static HTML
// page, and a websocket live-push endpoint, laid out with one method per
// route, no per-handler state beyond what's injected at construction).
type Handlers struct {
	snapshot *Snapshot
	upgrader websocket.Upgrader
}

// NewHandlers builds a Handlers bound to snapshot.
func NewHandlers(snapshot *Snapshot) *Handlers {
	return &Handlers{
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local-only dashboard; the server binds
			// 127.0.0.1 by default, so any origin reaching this process
			// is already trusted.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Latest responds with the last LatencyWindow seen, or JSON null if none
// has arrived yet.
func (h *Handlers) Latest(w http.ResponseWriter, r *http.Request) {
	window := h.snapshot.LatestWindow()
	writeJSON(w, http.StatusOK, window)
}

// Results responds with up to the last 100 ActionResults.
func (h *Handlers) Results(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot.RecentResults())
}

// Health is a liveness probe for the View process itself.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Dashboard serves the static HTML page that is part of
// the View surface.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

// Stream upgrades the connection to a websocket and pushes every new
// LatencyWindow/ActionResult until the client disconnects.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates := make(chan any, 16)
	unsubscribe := h.snapshot.Subscribe(updates)
	defer unsubscribe()

	for update := range updates {
		if err := conn.WriteJSON(update); err != nil {
			return
		}
	}
}

// NotFound is the catch-all handler for unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head><title>agentic-autoscaler</title></head>
<body>
<h1>agentic-autoscaler</h1>
<pre id="latest"></pre>
<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/stream");
ws.onmessage = (ev) => { document.getElementById("latest").textContent = ev.data; };
</script>
</body>
</html>`
