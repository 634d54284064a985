package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/jindalujjwal0720/milan/internal/signaling"
)

// newUpgrader configures the websocket upgrader. An empty allowedOrigin
// accepts any origin (development); otherwise the Origin header must match
// the configured client address exactly.
func newUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
}

// ServeWs returns an http.HandlerFunc that upgrades to a websocket and
// hands the connection to the hub.
func ServeWs(hub *signaling.Hub, allowedOrigin string) http.HandlerFunc {
	upgrader := newUpgrader(allowedOrigin)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "err", err)
			return
		}

		client := hub.Connect(conn)
		go client.WritePump()
		go client.ReadPump()
	}
}

// Health is a trivial liveness endpoint.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

// Routes registers the server's handlers on a fresh mux.
func Routes(hub *signaling.Hub, allowedOrigin string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health)
	mux.HandleFunc("/ws", ServeWs(hub, allowedOrigin))
	return mux
}
