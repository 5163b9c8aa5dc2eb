// Package gateway exposes a room over HTTP: a WebSocket endpoint whose
// connections join the room alongside TCP sessions, plus health,
// history, and metrics endpoints.
package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/Zereker/chatroom"
)

// Gateway serves the HTTP surface of a room.
type Gateway struct {
	room     *chatroom.Room
	logger   chatroom.Logger
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
}

// New creates a gateway for the given room. The gatherer backs the
// /metrics endpoint; pass the registry the service's collectors are
// registered with. A nil logger falls back to the default slog logger.
func New(room *chatroom.Room, logger chatroom.Logger, gatherer prometheus.Gatherer) *Gateway {
	if logger == nil {
		logger = slogDefault()
	}

	return &Gateway{
		room:     room,
		logger:   logger,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", g.handleWS)
	r.Get("/healthz", g.handleHealthz)
	r.Get("/history", g.handleHistory)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{}))

	return r
}

// handleWS upgrades the request and runs the connection as a room
// participant until it disconnects.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	newParticipant(conn, g.room, g.logger).run()
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleHistory returns the room's retained frame window, oldest first.
func (g *Gateway) handleHistory(w http.ResponseWriter, _ *http.Request) {
	frames := lo.Map(g.room.History(), func(f chatroom.Frame, _ int) string {
		return string(f.Body())
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(historyResponse{Count: len(frames), Frames: frames}); err != nil {
		g.logger.Error("encode history response", "error", err)
	}
}

type historyResponse struct {
	Count  int      `json:"count"`
	Frames []string `json:"frames"`
}
