// internal/httpserver/hub.go
//
// Live change feed over websockets.
// Every successful engine write publishes {gameId, kind, version}; the hub
// fans it out to the sockets watching that game. Clients refetch
// GET /games/{id} to see the new state, so the feed never carries hidden
// information. A client too slow to drain its buffer misses events and
// notices the gap from the version numbers.

package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn   *websocket.Conn
	gameID string
	send   chan engine.Event
}

// Hub tracks websocket clients per game.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

// Publish queues ev for every client of its game without blocking.
func (h *Hub) Publish(ev engine.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[ev.GameID] {
		select {
		case c.send <- ev:
		default:
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	room, ok := h.rooms[c.gameID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.gameID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.gameID]
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.gameID)
	}
}

// clients reports how many sockets watch gameID.
func (h *Hub) clients(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// Close disconnects everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for c := range room {
			close(c.send)
		}
		delete(h.rooms, id)
	}
}

// handleWS upgrades GET /games/{id}/ws and streams change events.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	if _, err := s.eng.Game(r.Context(), gameID); err != nil {
		writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("websocket upgrade")
		return
	}
	c := &client{conn: conn, gameID: gameID, send: make(chan engine.Event, sendBuffer)}
	s.hub.register(c)

	go c.writePump()
	c.readPump(s.hub)
}

// readPump only watches for the peer going away; clients send nothing.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("game", c.gameID).Msg("websocket write")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
